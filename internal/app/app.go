// Package app assembles the control plane from resolved settings.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vietdv277/cirrus/internal/aws"
	"github.com/vietdv277/cirrus/internal/cluster"
	"github.com/vietdv277/cirrus/internal/config"
	"github.com/vietdv277/cirrus/internal/gcp"
	"github.com/vietdv277/cirrus/internal/lifecycle"
	"github.com/vietdv277/cirrus/internal/logging"
	"github.com/vietdv277/cirrus/internal/readiness"
	"github.com/vietdv277/cirrus/internal/runner"
	"github.com/vietdv277/cirrus/pkg/provider"
)

// App holds the assembled control plane
type App struct {
	Settings     *config.Settings
	Orchestrator *lifecycle.Orchestrator
	Registry     *prometheus.Registry
	Cloud        provider.CloudProvider // nil when no context is active
	Logger       logging.Logger
}

// ProviderFactory builds the cloud provider for a context
type ProviderFactory func(ctx context.Context, c *config.Context) (provider.CloudProvider, error)

// Options customizes Build
type Options struct {
	// Context is the active cloud context, or nil
	Context *config.Context
	// NewProvider defaults to NewProvider
	NewProvider ProviderFactory
	// Runner defaults to runner.NewExec
	Runner runner.Runner
}

// NewProvider creates the provider client for a context
func NewProvider(ctx context.Context, c *config.Context) (provider.CloudProvider, error) {
	switch c.Provider {
	case config.ProviderAWS:
		return aws.NewClient(ctx, aws.WithProfile(c.Profile), aws.WithRegion(c.Region))
	case config.ProviderGCP:
		return gcp.NewClient(ctx, gcp.WithProject(c.Project), gcp.WithRegion(c.Region))
	}
	return nil, fmt.Errorf("unknown provider: %s", c.Provider)
}

// Build wires the orchestrator, its tools and the cloud provider.
// A provider that cannot be created is logged and left out: cluster
// lifecycle works without one.
func Build(ctx context.Context, s *config.Settings, logger logging.Logger, opts Options) (*App, error) {
	if opts.NewProvider == nil {
		opts.NewProvider = NewProvider
	}
	if opts.Runner == nil {
		opts.Runner = runner.NewExec(logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{Settings: s, Registry: reg, Logger: logger}

	if opts.Context != nil {
		cloud, err := opts.NewProvider(ctx, opts.Context)
		if err != nil {
			logger.WithError(err).WithField("provider", opts.Context.Provider).
				Warn("Cloud provider unavailable, continuing without it")
		} else {
			a.Cloud = cloud
		}
	}

	lopts := lifecycle.Options{
		Repo:                  cluster.NewRepository(s.ClustersDir),
		Locker:                cluster.NewLocker(s.ClustersDir, s.LockWait),
		TemplateDir:           s.TemplateDir,
		Terraform:             runner.NewTerraform(opts.Runner, s.TerraformBin, s.ToolTimeout),
		Ansible:               runner.NewAnsible(opts.Runner, s.AnsibleBin, s.ToolTimeout),
		Gate:                  readiness.New(s.ReadinessTimeout, s.ReadinessInterval),
		ReadinessExt:          s.ReadinessExt,
		InventoryFile:         s.InventoryFile,
		Pods:                  s.Pods,
		PlaybookDir:           s.PlaybookDir,
		DestroyOnFailedCreate: s.DestroyOnFailedCreate,
		Logger:                logger,
		Metrics:               lifecycle.NewMetrics(reg),
	}
	if a.Cloud != nil {
		if s.ValidateRegion {
			lopts.Regions = a.Cloud
		}
		lopts.Secrets = a.Cloud
		lopts.Resources = a.Cloud
	}

	orch, err := lifecycle.New(lopts)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch
	return a, nil
}
