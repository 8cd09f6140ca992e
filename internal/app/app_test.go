package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/cirrus/internal/config"
	"github.com/vietdv277/cirrus/internal/logging"
	"github.com/vietdv277/cirrus/internal/runner"
	"github.com/vietdv277/cirrus/internal/runner/runnertest"
	"github.com/vietdv277/cirrus/pkg/provider"
	"github.com/vietdv277/cirrus/pkg/types"
)

type stubCloud struct {
	regionCalls int
}

func (s *stubCloud) Name() string { return "stub" }

func (s *stubCloud) ValidateRegion(_ context.Context, region string) error {
	s.regionCalls++
	if region != "us-east1" {
		return provider.ErrUnknownRegion
	}
	return nil
}

func (s *stubCloud) ResolveSecret(context.Context, string) (*types.SecretValue, error) {
	return nil, provider.ErrNotSupported
}

func (s *stubCloud) ClusterResources(_ context.Context, cluster string) (*types.ClusterResources, error) {
	return &types.ClusterResources{Cluster: cluster, Provider: "stub"}, nil
}

func settings(t *testing.T) *config.Settings {
	t.Helper()
	base := t.TempDir()
	tmpl := filepath.Join(base, "template")
	require.NoError(t, os.MkdirAll(tmpl, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "main.tf"), []byte(`name = "##name##"`), 0o644))

	return &config.Settings{
		BaseDir:           base,
		TemplateDir:       tmpl,
		ClustersDir:       filepath.Join(base, "clusters"),
		PlaybookDir:       filepath.Join(base, "playbooks"),
		TerraformBin:      "terraform",
		AnsibleBin:        "ansible-playbook",
		ReadinessTimeout:  time.Second,
		ReadinessInterval: 10 * time.Millisecond,
		ReadinessExt:      ".tf",
		ToolTimeout:       time.Minute,
		LockWait:          time.Second,
		InventoryFile:     "inventory.ini",
		Pods:              map[string]string{"front": "front.yml"},
	}
}

func TestBuildWithoutContext(t *testing.T) {
	fake := runnertest.New()
	a, err := Build(context.Background(), settings(t), logging.Discard(), Options{Runner: fake})
	require.NoError(t, err)
	assert.Nil(t, a.Cloud)

	require.NoError(t, a.Orchestrator.Create(context.Background(), types.CreateRequest{Name: "acme", Region: "anywhere"}))
	assert.Equal(t, []string{runner.StepInit, runner.StepApply}, fake.Steps())

	_, err = a.Orchestrator.Resources(context.Background(), "acme")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestBuildWiresProvider(t *testing.T) {
	s := settings(t)
	s.ValidateRegion = true
	cloud := &stubCloud{}

	a, err := Build(context.Background(), s, logging.Discard(), Options{
		Context: &config.Context{Provider: "aws", Profile: "prod"},
		NewProvider: func(context.Context, *config.Context) (provider.CloudProvider, error) {
			return cloud, nil
		},
		Runner: runnertest.New(),
	})
	require.NoError(t, err)
	assert.Same(t, cloud, a.Cloud)

	err = a.Orchestrator.Create(context.Background(), types.CreateRequest{Name: "acme", Region: "mars"})
	assert.ErrorIs(t, err, provider.ErrUnknownRegion)
	assert.Equal(t, 1, cloud.regionCalls)

	require.NoError(t, a.Orchestrator.Create(context.Background(), types.CreateRequest{Name: "acme", Region: "us-east1"}))
	res, err := a.Orchestrator.Resources(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", res.Cluster)
}

func TestBuildSurvivesProviderFailure(t *testing.T) {
	a, err := Build(context.Background(), settings(t), logging.Discard(), Options{
		Context: &config.Context{Provider: "gcp", Project: "p"},
		NewProvider: func(context.Context, *config.Context) (provider.CloudProvider, error) {
			return nil, errors.New("no credentials")
		},
		Runner: runnertest.New(),
	})
	require.NoError(t, err)
	assert.Nil(t, a.Cloud)
	assert.NotNil(t, a.Orchestrator)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), &config.Context{Provider: "azure"})
	assert.Error(t, err)
}

func TestBuildRegistersMetrics(t *testing.T) {
	a, err := Build(context.Background(), settings(t), logging.Discard(), Options{Runner: runnertest.New()})
	require.NoError(t, err)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
