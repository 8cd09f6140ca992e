// Package lifecycle composes template materialization, parameter
// persistence, readiness gating and tool invocation into the cluster
// transitions: create, update, delete and deploy.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vietdv277/cirrus/internal/activity"
	"github.com/vietdv277/cirrus/internal/cluster"
	"github.com/vietdv277/cirrus/internal/logging"
	"github.com/vietdv277/cirrus/internal/readiness"
	"github.com/vietdv277/cirrus/internal/runner"
	"github.com/vietdv277/cirrus/internal/template"
	"github.com/vietdv277/cirrus/pkg/provider"
	"github.com/vietdv277/cirrus/pkg/types"
)

// Operation names
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpDeploy = "deploy"
)

// Defaults
const (
	DefaultReadinessExt  = ".tf"
	DefaultInventoryFile = "inventory.ini"
	DefaultBranch        = "main"
)

// Provisioner applies and destroys the infrastructure described in a directory
type Provisioner interface {
	Apply(ctx context.Context, dir string) error
	Destroy(ctx context.Context, dir string) error
}

// PlaybookRunner runs configuration playbooks
type PlaybookRunner interface {
	RunPlaybook(ctx context.Context, run runner.PlaybookRun) (*runner.Result, error)
}

// ReadinessGate waits for a directory to be usable by the provisioner
type ReadinessGate interface {
	Wait(ctx context.Context, dir, ext string) error
}

// Options configures an Orchestrator
type Options struct {
	Repo        *cluster.Repository
	Locker      *cluster.Locker
	TemplateDir string

	Terraform Provisioner
	Ansible   PlaybookRunner
	Gate      ReadinessGate

	ReadinessExt  string
	InventoryFile string
	// Pods maps a pod identifier to its playbook; relative paths are
	// resolved against PlaybookDir
	Pods        map[string]string
	PlaybookDir string

	// DestroyOnFailedCreate runs a best-effort destroy when apply fails
	// during create, before the directory is removed
	DestroyOnFailedCreate bool

	Regions   provider.RegionValidator
	Secrets   provider.SecretResolver
	Resources provider.ResourceLister

	Logger  logging.Logger
	Metrics *Metrics
	Now     func() time.Time
}

// Orchestrator runs cluster transitions. Every transition holds the
// cluster's exclusive lock for its whole duration.
type Orchestrator struct {
	opts   Options
	repo   *cluster.Repository
	locker *cluster.Locker
	logger logging.Logger
	states *states
}

// New creates an orchestrator
func New(opts Options) (*Orchestrator, error) {
	if opts.Repo == nil {
		return nil, errors.New("cluster repository is required")
	}
	if opts.TemplateDir == "" {
		return nil, errors.New("template directory is required")
	}
	if opts.Terraform == nil {
		return nil, errors.New("provisioner is required")
	}
	if opts.Locker == nil {
		opts.Locker = cluster.NewLocker(opts.Repo.Root(), 0)
	}
	if opts.Gate == nil {
		opts.Gate = readiness.New(readiness.DefaultTimeout, readiness.DefaultInterval)
	}
	if opts.ReadinessExt == "" {
		opts.ReadinessExt = DefaultReadinessExt
	}
	if opts.InventoryFile == "" {
		opts.InventoryFile = DefaultInventoryFile
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		opts:   opts,
		repo:   opts.Repo,
		locker: opts.Locker,
		logger: opts.Logger,
		states: newStates(),
	}, nil
}

// Repository returns the cluster repository
func (o *Orchestrator) Repository() *cluster.Repository {
	return o.repo
}

// Pods returns the known pod identifiers, sorted
func (o *Orchestrator) Pods() []string {
	pods := make([]string, 0, len(o.opts.Pods))
	for p := range o.opts.Pods {
		pods = append(pods, p)
	}
	sort.Strings(pods)
	return pods
}

func (o *Orchestrator) entry(op, name string) *logrus.Entry {
	return o.logger.WithFields(logging.Fields{
		"op":           op,
		"cluster":      name,
		"operation_id": uuid.NewString(),
	})
}

// record appends to the cluster's activity log. The log lives inside the
// cluster directory, so once the directory is gone only the logger sees it.
func (o *Orchestrator) record(log *logrus.Entry, name, message string) {
	log.Info(message)
	if !o.repo.Exists(name) {
		return
	}
	if err := o.repo.Activity(name, activity.WithClock(o.opts.Now)).Append(message); err != nil {
		log.WithError(err).Warn("Failed to append activity")
	}
}

// requireCluster reports an invalid name as not found: no cluster can carry it
func (o *Orchestrator) requireCluster(op, name string) error {
	if cluster.ValidateName(name) != nil || !o.repo.Exists(name) {
		return newError(op, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %s", ErrClusterNotFound, name))
	}
	return nil
}

func (o *Orchestrator) lock(ctx context.Context, op, name string) (func(), error) {
	release, err := o.locker.Lock(ctx, name)
	if err != nil {
		return nil, lockError(op, name, err)
	}
	return release, nil
}

// Create materializes, configures and provisions a new cluster. Any failure
// removes the cluster directory again; the returned *Error names the step.
func (o *Orchestrator) Create(ctx context.Context, req types.CreateRequest) (err error) {
	name := req.Name
	done := o.opts.Metrics.begin(OpCreate)
	defer func() { done(err) }()

	if err := cluster.ValidateName(name); err != nil {
		return newError(OpCreate, name, StepValidate, KindPrecondition, err)
	}
	if strings.TrimSpace(req.Region) == "" {
		return newError(OpCreate, name, StepValidate, KindPrecondition, ErrRegionRequired)
	}
	if o.repo.Exists(name) {
		return newError(OpCreate, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %s", ErrClusterExists, name))
	}
	if o.opts.Regions != nil {
		if err := o.opts.Regions.ValidateRegion(ctx, req.Region); err != nil {
			return newError(OpCreate, name, StepValidate, KindPrecondition, err)
		}
	}
	params := req.Params()
	resolved, err := o.resolveRepositories(ctx, params.Repositories)
	if err != nil {
		return newError(OpCreate, name, StepValidate, KindPrecondition, err)
	}

	release, err := o.lock(ctx, OpCreate, name)
	if err != nil {
		return err
	}
	defer release()

	log := o.entry(OpCreate, name).WithField("region", req.Region)

	if err := o.repo.Create(name); err != nil {
		kind := KindMaterialization
		if errors.Is(err, ErrClusterExists) {
			kind = KindPrecondition
		}
		return newError(OpCreate, name, StepMkdir, kind, err)
	}
	o.states.set(name, types.ClusterStateMaterializing)
	o.record(log, name, fmt.Sprintf("Creation started (region %s)", req.Region))

	fail := func(e *Error) error {
		o.rollbackCreate(log, name, e)
		return e
	}

	templateDir := o.repo.TemplateDir(name)
	if err := template.Materialize(o.opts.TemplateDir, templateDir); err != nil {
		return fail(newError(OpCreate, name, StepCopy, KindMaterialization, err))
	}
	rewritten, err := template.Substitute(templateDir, template.Tokens(name, req.Region))
	if err != nil {
		return fail(newError(OpCreate, name, StepSubstitute, KindMaterialization, err))
	}
	log.WithField("files", len(rewritten)).Debug("Placeholders substituted")

	if err := o.repo.WriteParams(name, params); err != nil {
		return fail(newError(OpCreate, name, StepParams, KindMaterialization, err))
	}
	if _, err := o.repo.WriteEnvFiles(name, resolved); err != nil {
		return fail(newError(OpCreate, name, StepEnvFiles, KindMaterialization, err))
	}

	o.states.set(name, types.ClusterStateConfiguring)
	if err := o.opts.Gate.Wait(ctx, templateDir, o.opts.ReadinessExt); err != nil {
		return fail(readinessError(OpCreate, name, err))
	}

	o.record(log, name, "Running terraform apply")
	if err := o.opts.Terraform.Apply(ctx, templateDir); err != nil {
		e := toolError(OpCreate, name, runner.StepApply, err)
		if e.Step == runner.StepApply && o.opts.DestroyOnFailedCreate {
			o.destroyAfterFailedApply(ctx, log, name, templateDir)
		}
		return fail(e)
	}

	o.states.clear(name)
	o.record(log, name, "Cluster created successfully")
	return nil
}

// destroyAfterFailedApply tears down whatever a partial apply created.
// The outcome is only logged; the caller removes the directory regardless.
func (o *Orchestrator) destroyAfterFailedApply(ctx context.Context, log *logrus.Entry, name, dir string) {
	o.record(log, name, "Apply failed, running best-effort terraform destroy")
	if err := o.opts.Terraform.Destroy(context.WithoutCancel(ctx), dir); err != nil {
		log.WithError(err).Warn("Best-effort destroy after failed apply failed")
		return
	}
	log.Info("Best-effort destroy after failed apply succeeded")
}

func (o *Orchestrator) rollbackCreate(log *logrus.Entry, name string, cause *Error) {
	o.record(log, name, fmt.Sprintf("Creation failed at %s: %v", cause.Step, cause.Err))
	if err := o.repo.Remove(name); err != nil {
		log.WithError(err).Error("Failed to remove partially created cluster")
		o.states.set(name, types.ClusterStateFailed)
		return
	}
	o.states.clear(name)
	log.WithField("step", cause.Step).Warn("Creation rolled back")
}

// Update merges upd into the persisted parameters and, unless disabled,
// re-applies the infrastructure. Parameters are not rolled back when the
// re-apply fails.
func (o *Orchestrator) Update(ctx context.Context, name string, upd *types.ClusterUpdate) (_ *types.ClusterParams, err error) {
	done := o.opts.Metrics.begin(OpUpdate)
	defer func() { done(err) }()

	if upd == nil {
		upd = &types.ClusterUpdate{}
	}
	if err := o.requireCluster(OpUpdate, name); err != nil {
		return nil, err
	}

	var resolved []types.RepoConfig
	if upd.Repositories != nil {
		if resolved, err = o.resolveRepositories(ctx, *upd.Repositories); err != nil {
			return nil, newError(OpUpdate, name, StepValidate, KindPrecondition, err)
		}
	}

	release, err := o.lock(ctx, OpUpdate, name)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.requireCluster(OpUpdate, name); err != nil {
		return nil, err
	}
	raw, err := o.repo.ReadRawParams(name)
	if err != nil {
		return nil, newError(OpUpdate, name, StepValidate, KindPrecondition, err)
	}
	merged, err := cluster.MergeParams(raw, upd)
	if err != nil {
		return nil, newError(OpUpdate, name, StepParams, KindMaterialization, err)
	}
	params, err := cluster.ParseParams(merged)
	if err != nil {
		return nil, newError(OpUpdate, name, StepParams, KindMaterialization, err)
	}

	log := o.entry(OpUpdate, name)
	o.states.set(name, types.ClusterStateUpdating)

	fail := func(e *Error) (*types.ClusterParams, error) {
		o.states.set(name, types.ClusterStateFailed)
		o.record(log, name, fmt.Sprintf("Update failed at %s: %v", e.Step, e.Err))
		return nil, e
	}

	if err := o.repo.WriteRawParams(name, merged); err != nil {
		return fail(newError(OpUpdate, name, StepParams, KindMaterialization, err))
	}
	if upd.Repositories != nil {
		if _, err := o.repo.WriteEnvFiles(name, resolved); err != nil {
			return fail(newError(OpUpdate, name, StepEnvFiles, KindMaterialization, err))
		}
	}
	o.record(log, name, "Settings updated")

	if upd.ShouldApply() {
		if !o.repo.HasTemplate(name) {
			return fail(newError(OpUpdate, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %s", ErrTemplateMissing, name)))
		}
		o.record(log, name, "Running terraform apply")
		if err := o.opts.Terraform.Apply(ctx, o.repo.TemplateDir(name)); err != nil {
			return fail(toolError(OpUpdate, name, runner.StepApply, err))
		}
	}

	o.states.clear(name)
	o.record(log, name, "Update completed successfully")
	return params, nil
}

// Delete destroys the cluster's infrastructure and removes its directory.
// A failed destroy leaves the directory in place.
func (o *Orchestrator) Delete(ctx context.Context, name string) (err error) {
	done := o.opts.Metrics.begin(OpDelete)
	defer func() { done(err) }()

	if err := o.requireCluster(OpDelete, name); err != nil {
		return err
	}

	release, err := o.lock(ctx, OpDelete, name)
	if err != nil {
		return err
	}
	defer release()

	if err := o.requireCluster(OpDelete, name); err != nil {
		return err
	}
	if !o.repo.HasTemplate(name) {
		return newError(OpDelete, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %s", ErrTemplateMissing, name))
	}

	log := o.entry(OpDelete, name)
	o.states.set(name, types.ClusterStateDestroying)
	o.record(log, name, "Deletion started")

	if err := o.opts.Terraform.Destroy(ctx, o.repo.TemplateDir(name)); err != nil {
		e := toolError(OpDelete, name, runner.StepDestroy, err)
		o.states.set(name, types.ClusterStateFailed)
		o.record(log, name, fmt.Sprintf("Deletion failed at %s: %v", e.Step, e.Err))
		return e
	}

	if err := o.repo.Remove(name); err != nil {
		o.states.set(name, types.ClusterStateFailed)
		o.record(log, name, fmt.Sprintf("Deletion failed at %s: %v", StepRemove, err))
		return newError(OpDelete, name, StepRemove, KindMaterialization, err)
	}

	o.states.clear(name)
	log.Info("Cluster deleted successfully")
	return nil
}

// Deploy runs the playbook mapped to req.Pod against the cluster inventory
func (o *Orchestrator) Deploy(ctx context.Context, req types.DeployRequest) (_ *runner.Result, err error) {
	name := req.Name
	done := o.opts.Metrics.begin(OpDeploy)
	defer func() { done(err) }()

	if err := o.requireCluster(OpDeploy, name); err != nil {
		return nil, err
	}
	playbook, ok := o.opts.Pods[req.Pod]
	if !ok || playbook == "" {
		return nil, newError(OpDeploy, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %q", ErrUnknownPod, req.Pod))
	}
	if !filepath.IsAbs(playbook) && o.opts.PlaybookDir != "" {
		playbook = filepath.Join(o.opts.PlaybookDir, playbook)
	}
	if o.opts.Ansible == nil {
		return nil, newError(OpDeploy, name, StepValidate, KindPrecondition, errors.New("configuration runner is not configured"))
	}
	branch := req.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	release, err := o.lock(ctx, OpDeploy, name)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.requireCluster(OpDeploy, name); err != nil {
		return nil, err
	}
	params, err := o.repo.ReadParams(name)
	if err != nil {
		return nil, newError(OpDeploy, name, StepValidate, KindPrecondition, err)
	}
	inventory := filepath.Join(o.repo.TemplateDir(name), o.opts.InventoryFile)
	if _, err := os.Stat(inventory); err != nil {
		return nil, newError(OpDeploy, name, StepValidate, KindPrecondition, fmt.Errorf("%w: %s", ErrInventoryMissing, inventory))
	}

	log := o.entry(OpDeploy, name).WithFields(logging.Fields{"pod": req.Pod, "branch": branch})
	o.states.set(name, types.ClusterStateDeploying)
	o.record(log, name, fmt.Sprintf("Deployment of %s started (branch %s)", req.Pod, branch))

	res, err := o.opts.Ansible.RunPlaybook(ctx, runner.PlaybookRun{
		Playbook:  playbook,
		Inventory: inventory,
		Dir:       o.repo.Path(name),
		ExtraVars: map[string]interface{}{
			"branch":       branch,
			"cluster_name": name,
			"region":       params.Region,
			"pod":          req.Pod,
		},
	})
	if err != nil {
		e := toolError(OpDeploy, name, runner.StepPlaybook, err)
		o.states.set(name, types.ClusterStateFailed)
		o.record(log, name, fmt.Sprintf("Deployment of %s failed at %s: %v", req.Pod, e.Step, e.Err))
		return res, e
	}

	o.states.clear(name)
	o.record(log, name, fmt.Sprintf("Deployment of %s completed successfully", req.Pod))
	return res, nil
}

// List returns the sorted cluster names
func (o *Orchestrator) List() ([]string, error) {
	return o.repo.List()
}

// State returns the lifecycle state of a cluster as seen by this process
func (o *Orchestrator) State(name string) types.ClusterState {
	if st, ok := o.states.get(name); ok {
		return st
	}
	if o.repo.Exists(name) {
		return types.ClusterStateReady
	}
	return types.ClusterStateAbsent
}

// Summaries returns a listing projection of every cluster
func (o *Orchestrator) Summaries() ([]types.ClusterSummary, error) {
	names, err := o.repo.List()
	if err != nil {
		return nil, err
	}

	out := make([]types.ClusterSummary, 0, len(names))
	for _, name := range names {
		s := types.ClusterSummary{
			Name:      name,
			State:     o.State(name),
			UpdatedAt: o.repo.ModTime(name),
		}
		if p, err := o.repo.ReadParams(name); err == nil {
			s.Region = p.Region
			s.Repositories = len(p.Repositories)
		}
		out = append(out, s)
	}
	return out, nil
}

// Settings returns the persisted parameters exactly as stored
func (o *Orchestrator) Settings(name string) (json.RawMessage, error) {
	if err := o.requireCluster("read", name); err != nil {
		return nil, err
	}
	raw, err := o.repo.ReadRawParams(name)
	if err != nil {
		return nil, newError("read", name, StepValidate, KindPrecondition, err)
	}
	return raw, nil
}

// Params returns the decoded persisted parameters
func (o *Orchestrator) Params(name string) (*types.ClusterParams, error) {
	raw, err := o.Settings(name)
	if err != nil {
		return nil, err
	}
	return cluster.ParseParams(raw)
}

// Activity returns the raw activity lines of a cluster
func (o *Orchestrator) Activity(name string) ([]string, error) {
	if err := o.requireCluster("read", name); err != nil {
		return nil, err
	}
	return o.repo.Activity(name).Lines()
}

// Resources lists the cloud resources tagged with the cluster name
func (o *Orchestrator) Resources(ctx context.Context, name string) (*types.ClusterResources, error) {
	if o.opts.Resources == nil {
		return nil, provider.ErrNotConfigured
	}
	if err := o.requireCluster("read", name); err != nil {
		return nil, err
	}
	return o.opts.Resources.ClusterResources(ctx, name)
}

// resolveRepositories checks repos and returns a copy whose secret
// references ("ssm:/path", "secretsmanager:name") are replaced by their values
func (o *Orchestrator) resolveRepositories(ctx context.Context, repos []types.RepoConfig) ([]types.RepoConfig, error) {
	if err := cluster.ValidateRepositories(repos); err != nil {
		return nil, err
	}
	out := make([]types.RepoConfig, len(repos))
	for i, repo := range repos {
		out[i] = repo
		if len(repo.Env) == 0 {
			continue
		}
		env := make(map[string]string, len(repo.Env))
		for k, v := range repo.Env {
			if _, _, ok := provider.ParseSecretRef(v); !ok {
				env[k] = v
				continue
			}
			if o.opts.Secrets == nil {
				return nil, fmt.Errorf("%w (%s of %s)", ErrSecretsDisabled, k, repo.Repo)
			}
			secret, err := o.opts.Secrets.ResolveSecret(ctx, v)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s of %s: %w", k, repo.Repo, err)
			}
			env[k] = secret.Value
		}
		out[i].Env = env
	}
	return out, nil
}
