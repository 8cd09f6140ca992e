package types

import "time"

// ClusterState represents the lifecycle state of a cluster
type ClusterState string

const (
	ClusterStateAbsent        ClusterState = "absent"
	ClusterStateMaterializing ClusterState = "materializing"
	ClusterStateConfiguring   ClusterState = "configuring"
	ClusterStateReady         ClusterState = "ready"
	ClusterStateUpdating      ClusterState = "updating"
	ClusterStateDeploying     ClusterState = "deploying"
	ClusterStateDestroying    ClusterState = "destroying"
	ClusterStateFailed        ClusterState = "failed"
)

// RepoConfig describes a repository deployed onto a cluster
type RepoConfig struct {
	ServiceName string            `json:"service_name" yaml:"service_name"`
	Repo        string            `json:"repo" yaml:"repo"`
	Branch      string            `json:"branch" yaml:"branch"`
	Env         map[string]string `json:"env" yaml:"env,omitempty"`
}

// ClusterParams is the persisted parameter record of a cluster (params.json)
type ClusterParams struct {
	Name         string       `json:"name" yaml:"name"`
	Region       string       `json:"region" yaml:"region"`
	Repositories []RepoConfig `json:"repositories" yaml:"repositories"`
}

// CreateRequest contains the parameters for creating a cluster
type CreateRequest struct {
	Name         string       `json:"name" yaml:"name"`
	Region       string       `json:"region" yaml:"region"`
	Repositories []RepoConfig `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

// Params returns the parameter record persisted for this request
func (r *CreateRequest) Params() ClusterParams {
	repos := r.Repositories
	if repos == nil {
		repos = []RepoConfig{}
	}
	return ClusterParams{
		Name:         r.Name,
		Region:       r.Region,
		Repositories: repos,
	}
}

// ClusterUpdate is a partial update of the persisted parameters.
// Nil fields are left untouched; Repositories replaces the whole list.
type ClusterUpdate struct {
	Name         *string       `json:"name,omitempty" yaml:"name,omitempty"`
	Region       *string       `json:"region,omitempty" yaml:"region,omitempty"`
	Repositories *[]RepoConfig `json:"repositories,omitempty" yaml:"repositories,omitempty"`

	// Apply re-runs the provisioning tool after the write. Defaults to true.
	Apply *bool `json:"apply,omitempty" yaml:"apply,omitempty"`
}

// ShouldApply reports whether the update re-applies the infrastructure
func (u *ClusterUpdate) ShouldApply() bool {
	return u.Apply == nil || *u.Apply
}

// IsEmpty reports whether the update carries no field changes
func (u *ClusterUpdate) IsEmpty() bool {
	return u.Name == nil && u.Region == nil && u.Repositories == nil
}

// DeployRequest asks for a configuration step against a cluster's inventory
type DeployRequest struct {
	Name   string `json:"name"`
	Pod    string `json:"pod"`
	Branch string `json:"branch"`
}

// ClusterSummary is a read-only projection used for listings
type ClusterSummary struct {
	Name         string       `json:"name"`
	Region       string       `json:"region"`
	State        ClusterState `json:"state"`
	Repositories int          `json:"repositories"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ActivityRecord is a single timestamped entry of a cluster's activity log
type ActivityRecord struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}
