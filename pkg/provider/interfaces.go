package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/vietdv277/cirrus/pkg/types"
)

// Common errors
var (
	ErrNotSupported  = errors.New("feature not supported by this provider")
	ErrNotFound      = errors.New("resource not found")
	ErrNotConfigured = errors.New("provider not configured")
	ErrUnknownRegion = errors.New("unknown region")
)

// Secret reference schemes accepted in repository environment values
const (
	SchemeSSM            = "ssm"
	SchemeSecretsManager = "secretsmanager"
)

// RegionValidator checks that a region exists for the provider
type RegionValidator interface {
	// ValidateRegion returns ErrUnknownRegion when the region does not exist
	ValidateRegion(ctx context.Context, region string) error
}

// SecretResolver resolves secret references (e.g. "ssm:/app/token")
type SecretResolver interface {
	// ResolveSecret returns the secret referenced by ref
	ResolveSecret(ctx context.Context, ref string) (*types.SecretValue, error)
}

// ResourceLister lists cloud resources tagged with a cluster name
type ResourceLister interface {
	// ClusterResources returns the resources carrying the cluster tag
	ClusterResources(ctx context.Context, cluster string) (*types.ClusterResources, error)
}

// CloudProvider is the capability set the control plane consumes from a cloud
type CloudProvider interface {
	// Name returns the provider identifier (e.g., "aws", "gcp")
	Name() string

	RegionValidator
	SecretResolver
	ResourceLister
}

// ParseSecretRef splits a value of the form "<scheme>:<key>".
// ok is false when the value is a plain literal.
func ParseSecretRef(value string) (scheme, key string, ok bool) {
	scheme, key, found := strings.Cut(value, ":")
	if !found || key == "" {
		return "", "", false
	}
	switch scheme {
	case SchemeSSM, SchemeSecretsManager:
		return scheme, key, true
	}
	return "", "", false
}
