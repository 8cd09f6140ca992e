// Package gcp implements the cloud capabilities cirrus consumes from
// Google Cloud. Only region validation is supported.
package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"

	"github.com/vietdv277/cirrus/pkg/provider"
)

// ProviderName identifies the GCP provider
const ProviderName = "gcp"

const scopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"

// Client wraps GCP credentials and configuration.
// Credentials are Application Default Credentials loaded via
// google.FindDefaultCredentials.
type Client struct {
	credentials *google.Credentials
	project     string
	region      string

	// getRegion looks a region up in the project; replaced in tests
	getRegion func(ctx context.Context, project, region string) error
	// userEmail resolves the account of non service-account credentials
	userEmail func(ctx context.Context) (string, error)
}

var _ provider.CloudProvider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithProject sets the GCP project ID.
func WithProject(project string) Option {
	return func(c *Client) {
		c.project = project
	}
}

// WithRegion sets the GCP region or zone.
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// NewClient creates a new GCP client using Application Default Credentials (ADC).
// ADC is resolved in this order:
//  1. GOOGLE_APPLICATION_CREDENTIALS environment variable (service account key file)
//  2. gcloud user credentials (~/.config/gcloud/application_default_credentials.json)
//  3. Metadata server (when running on GCE / GKE / Cloud Run)
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	creds, err := google.FindDefaultCredentials(ctx, scopeCloudPlatform)
	if err != nil {
		return nil, fmt.Errorf(
			"no GCP application default credentials found "+
				"(run 'gcloud auth application-default login'): %w",
			err,
		)
	}

	c.credentials = creds

	// Prefer the project from credentials when caller did not set one
	if c.project == "" && creds.ProjectID != "" {
		c.project = creds.ProjectID
	}
	c.getRegion = c.lookupRegion
	c.userEmail = c.lookupUserEmail

	return c, nil
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return ProviderName
}

// Project returns the configured GCP project ID.
func (c *Client) Project() string {
	return c.project
}

// Region returns the configured GCP region or zone.
func (c *Client) Region() string {
	return c.region
}

// Credentials returns the underlying google.Credentials.
func (c *Client) Credentials() *google.Credentials {
	return c.credentials
}
