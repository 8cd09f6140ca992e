package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vietdv277/cirrus/pkg/provider"
	"github.com/vietdv277/cirrus/pkg/types"
)

// isZone returns true when s looks like a GCE zone (e.g. "us-central1-a").
// A zone has at least two hyphens and ends with a letter a-f.
func isZone(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return strings.Count(s, "-") >= 2 && last >= 'a' && last <= 'f'
}

// regionOf returns the region containing a zone, or s unchanged.
func regionOf(s string) string {
	if !isZone(s) {
		return s
	}
	return s[:strings.LastIndex(s, "-")]
}

// ValidateRegion checks that the region (or the region of a zone) exists
// in the configured project.
func (c *Client) ValidateRegion(ctx context.Context, region string) error {
	if c.project == "" {
		return fmt.Errorf("%w: no GCP project set", provider.ErrNotConfigured)
	}
	if region == "" {
		return fmt.Errorf("%w: empty region", provider.ErrUnknownRegion)
	}
	return c.getRegion(ctx, c.project, regionOf(region))
}

func (c *Client) lookupRegion(ctx context.Context, project, region string) error {
	client, err := compute.NewRegionsRESTClient(ctx,
		option.WithTokenSource(c.credentials.TokenSource),
	)
	if err != nil {
		return fmt.Errorf("failed to create regions client: %w", err)
	}
	defer func() { _ = client.Close() }()

	_, err = client.Get(ctx, &computepb.GetRegionRequest{
		Project: project,
		Region:  region,
	})
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %s", provider.ErrUnknownRegion, region)
		}
		return fmt.Errorf("failed to get region %s: %w", region, err)
	}
	return nil
}

// ResolveSecret is not supported on GCP
func (c *Client) ResolveSecret(_ context.Context, ref string) (*types.SecretValue, error) {
	return nil, fmt.Errorf("resolve %s on %s: %w", ref, ProviderName, provider.ErrNotSupported)
}

// ClusterResources is not supported on GCP
func (c *Client) ClusterResources(_ context.Context, cluster string) (*types.ClusterResources, error) {
	return nil, fmt.Errorf("list resources of %s on %s: %w", cluster, ProviderName, provider.ErrNotSupported)
}
