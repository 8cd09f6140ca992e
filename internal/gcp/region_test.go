package gcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/vietdv277/cirrus/pkg/provider"
)

func TestRegionOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"us-central1-a", "us-central1"},
		{"europe-west1-d", "europe-west1"},
		{"us-central1", "us-central1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, regionOf(tt.in), tt.in)
	}
}

func TestValidateRegion(t *testing.T) {
	var gotProject, gotRegion string
	c := &Client{project: "acme-prod"}
	c.getRegion = func(_ context.Context, project, region string) error {
		gotProject, gotRegion = project, region
		if region != "us-east1" {
			return fmt.Errorf("%w: %s", provider.ErrUnknownRegion, region)
		}
		return nil
	}

	require.NoError(t, c.ValidateRegion(context.Background(), "us-east1-b"))
	assert.Equal(t, "acme-prod", gotProject)
	assert.Equal(t, "us-east1", gotRegion)

	assert.ErrorIs(t, c.ValidateRegion(context.Background(), "mars1"), provider.ErrUnknownRegion)
	assert.ErrorIs(t, c.ValidateRegion(context.Background(), ""), provider.ErrUnknownRegion)
}

func TestValidateRegionWithoutProject(t *testing.T) {
	c := &Client{}
	err := c.ValidateRegion(context.Background(), "us-east1")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestUnsupportedCapabilities(t *testing.T) {
	c := &Client{project: "p"}
	_, err := c.ResolveSecret(context.Background(), "ssm:/x")
	assert.ErrorIs(t, err, provider.ErrNotSupported)

	_, err = c.ClusterResources(context.Background(), "acme")
	assert.ErrorIs(t, err, provider.ErrNotSupported)

	assert.Equal(t, "gcp", c.Name())
}

func testCredentials(json string, expiry time.Time) *google.Credentials {
	return &google.Credentials{
		ProjectID:   "acme-prod",
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token", Expiry: expiry}),
		JSON:        []byte(json),
	}
}

func TestCallerIdentity(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	t.Run("service account", func(t *testing.T) {
		c := &Client{
			project:     "acme-prod",
			credentials: testCredentials(`{"type":"service_account","client_email":"deployer@acme-prod.iam.gserviceaccount.com"}`, future),
			userEmail: func(context.Context) (string, error) {
				t.Fatal("userinfo lookup not expected for service accounts")
				return "", nil
			},
		}
		id, err := c.CallerIdentity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "deployer@acme-prod.iam.gserviceaccount.com", id.Email)
		assert.Equal(t, "service_account", id.TokenType)
		assert.Equal(t, "acme-prod", id.ProjectID)
	})

	t.Run("authorized user", func(t *testing.T) {
		c := &Client{
			project:     "acme-prod",
			credentials: testCredentials(`{"type":"authorized_user"}`, future),
			userEmail:   func(context.Context) (string, error) { return "dev@acme.io", nil },
		}
		id, err := c.CallerIdentity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dev@acme.io", id.Email)
		assert.Equal(t, "authorized_user", id.TokenType)
	})

	t.Run("metadata server without email", func(t *testing.T) {
		c := &Client{
			credentials: testCredentials("", future),
			userEmail:   func(context.Context) (string, error) { return "", errors.New("forbidden") },
		}
		id, err := c.CallerIdentity(ctx)
		require.NoError(t, err)
		assert.Empty(t, id.Email)
		assert.Equal(t, "metadata_server", id.TokenType)
	})

	t.Run("expired token", func(t *testing.T) {
		c := &Client{credentials: testCredentials(`{"type":"authorized_user"}`, time.Now().Add(-time.Hour))}
		_, err := c.CallerIdentity(ctx)
		assert.ErrorContains(t, err, "expired")
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := (&Client{}).CallerIdentity(ctx)
		assert.Error(t, err)
	})
}
