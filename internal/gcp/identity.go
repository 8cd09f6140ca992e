package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const loginHint = "run 'gcloud auth application-default login'"

// Credential types reported by CallerIdentity
const (
	credTypeServiceAccount = "service_account"
	credTypeMetadata       = "metadata_server"
)

// CallerIdentity holds the identity behind the client's credentials
type CallerIdentity struct {
	Email     string
	ProjectID string
	// TokenType is the "type" of the credentials file, or "metadata_server"
	// when running on Google infrastructure without one
	TokenType string
}

// CallerIdentity verifies the client's credentials by fetching a token and
// resolves the account they belong to. A missing email is not an error.
func (c *Client) CallerIdentity(ctx context.Context) (*CallerIdentity, error) {
	if c.credentials == nil {
		return nil, errors.New("GCP client has no credentials, " + loginHint)
	}

	token, err := c.credentials.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh GCP credentials, %s: %w", loginHint, err)
	}
	if !token.Valid() {
		return nil, errors.New("GCP credentials are expired, " + loginHint)
	}

	identity := &CallerIdentity{ProjectID: c.project, TokenType: credTypeMetadata}

	// service account keys carry their address; other types need a lookup
	var file struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
	}
	if len(c.credentials.JSON) > 0 && json.Unmarshal(c.credentials.JSON, &file) == nil {
		identity.TokenType = file.Type
		if file.Type == credTypeServiceAccount {
			identity.Email = file.ClientEmail
		}
	}

	if identity.Email == "" && c.userEmail != nil {
		if email, err := c.userEmail(ctx); err == nil {
			identity.Email = email
		}
	}

	return identity, nil
}

// lookupUserEmail asks the userinfo endpoint who the access token belongs to
func (c *Client) lookupUserEmail(ctx context.Context) (string, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(c.credentials.TokenSource))
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	return info.Email, nil
}

// GetCallerIdentity returns the identity of the Application Default
// Credentials for a project
func GetCallerIdentity(ctx context.Context, project string) (*CallerIdentity, error) {
	c, err := NewClient(ctx, WithProject(project))
	if err != nil {
		return nil, err
	}
	return c.CallerIdentity(ctx)
}
