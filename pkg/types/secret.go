package types

import "time"

// SecretValue is a resolved secret used to fill a repository environment file
type SecretValue struct {
	Ref       string    `json:"ref"`      // reference as written in params, e.g. ssm:/app/token
	Name      string    `json:"name"`     // secret name or parameter path
	ARN       string    `json:"arn"`      // provider-specific identifier
	Provider  string    `json:"provider"` // aws, gcp
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	Value string `json:"-"`
}
