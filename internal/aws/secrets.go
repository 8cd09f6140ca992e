package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smTypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmTypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/vietdv277/cirrus/pkg/provider"
	"github.com/vietdv277/cirrus/pkg/types"
)

// ResolveSecret resolves "ssm:<parameter>" from SSM Parameter Store (with
// decryption) and "secretsmanager:<id>" from Secrets Manager
func (c *Client) ResolveSecret(ctx context.Context, ref string) (*types.SecretValue, error) {
	scheme, key, ok := provider.ParseSecretRef(ref)
	if !ok {
		return nil, fmt.Errorf("invalid secret reference %q", ref)
	}

	var (
		secret *types.SecretValue
		err    error
	)
	switch scheme {
	case provider.SchemeSSM:
		secret, err = c.getSSMParameter(ctx, key)
	case provider.SchemeSecretsManager:
		secret, err = c.getSecretsManager(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	secret.Ref = ref
	return secret, nil
}

func (c *Client) getSSMParameter(ctx context.Context, name string) (*types.SecretValue, error) {
	output, err := c.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmTypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("SSM parameter %s: %w", name, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get SSM parameter: %w", err)
	}

	param := output.Parameter
	if param == nil {
		return nil, fmt.Errorf("SSM parameter %s: %w", name, provider.ErrNotFound)
	}
	return &types.SecretValue{
		Name:      deref(param.Name),
		ARN:       deref(param.ARN),
		Provider:  ProviderName,
		Version:   strconv.FormatInt(param.Version, 10),
		UpdatedAt: safeTime(param.LastModifiedDate),
		Value:     deref(param.Value),
	}, nil
}

func (c *Client) getSecretsManager(ctx context.Context, id string) (*types.SecretValue, error) {
	output, err := c.SecretsManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var notFound *smTypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("secret %s: %w", id, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}

	return &types.SecretValue{
		Name:      deref(output.Name),
		ARN:       deref(output.ARN),
		Provider:  ProviderName,
		Version:   deref(output.VersionId),
		UpdatedAt: safeTime(output.CreatedDate),
		Value:     deref(output.SecretString),
	}, nil
}

func safeTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
