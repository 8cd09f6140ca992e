package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CallerIdentity represents AWS caller identity information
type CallerIdentity struct {
	Account string
	Arn     string
	UserID  string
}

// CallerIdentity returns the identity the client authenticates as
func (c *Client) CallerIdentity(ctx context.Context) (*CallerIdentity, error) {
	output, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}

	return &CallerIdentity{
		Account: deref(output.Account),
		Arn:     deref(output.Arn),
		UserID:  deref(output.UserId),
	}, nil
}

// GetCallerIdentity returns the current AWS caller identity for a profile
func GetCallerIdentity(ctx context.Context, profile, region string) (*CallerIdentity, error) {
	c, err := NewClient(ctx, WithProfile(profile), WithRegion(region))
	if err != nil {
		return nil, err
	}
	return c.CallerIdentity(ctx)
}
