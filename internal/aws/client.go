// Package aws implements the cloud capabilities cirrus consumes from AWS:
// region validation, secret resolution and listing of cluster resources.
package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/vietdv277/cirrus/pkg/provider"
)

// ProviderName identifies the AWS provider
const ProviderName = "aws"

// ClusterTagKey is the tag carrying the cluster name on provisioned resources
const ClusterTagKey = "cluster"

// EC2API is the subset of the EC2 client used here
type EC2API interface {
	DescribeRegions(ctx context.Context, in *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// AutoScalingAPI is the subset of the Auto Scaling client used here
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// ELBv2API is the subset of the ELBv2 client used here
type ELBv2API interface {
	DescribeLoadBalancers(ctx context.Context, in *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTags(ctx context.Context, in *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
}

// SSMAPI is the subset of the SSM client used here
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// STSAPI is the subset of the STS client used here
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client wraps AWS SDK clients
type Client struct {
	EC2            EC2API
	ASG            AutoScalingAPI
	ELBv2          ELBv2API
	SSM            SSMAPI
	SecretsManager SecretsManagerAPI
	STS            STSAPI

	profile string
	region  string

	regionsOnce sync.Once
	regions     map[string]bool
	regionsErr  error
}

var _ provider.CloudProvider = (*Client)(nil)

// ClientOption allows customizing the AWS Client
type ClientOption func(*Client)

// WithProfile sets the AWS profile for the client
func WithProfile(profile string) ClientOption {
	return func(c *Client) {
		c.profile = profile
	}
}

// WithRegion sets the AWS region for the client
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// LoadConfig loads the shared AWS configuration for a profile and region
func LoadConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error

	if profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(profile))
	}

	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

// NewClient creates a new AWS Client with the given options
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	cfg, err := LoadConfig(ctx, c.profile, c.region)
	if err != nil {
		return nil, err
	}
	if c.region == "" {
		c.region = cfg.Region
	}

	c.EC2 = ec2.NewFromConfig(cfg)
	c.ASG = autoscaling.NewFromConfig(cfg)
	c.ELBv2 = elbv2.NewFromConfig(cfg)
	c.SSM = ssm.NewFromConfig(cfg)
	c.SecretsManager = secretsmanager.NewFromConfig(cfg)
	c.STS = sts.NewFromConfig(cfg)

	return c, nil
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return ProviderName
}

// Profile returns the configured profile
func (c *Client) Profile() string {
	return c.profile
}

// Region returns the configured region
func (c *Client) Region() string {
	return c.region
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref32(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}
