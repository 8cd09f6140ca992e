package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/vietdv277/cirrus/pkg/provider"
)

// ValidateRegion checks region against the regions known to the account.
// The region list is fetched once per client.
func (c *Client) ValidateRegion(ctx context.Context, region string) error {
	c.regionsOnce.Do(func() {
		c.regions, c.regionsErr = c.describeRegions(ctx)
	})
	if c.regionsErr != nil {
		return c.regionsErr
	}
	if !c.regions[region] {
		return fmt.Errorf("%w: %s", provider.ErrUnknownRegion, region)
	}
	return nil
}

func (c *Client) describeRegions(ctx context.Context) (map[string]bool, error) {
	output, err := c.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make(map[string]bool, len(output.Regions))
	for _, r := range output.Regions {
		if name := deref(r.RegionName); name != "" {
			regions[name] = true
		}
	}
	return regions, nil
}
