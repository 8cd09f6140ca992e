package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// ClusterAutoScalingGroups returns the Auto Scaling Groups tagged with the cluster name
func (c *Client) ClusterAutoScalingGroups(ctx context.Context, cluster string) ([]pkgtypes.AutoScalingGroup, error) {
	groups := []pkgtypes.AutoScalingGroup{}
	var nextToken *string

	for {
		output, err := c.ASG.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
			Filters: []asgtypes.Filter{
				{
					Name:   aws.String("tag:" + ClusterTagKey),
					Values: []string{cluster},
				},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe auto scaling groups: %w", err)
		}

		for _, g := range output.AutoScalingGroups {
			groups = append(groups, toAutoScalingGroup(g))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return groups, nil
}

// toAutoScalingGroup converts an AWS ASG type to our internal type
func toAutoScalingGroup(g asgtypes.AutoScalingGroup) pkgtypes.AutoScalingGroup {
	asg := pkgtypes.AutoScalingGroup{
		Name:            deref(g.AutoScalingGroupName),
		ARN:             deref(g.AutoScalingGroupARN),
		DesiredCapacity: int(deref32(g.DesiredCapacity)),
		MinSize:         int(deref32(g.MinSize)),
		MaxSize:         int(deref32(g.MaxSize)),
		InstanceCount:   len(g.Instances),
		Status:          deref(g.Status),
	}

	if g.CreatedTime != nil {
		asg.CreatedTime = *g.CreatedTime
	}

	return asg
}
