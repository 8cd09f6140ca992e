package aws

import (
	"context"
	"fmt"

	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// describeTagsBatch is the maximum number of ARNs DescribeTags accepts
const describeTagsBatch = 20

// ClusterLoadBalancers returns the load balancers (ALB/NLB) tagged with the cluster name
func (c *Client) ClusterLoadBalancers(ctx context.Context, cluster string) ([]pkgtypes.LoadBalancer, error) {
	var all []elbv2types.LoadBalancer
	var marker *string

	for {
		output, err := c.ELBv2.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe load balancers: %w", err)
		}
		all = append(all, output.LoadBalancers...)

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	tagged, err := c.arnsTaggedWith(ctx, all, cluster)
	if err != nil {
		return nil, err
	}

	lbs := []pkgtypes.LoadBalancer{}
	for _, lb := range all {
		if tagged[deref(lb.LoadBalancerArn)] {
			lbs = append(lbs, toLoadBalancer(lb))
		}
	}
	return lbs, nil
}

func (c *Client) arnsTaggedWith(ctx context.Context, lbs []elbv2types.LoadBalancer, cluster string) (map[string]bool, error) {
	arns := make([]string, 0, len(lbs))
	for _, lb := range lbs {
		if arn := deref(lb.LoadBalancerArn); arn != "" {
			arns = append(arns, arn)
		}
	}

	tagged := make(map[string]bool)
	for start := 0; start < len(arns); start += describeTagsBatch {
		end := start + describeTagsBatch
		if end > len(arns) {
			end = len(arns)
		}

		output, err := c.ELBv2.DescribeTags(ctx, &elbv2.DescribeTagsInput{
			ResourceArns: arns[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe load balancer tags: %w", err)
		}

		for _, desc := range output.TagDescriptions {
			for _, tag := range desc.Tags {
				if deref(tag.Key) == ClusterTagKey && deref(tag.Value) == cluster {
					tagged[deref(desc.ResourceArn)] = true
				}
			}
		}
	}
	return tagged, nil
}

// toLoadBalancer converts an ELBv2 LoadBalancer to our LoadBalancer type
func toLoadBalancer(lb elbv2types.LoadBalancer) pkgtypes.LoadBalancer {
	result := pkgtypes.LoadBalancer{
		Name:    deref(lb.LoadBalancerName),
		ARN:     deref(lb.LoadBalancerArn),
		DNSName: deref(lb.DNSName),
		Type:    string(lb.Type),
		Scheme:  string(lb.Scheme),
	}

	if lb.State != nil {
		result.State = string(lb.State.Code)
	}

	if lb.CreatedTime != nil {
		result.CreatedAt = *lb.CreatedTime
	}

	return result
}
