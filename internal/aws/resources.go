package aws

import (
	"context"

	"golang.org/x/sync/errgroup"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// ClusterResources lists the Auto Scaling Groups and load balancers tagged
// with the cluster name. Both lookups run concurrently.
func (c *Client) ClusterResources(ctx context.Context, cluster string) (*pkgtypes.ClusterResources, error) {
	res := &pkgtypes.ClusterResources{Cluster: cluster, Provider: ProviderName}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := c.ClusterAutoScalingGroups(gctx, cluster)
		res.AutoScalingGroups = groups
		return err
	})
	g.Go(func() error {
		lbs, err := c.ClusterLoadBalancers(gctx, cluster)
		res.LoadBalancers = lbs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
