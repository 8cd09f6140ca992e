package types

import "time"

// AutoScalingGroup represents an AWS Auto Scaling Group owned by a cluster
type AutoScalingGroup struct {
	Name            string    `json:"name"`
	ARN             string    `json:"arn"`
	DesiredCapacity int       `json:"desired_capacity"`
	MinSize         int       `json:"min_size"`
	MaxSize         int       `json:"max_size"`
	InstanceCount   int       `json:"instance_count"`
	Status          string    `json:"status,omitempty"` // empty when InService
	CreatedTime     time.Time `json:"created_time"`
}

// LoadBalancer represents an AWS Load Balancer (ALB/NLB) owned by a cluster
type LoadBalancer struct {
	Name      string    `json:"name"`
	ARN       string    `json:"arn"`
	DNSName   string    `json:"dns_name"`
	Type      string    `json:"type"`   // application, network, gateway
	Scheme    string    `json:"scheme"` // internet-facing, internal
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// ClusterResources lists the cloud resources tagged with a cluster name
type ClusterResources struct {
	Cluster           string             `json:"cluster"`
	Provider          string             `json:"provider"`
	AutoScalingGroups []AutoScalingGroup `json:"auto_scaling_groups"`
	LoadBalancers     []LoadBalancer     `json:"load_balancers"`
}
