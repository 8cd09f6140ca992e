package ui

import (
	"fmt"
	"io"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// RenderLBTable renders load balancers in a styled box table
func RenderLBTable(lbs []pkgtypes.LoadBalancer) string {
	t := &boxTable{headers: []string{"Name", "Type", "Scheme", "State", "DNS Name"}}
	for _, lb := range lbs {
		style := PendingStyle
		switch lb.State {
		case "active":
			style = RunningStyle
		case "failed", "active_impaired":
			style = FailedStyle
		}
		t.add(
			cell{lb.Name, NameStyle},
			cell{lb.Type, RegionStyle},
			cell{lb.Scheme, MutedStyle},
			cell{lb.State, style},
			cell{lb.DNSName, MutedStyle},
		)
	}
	return t.render()
}

// PrintClusterResources writes the resource tables of a cluster to w
func PrintClusterResources(w io.Writer, res *pkgtypes.ClusterResources) {
	_, _ = fmt.Fprintf(w, "%s %s\n", HeaderStyle.Render("Cluster:"), NameStyle.Render(res.Cluster))

	_, _ = fmt.Fprintln(w, HeaderStyle.Render("Auto Scaling Groups"))
	if len(res.AutoScalingGroups) == 0 {
		_, _ = fmt.Fprintln(w, MutedStyle.Render("  none"))
	} else {
		_, _ = fmt.Fprint(w, RenderASGTable(res.AutoScalingGroups))
	}

	_, _ = fmt.Fprintln(w, HeaderStyle.Render("Load Balancers"))
	if len(res.LoadBalancers) == 0 {
		_, _ = fmt.Fprintln(w, MutedStyle.Render("  none"))
	} else {
		_, _ = fmt.Fprint(w, RenderLBTable(res.LoadBalancers))
	}
}
