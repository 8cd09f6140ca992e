package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// RenderASGTable renders Auto Scaling Groups in a styled box table
func RenderASGTable(groups []pkgtypes.AutoScalingGroup) string {
	t := &boxTable{headers: []string{"Name", "Desired", "Min", "Max", "Running", "Status"}}
	for _, g := range groups {
		status, style := "InService", RunningStyle
		if g.Status != "" {
			status, style = g.Status, PendingStyle
		}
		t.add(
			cell{g.Name, NameStyle},
			cell{fmt.Sprintf("%d", g.DesiredCapacity), RegionStyle},
			cell{fmt.Sprintf("%d", g.MinSize), MutedStyle},
			cell{fmt.Sprintf("%d", g.MaxSize), MutedStyle},
			cell{fmt.Sprintf("%d", g.InstanceCount), instanceCountStyle(g)},
			cell{status, style},
		)
	}
	return t.render()
}

func instanceCountStyle(g pkgtypes.AutoScalingGroup) lipgloss.Style {
	if g.InstanceCount < g.DesiredCapacity {
		return PendingStyle
	}
	return RunningStyle
}
