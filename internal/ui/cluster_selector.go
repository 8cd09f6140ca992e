package ui

import (
	"errors"
	"fmt"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

func clusterItems(clusters []pkgtypes.ClusterSummary) []pickerItem {
	items := make([]pickerItem, len(clusters))
	for i, c := range clusters {
		glyph, style := StateIndicator(c.State)
		region := c.Region
		if region == "" {
			region = "-"
		}
		items[i] = pickerItem{
			key: c.Name,
			cells: []cell{
				{c.Name, NameStyle},
				{region, RegionStyle},
				{glyph + " " + string(c.State), style},
			},
			details: []detail{
				{"Cluster:", c.Name, NameStyle},
				{"Region:", region, RegionStyle},
				{"State:", string(c.State), style},
				{"Repos:", fmt.Sprintf("%d", c.Repositories), MutedStyle},
				{"Updated:", formatTime(c.UpdatedAt), MutedStyle},
			},
		}
	}
	return items
}

// SelectCluster runs the interactive cluster selector and returns the chosen name
func SelectCluster(clusters []pkgtypes.ClusterSummary) (string, error) {
	if len(clusters) == 0 {
		return "", errors.New("no clusters available")
	}
	return runPicker(newPickerModel("Cluster Details", "clusters", clusterItems(clusters)))
}
