package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// cell is a single styled table value
type cell struct {
	text  string
	style lipgloss.Style
}

// boxTable renders rows in a rounded box with a header row.
// Column widths grow to fit the widest value.
type boxTable struct {
	headers []string
	rows    [][]cell
}

func (t *boxTable) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *boxTable) widths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}
	return widths
}

func border(sb *strings.Builder, widths []int, left, mid, right string) {
	sb.WriteString(BorderStyle.Render(left))
	for i, w := range widths {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, w+2)))
		if i < len(widths)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

func (t *boxTable) render() string {
	widths := t.widths()
	var sb strings.Builder

	border(&sb, widths, TopLeft, TopT, TopRight)

	sb.WriteString(BorderStyle.Render(Vertical))
	for i, h := range t.headers {
		sb.WriteString(HeaderStyle.Render(" " + padRight(h, widths[i]) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	border(&sb, widths, LeftT, Cross, RightT)

	for _, row := range t.rows {
		sb.WriteString(BorderStyle.Render(Vertical))
		for i, c := range row {
			sb.WriteString(c.style.Render(" " + padRight(c.text, widths[i]) + " "))
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	border(&sb, widths, BottomLeft, BottomT, BottomRight)
	return sb.String()
}

// RenderClusterTable renders cluster summaries in a styled box table
func RenderClusterTable(clusters []pkgtypes.ClusterSummary) string {
	t := &boxTable{headers: []string{"Name", "Region", "State", "Repos", "Updated"}}
	for _, c := range clusters {
		glyph, style := StateIndicator(c.State)
		region := c.Region
		if region == "" {
			region = "-"
		}
		t.add(
			cell{c.Name, NameStyle},
			cell{region, RegionStyle},
			cell{glyph + " " + string(c.State), style},
			cell{fmt.Sprintf("%d", c.Repositories), MutedStyle},
			cell{formatTime(c.UpdatedAt), MutedStyle},
		)
	}
	return t.render() + clusterSummary(clusters)
}

// PrintClusterTable writes the cluster table to w
func PrintClusterTable(w io.Writer, clusters []pkgtypes.ClusterSummary) {
	_, _ = fmt.Fprint(w, RenderClusterTable(clusters))
}

func clusterSummary(clusters []pkgtypes.ClusterSummary) string {
	counts := make(map[pkgtypes.ClusterState]int)
	for _, c := range clusters {
		counts[c.State]++
	}

	var parts []string
	if n := counts[pkgtypes.ClusterStateReady]; n > 0 {
		parts = append(parts, RunningStyle.Render(fmt.Sprintf("%d ready", n)))
	}
	if n := counts[pkgtypes.ClusterStateFailed]; n > 0 {
		parts = append(parts, FailedStyle.Render(fmt.Sprintf("%d failed", n)))
	}
	if busy := len(clusters) - counts[pkgtypes.ClusterStateReady] - counts[pkgtypes.ClusterStateFailed]; busy > 0 {
		parts = append(parts, PendingStyle.Render(fmt.Sprintf("%d in progress", busy)))
	}

	summary := fmt.Sprintf("  %d clusters", len(clusters))
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return summary + "\n"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
