package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	pkgtypes "github.com/vietdv277/cirrus/pkg/types"
)

// Box drawing characters
const (
	TopLeft     = "╭"
	TopRight    = "╮"
	BottomLeft  = "╰"
	BottomRight = "╯"
	Horizontal  = "─"
	Vertical    = "│"
	LeftT       = "├"
	RightT      = "┤"
	TopT        = "┬"
	BottomT     = "┴"
	Cross       = "┼"
)

// Color palette
const (
	ColorBorder  = "240"
	ColorHeader  = "252"
	ColorName    = "81"
	ColorRegion  = "252"
	ColorRunning = "82"
	ColorStopped = "245"
	ColorPending = "214"
	ColorFailed  = "196"
	ColorMuted   = "240"
	ColorHint    = "245"
	ColorAWS     = "214"
	ColorGCP     = "39"
)

// Shared styles
var (
	BorderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder))
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorHeader))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorName))
	RegionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRegion))
	RunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRunning))
	StoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorStopped))
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPending))
	FailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorFailed))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	HintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHint))
	AWSStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAWS))
	GCPStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGCP))
)

// ProviderStyle returns the style used for a provider name
func ProviderStyle(provider string) lipgloss.Style {
	switch strings.ToLower(provider) {
	case "aws":
		return AWSStyle
	case "gcp":
		return GCPStyle
	}
	return MutedStyle
}

// StateIndicator returns the glyph and style for a cluster state
func StateIndicator(state pkgtypes.ClusterState) (string, lipgloss.Style) {
	switch state {
	case pkgtypes.ClusterStateReady:
		return "●", RunningStyle
	case pkgtypes.ClusterStateFailed:
		return "✗", FailedStyle
	case pkgtypes.ClusterStateAbsent:
		return "○", StoppedStyle
	default:
		return "◐", PendingStyle
	}
}

// padRight pads a string to the specified display width using runewidth
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "...")
	}
	return s + strings.Repeat(" ", width-sw)
}
