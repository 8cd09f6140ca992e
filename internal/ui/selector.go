package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	listHeight       = 8
	detailLabelWidth = 12
	minWidth         = 60
	maxWidth         = 120
)

// ErrCancelled is returned when the user quits a selector without choosing
var ErrCancelled = errors.New("selection cancelled")

// detail is one labelled line of the details panel
type detail struct {
	label string
	value string
	style lipgloss.Style
}

// pickerItem is a selectable row. key is returned on selection and matched by search.
type pickerItem struct {
	key     string
	cells   []cell
	details []detail
	current bool
}

// pickerModel is the bubbletea model shared by the interactive selectors:
// a search line, a scrolling list and a details panel for the highlighted row.
type pickerModel struct {
	title        string
	noun         string
	items        []pickerItem
	filtered     []pickerItem
	cursor       int
	offset       int
	search       string
	selected     string
	quitting     bool
	cancelled    bool
	termWidth    int
	contentWidth int
	colWidths    []int
}

func newPickerModel(title, noun string, items []pickerItem) pickerModel {
	m := pickerModel{
		title:     title,
		noun:      noun,
		items:     items,
		filtered:  items,
		termWidth: 80,
	}
	for i, item := range items {
		if item.current {
			m.cursor = i
			if m.cursor >= listHeight {
				m.offset = m.cursor - listHeight + 1
			}
			break
		}
	}
	m.calculateWidths()
	return m
}

// calculateWidths sizes every column to its content and gives the
// remaining width to the first one
func (m *pickerModel) calculateWidths() {
	m.contentWidth = m.termWidth - 2
	if m.contentWidth < minWidth {
		m.contentWidth = minWidth
	}
	if m.contentWidth > maxWidth {
		m.contentWidth = maxWidth
	}

	cols := 0
	for _, item := range m.items {
		cols = max(cols, len(item.cells))
	}
	if cols == 0 {
		m.colWidths = nil
		return
	}

	widths := make([]int, cols)
	for _, item := range m.items {
		for i, c := range item.cells {
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}

	// cursor+marker(3) then two spaces between columns
	fixed := 3
	for _, w := range widths[1:] {
		fixed += 2 + w
	}
	widths[0] = max(10, m.contentWidth-fixed)
	m.colWidths = widths
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.calculateWidths()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			if len(m.filtered) > 0 {
				m.selected = m.filtered[m.cursor].key
				m.quitting = true
				return m, tea.Quit
			}

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}

		case tea.KeyDown:
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				if m.cursor >= m.offset+listHeight {
					m.offset = m.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(m.search) > 0 {
				m.search = m.search[:len(m.search)-1]
				m.filter()
			}

		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.filter()
		}
	}

	return m, nil
}

func (m *pickerModel) filter() {
	if m.search == "" {
		m.filtered = m.items
	} else {
		query := strings.ToLower(m.search)
		m.filtered = nil
		for _, item := range m.items {
			if strings.Contains(strings.ToLower(item.key), query) {
				m.filtered = append(m.filtered, item)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
	m.offset = 0
}

func (m pickerModel) blankLine(sb *strings.Builder) {
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString(strings.Repeat(" ", m.contentWidth))
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString("\n")
}

func (m pickerModel) line(sb *strings.Builder, text string, style lipgloss.Style) {
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString(style.Render(padRight(text, m.contentWidth)))
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString("\n")
}

func (m pickerModel) rule(sb *strings.Builder, left, right string) {
	sb.WriteString(BorderStyle.Render(left))
	sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, m.contentWidth)))
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

// View implements tea.Model.
func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	m.rule(&sb, TopLeft, TopRight)
	m.line(&sb, " > "+m.search, NameStyle)
	m.blankLine(&sb)

	visibleEnd := min(m.offset+listHeight, len(m.filtered))
	for i := m.offset; i < visibleEnd; i++ {
		sb.WriteString(m.renderRow(i))
	}
	for i := visibleEnd; i < m.offset+listHeight; i++ {
		m.blankLine(&sb)
	}

	m.blankLine(&sb)
	m.rule(&sb, LeftT, RightT)
	sb.WriteString(m.renderDetails())
	m.rule(&sb, BottomLeft, BottomRight)
	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

func (m pickerModel) renderRow(idx int) string {
	item := m.filtered[idx]

	var line strings.Builder
	cursor := " "
	if idx == m.cursor {
		cursor = ">"
	}
	marker := " "
	if item.current {
		marker = "*"
	}
	line.WriteString(" " + cursor + marker)
	plainWidth := 3

	for i, c := range item.cells {
		if i > 0 {
			line.WriteString("  ")
			plainWidth += 2
		}
		style := c.style
		if i == 0 && item.current {
			style = RunningStyle
		}
		line.WriteString(style.Render(padRight(c.text, m.colWidths[i])))
		plainWidth += m.colWidths[i]
	}
	if plainWidth < m.contentWidth {
		line.WriteString(strings.Repeat(" ", m.contentWidth-plainWidth))
	}

	return BorderStyle.Render(Vertical) + line.String() + BorderStyle.Render(Vertical) + "\n"
}

func (m pickerModel) renderDetails() string {
	var sb strings.Builder
	w := m.contentWidth

	m.line(&sb, " "+m.title, HeaderStyle)
	m.line(&sb, " "+strings.Repeat(Horizontal, 20), MutedStyle)

	rows := 0
	for _, item := range m.items {
		rows = max(rows, len(item.details))
	}

	if len(m.filtered) == 0 {
		m.line(&sb, fmt.Sprintf(" No %s found", m.noun), MutedStyle)
		for i := 1; i <= rows; i++ {
			m.blankLine(&sb)
		}
		return sb.String()
	}

	item := m.filtered[m.cursor]
	for _, d := range item.details {
		value := d.value
		maxValueWidth := w - 1 - detailLabelWidth
		if runewidth.StringWidth(value) > maxValueWidth {
			value = runewidth.Truncate(value, maxValueWidth, "...")
		}

		plainWidth := 1 + detailLabelWidth + runewidth.StringWidth(value)
		line := MutedStyle.Render(" "+padRight(d.label, detailLabelWidth)) + d.style.Render(value)
		if plainWidth < w {
			line += strings.Repeat(" ", w-plainWidth)
		}

		sb.WriteString(BorderStyle.Render(Vertical))
		sb.WriteString(line)
		sb.WriteString(BorderStyle.Render(Vertical))
		sb.WriteString("\n")
	}
	for i := len(item.details); i <= rows; i++ {
		m.blankLine(&sb)
	}

	return sb.String()
}

func (m pickerModel) renderStatusBar() string {
	w := m.contentWidth + 2

	countInfo := fmt.Sprintf("  %d/%d %s", len(m.filtered), len(m.items), m.noun)
	hints := "[Enter:select] [Esc:quit]"

	padding := w - runewidth.StringWidth(countInfo) - runewidth.StringWidth(hints)
	if padding < 1 {
		padding = 1
	}
	return countInfo + strings.Repeat(" ", padding) + HintStyle.Render(hints) + "\n"
}

// runPicker shows the picker and returns the selected key
func runPicker(m pickerModel) (string, error) {
	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(pickerModel)
	if result.cancelled || result.selected == "" {
		return "", ErrCancelled
	}
	return result.selected, nil
}
