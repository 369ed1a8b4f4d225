package status

import (
	"fmt"
	"strings"

	"github.com/aitail/aitail/internal/session"
	"github.com/aitail/aitail/internal/source"
	"github.com/aitail/aitail/internal/telemetry"
	"github.com/aitail/aitail/internal/tui/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the status bar state.
type Model struct {
	SessionID string
	Process   string
	Stats     session.Stats
	Filter    telemetry.FilterSet
	Follow    bool
	Health    []source.Health
	Width     int
}

// New creates a status bar model.
func New(sessionID string) Model {
	return Model{SessionID: sessionID, Follow: true}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	id := m.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	head := theme.StyleHeader.Render("aitail " + id)
	if m.Process != "" {
		head += theme.StyleDimmed.Render(" " + m.Process)
	}

	counts := fmt.Sprintf("%d/%d shown", m.Stats.Visible, m.Stats.Total)
	if m.Follow {
		counts += lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render(" follow")
	}

	line1 := head + sep + counts
	if h := m.healthView(); h != "" {
		line1 += sep + h
	}

	bar := lipgloss.NewStyle().
		Width(width-2).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(line1 + "\n" + m.filterView())

	return bar
}

// filterView renders one checkbox per type with its key and count.
func (m Model) filterView() string {
	parts := make([]string, 0, len(telemetry.AllTypes()))
	for i, t := range telemetry.AllTypes() {
		box := "[ ]"
		style := theme.StyleDimmed
		if m.Filter.Enabled(t) {
			box = "[x]"
			style = lipgloss.NewStyle().Foreground(theme.TypeColor(t))
		}
		parts = append(parts, style.Render(fmt.Sprintf("%d%s %s %d", i+1, box, t, m.Stats.ByType[t])))
	}
	return strings.Join(parts, "  ")
}

func (m Model) healthView() string {
	var parts []string
	for _, h := range m.Health {
		var color lipgloss.Color
		switch h.Status {
		case source.StatusHealthy:
			color = theme.ColorHealthy
		case source.StatusDegraded:
			color = theme.ColorWarning
		case source.StatusFailed:
			color = theme.ColorDanger
		default:
			color = theme.ColorDimmed
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(color).Render(
			fmt.Sprintf("%s: %s", h.Source, h.Status),
		))
	}
	return strings.Join(parts, "  ")
}
