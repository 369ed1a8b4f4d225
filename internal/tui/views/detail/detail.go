// Package detail renders one telemetry record as a scrollable Markdown
// overlay.
package detail

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
	"github.com/aitail/aitail/internal/tui/theme"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/pretty"
)

var stylePanel = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(theme.ColorBorder).
	Padding(0, 1)

// Model holds the state for the detail overlay.
type Model struct {
	Record *telemetry.Telemetry

	style    string
	viewport viewport.Model
	width    int
	height   int
}

// New creates an empty detail model. style names a glamour standard style
// such as "dark", "light" or "notty".
func New(style string) Model {
	if style == "" {
		style = "dark"
	}
	return Model{style: style, viewport: viewport.New(0, 0)}
}

// Show renders t into the viewport, sized to fit width x height.
func (m *Model) Show(t *telemetry.Telemetry, width, height int) {
	m.Record = t
	m.Resize(width, height)
	m.viewport.GotoTop()
}

// Resize re-renders the current record for a new terminal size.
func (m *Model) Resize(width, height int) {
	m.width, m.height = width, height
	innerW := max(width-4, 20)
	innerH := max(height-4, 3)
	m.viewport.Width = innerW
	m.viewport.Height = innerH
	if m.Record == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.render(innerW))
}

func (m Model) render(width int) string {
	md := Markdown(m.Record)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Update forwards scrolling keys and mouse wheel events to the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail panel. Returns an empty string if no record is set.
func (m Model) View() string {
	if m.Record == nil {
		return ""
	}
	footer := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %3.0f%%", m.viewport.ScrollPercent()*100))
	return stylePanel.Render(lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer))
}

// Markdown describes t as a Markdown document: a field table, the custom
// properties and the raw JSON payload.
func Markdown(t *telemetry.Telemetry) string {
	f := t.Fields()
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %s\n\n", t.Type(), escape(t.Summary()))

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "| %s | %s |\n", name, escape(value))
		}
	}
	row("ID", t.ID())
	row("Name", f.Name)
	if !f.Timestamp.IsZero() {
		row("Time", f.Timestamp.Local().Format(time.RFC3339Nano))
	}
	row("Operation", f.OperationName)
	row("Operation ID", f.OperationID)
	row("Severity", f.Severity)
	row("Result", f.ResponseCode)
	if success, ok := t.Success(); ok {
		row("Success", fmt.Sprint(success))
	}
	if f.Duration > 0 {
		row("Duration", f.Duration.String())
	}

	if len(f.Properties) > 0 {
		b.WriteString("\n## Properties\n\n| Key | Value |\n|---|---|\n")
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", escape(k), escape(f.Properties[k]))
		}
	}

	if f.Raw != "" {
		b.WriteString("\n## Raw\n\n```json\n")
		b.Write(pretty.Pretty([]byte(f.Raw)))
		b.WriteString("```\n")
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
