// Package list renders telemetry records as single lines.
package list

import (
	"fmt"
	"strings"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
	"github.com/aitail/aitail/internal/tui/theme"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const timeLayout = "15:04:05.000"

// Line renders one record: timestamp, type badge, summary and, for requests
// and dependencies, duration. The result never exceeds width cells.
func Line(t *telemetry.Telemetry, width int) string {
	ts := "--:--:--.---"
	if !t.Timestamp().IsZero() {
		ts = t.Timestamp().Local().Format(timeLayout)
	}

	summary := t.Summary()
	if d := t.Duration(); d > 0 {
		summary += fmt.Sprintf(" (%s)", d.Round(100*time.Microsecond))
	}
	summaryStyle := lipgloss.NewStyle()
	if success, ok := t.Success(); ok && !success {
		summaryStyle = summaryStyle.Foreground(theme.ColorDanger)
	}

	line := theme.StyleDimmed.Render(ts) + " " +
		theme.TypeBadge(t.Type()) + " " +
		summaryStyle.Render(oneLine(summary))
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Window returns the [start, end) range of a list of n rows, height rows
// tall, that keeps selected visible and roughly centered.
func Window(n, height, selected int) (start, end int) {
	if height <= 0 || n == 0 {
		return 0, 0
	}
	if n <= height {
		return 0, n
	}
	start = selected - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}
