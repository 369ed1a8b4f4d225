// Package theme provides the Lip Gloss color palette and reusable styles
// for the aitail TUI. It is a leaf package apart from the telemetry types.
package theme

import (
	"github.com/aitail/aitail/internal/telemetry"
	"github.com/charmbracelet/lipgloss"
)

// Telemetry type colors.
var (
	ColorMessage    = lipgloss.Color("#9ca3af")
	ColorRequest    = lipgloss.Color("#3b82f6")
	ColorException  = lipgloss.Color("#dc2626")
	ColorEvent      = lipgloss.Color("#a855f7")
	ColorDependency = lipgloss.Color("#06b6d4")
	ColorDefault    = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorInfo    = lipgloss.Color("#2563eb")
)

// TypeColor returns the Lip Gloss color for a telemetry type.
func TypeColor(t telemetry.Type) lipgloss.Color {
	switch t {
	case telemetry.Message:
		return ColorMessage
	case telemetry.Request:
		return ColorRequest
	case telemetry.Exception:
		return ColorException
	case telemetry.Event:
		return ColorEvent
	case telemetry.RemoteDependency:
		return ColorDependency
	default:
		return ColorDefault
	}
}

// TypeLabel returns the fixed-width label used in list badges.
func TypeLabel(t telemetry.Type) string {
	switch t {
	case telemetry.Message:
		return "TRACE"
	case telemetry.Request:
		return "REQ"
	case telemetry.Exception:
		return "EXC"
	case telemetry.Event:
		return "EVENT"
	case telemetry.RemoteDependency:
		return "DEP"
	default:
		return "?"
	}
}

// TypeBadge returns a colored, padded badge for a telemetry type.
func TypeBadge(t telemetry.Type) string {
	return lipgloss.NewStyle().
		Foreground(TypeColor(t)).
		Bold(t == telemetry.Exception).
		Width(5).
		Render(TypeLabel(t))
}

// OutcomeColor colors a request or dependency result.
func OutcomeColor(success, known bool) lipgloss.Color {
	switch {
	case !known:
		return ColorDimmed
	case success:
		return ColorHealthy
	default:
		return ColorDanger
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(lipgloss.Color("#1f2937"))
)
