package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/aitail/aitail/internal/session"
	"github.com/aitail/aitail/internal/source"
	"github.com/aitail/aitail/internal/telemetry"
	"github.com/aitail/aitail/internal/tui/theme"
	"github.com/aitail/aitail/internal/tui/views/debug"
	"github.com/aitail/aitail/internal/tui/views/detail"
	"github.com/aitail/aitail/internal/tui/views/list"
	"github.com/aitail/aitail/internal/tui/views/status"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const healthInterval = time.Second

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayDebug
)

// Controller is the part of the session the UI drives.
type Controller interface {
	ID() string
	ToggleFilter(t telemetry.Type) (bool, error)
	IsTypeEnabled(t telemetry.Type) bool
	Filter() telemetry.FilterSet
	FilteredView() []*telemetry.Telemetry
	Stats() session.Stats
}

// HealthReporter reports per-source health; *source.Pump satisfies it.
type HealthReporter interface {
	Health() []source.Health
}

// --- Bubble Tea messages ---

// AddedMsg carries a record that was added to the filtered view.
type AddedMsg struct{ Record *telemetry.Telemetry }

// ReplacedMsg carries a full filtered view after a filter change.
type ReplacedMsg struct{ View []*telemetry.Telemetry }

// SourceErrorMsg reports a parse or source failure.
type SourceErrorMsg struct {
	Source string
	Err    error
}

// SourcesDoneMsg is sent once every source has returned.
type SourcesDoneMsg struct{ Err error }

type healthTickMsg time.Time

type filterChangedMsg struct {
	typ     telemetry.Type
	enabled bool
	err     error
}

// Callbacks adapts session notifications into program messages. send is
// normally tea.Program.Send, which blocks until the event loop receives the
// message, so the session must never be mutated from inside Update.
func Callbacks(send func(tea.Msg)) (session.AddedFunc, session.ReplacedFunc) {
	onAdded := func(t *telemetry.Telemetry) {
		send(AddedMsg{Record: t})
	}
	onReplaced := func(view []*telemetry.Telemetry) {
		send(ReplacedMsg{View: view})
	}
	return onAdded, onReplaced
}

// ErrorHook forwards pump errors into the program.
func ErrorHook(send func(tea.Msg)) source.ErrorHook {
	return func(src string, err error) {
		send(SourceErrorMsg{Source: src, Err: err})
	}
}

// Options configure the root model.
type Options struct {
	// Process describes the watched process for the status bar.
	Process     string
	DetailStyle string
	Follow      bool
	Health      HealthReporter
}

// Model is the root Bubble Tea model.
type Model struct {
	ctl    Controller
	health HealthReporter

	keys   KeyMap
	width  int
	height int

	// Local copy of the filtered view, in session order.
	records []*telemetry.Telemetry
	ids     map[string]struct{}

	// Navigation.
	selected int
	follow   bool
	overlay  Overlay

	// Sub-views.
	statusBar status.Model
	detail    detail.Model
	debugLog  debug.Model

	lastStatus  map[string]source.Status
	sourcesDone bool
}

// New creates the root model, seeded with the controller's current view.
func New(ctl Controller, opts Options) Model {
	m := Model{
		ctl:        ctl,
		health:     opts.Health,
		keys:       DefaultKeyMap(),
		follow:     opts.Follow,
		statusBar:  status.New(ctl.ID()),
		detail:     detail.New(opts.DetailStyle),
		debugLog:   debug.New(),
		lastStatus: make(map[string]source.Status),
	}
	m.statusBar.Process = opts.Process
	m.replace(ctl.FilteredView())
	return m
}

// Init starts the health ticker.
func (m Model) Init() tea.Cmd {
	return healthTick()
}

func healthTick() tea.Cmd {
	return tea.Tick(healthInterval, func(t time.Time) tea.Msg {
		return healthTickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		if m.overlay == OverlayDetail {
			m.detail.Resize(msg.Width, m.bodyHeight())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.overlay == OverlayDetail {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		return m, nil

	case AddedMsg:
		m.add(msg.Record)
		return m, nil

	case ReplacedMsg:
		m.replace(msg.View)
		return m, nil

	case filterChangedMsg:
		if msg.err != nil {
			m.debugLog.Add(debug.KindFilter, "filter change failed: "+msg.err.Error())
		} else {
			state := "disabled"
			if msg.enabled {
				state = "enabled"
			}
			m.debugLog.Add(debug.KindFilter, fmt.Sprintf("%s %s", msg.typ, state))
		}
		m.refreshStatus()
		return m, nil

	case SourceErrorMsg:
		m.debugLog.Add(debug.KindParse, fmt.Sprintf("%s: %v", msg.Source, msg.Err))
		return m, nil

	case SourcesDoneMsg:
		m.sourcesDone = true
		text := "all sources ended"
		if msg.Err != nil {
			text += ": " + msg.Err.Error()
		}
		m.debugLog.Add(debug.KindSource, text)
		m.pollHealth()
		return m, nil

	case healthTickMsg:
		m.pollHealth()
		return m, healthTick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayDetail:
		if key.Matches(msg, m.keys.Escape) {
			m.overlay = OverlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.debugLog.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debugLog.ScrollDown(1)
		}
		return m, nil
	}

	for i, b := range m.keys.Toggle {
		if key.Matches(msg, b) {
			return m, m.toggleFilter(telemetry.AllTypes()[i])
		}
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.move(max(m.listHeight()-1, 1))
	case key.Matches(msg, m.keys.PageUp):
		m.move(-max(m.listHeight()-1, 1))
	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.selectLast()
	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		if m.follow {
			m.selectLast()
		}
	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
	case key.Matches(msg, m.keys.Enter):
		if rec := m.Selected(); rec != nil {
			m.detail.Show(rec, m.width, m.bodyHeight())
			m.overlay = OverlayDetail
		}
	}
	m.statusBar.Follow = m.follow
	return m, nil
}

// toggleFilter flips one type off the event loop: the session delivers the
// resulting ReplacedMsg through Program.Send, which would block forever if
// called from inside Update.
func (m Model) toggleFilter(t telemetry.Type) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		enabled, err := ctl.ToggleFilter(t)
		return filterChangedMsg{typ: t, enabled: enabled, err: err}
	}
}

func (m *Model) add(t *telemetry.Telemetry) {
	if t == nil {
		return
	}
	if _, dup := m.ids[t.ID()]; dup {
		return
	}
	m.ids[t.ID()] = struct{}{}
	m.records = append(m.records, t)
	if m.follow {
		m.selectLast()
	}
	m.refreshStatus()
}

func (m *Model) replace(view []*telemetry.Telemetry) {
	var keep string
	if rec := m.Selected(); rec != nil {
		keep = rec.ID()
	}

	m.records = view
	m.ids = make(map[string]struct{}, len(view))
	for _, t := range view {
		m.ids[t.ID()] = struct{}{}
	}

	switch {
	case m.follow:
		m.selectLast()
	default:
		m.selected = min(m.selected, max(len(m.records)-1, 0))
		for i, t := range m.records {
			if t.ID() == keep {
				m.selected = i
				break
			}
		}
	}
	m.refreshStatus()
}

func (m *Model) move(delta int) {
	if len(m.records) == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.records)-1)
	m.follow = m.selected == len(m.records)-1 && m.follow
}

func (m *Model) selectLast() {
	m.selected = max(len(m.records)-1, 0)
}

func (m *Model) refreshStatus() {
	m.statusBar.Stats = m.ctl.Stats()
	m.statusBar.Filter = m.ctl.Filter()
	m.statusBar.Follow = m.follow
}

func (m *Model) pollHealth() {
	if m.health == nil {
		return
	}
	hs := m.health.Health()
	for _, h := range hs {
		prev, seen := m.lastStatus[h.Source]
		if (seen && prev != h.Status) || (!seen && h.Status != source.StatusHealthy) {
			text := fmt.Sprintf("%s: %s", h.Source, h.Status)
			if h.LastError != "" && h.Status != source.StatusStopped {
				text += " (" + h.LastError + ")"
			}
			m.debugLog.Add(debug.KindHealth, text)
		}
		m.lastStatus[h.Source] = h.Status
	}
	m.statusBar.Health = hs
}

// Selected returns the highlighted record, or nil when the view is empty.
func (m Model) Selected() *telemetry.Telemetry {
	if m.selected < 0 || m.selected >= len(m.records) {
		return nil
	}
	return m.records[m.selected]
}

// Records returns the model's copy of the filtered view.
func (m Model) Records() []*telemetry.Telemetry {
	return m.records
}

func (m Model) bodyHeight() int {
	// Status bar is four rows with its border; help is one.
	return max(m.height-5, 3)
}

func (m Model) listHeight() int {
	return m.bodyHeight()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayDetail:
		body = m.detail.View()
	case OverlayDebug:
		body = m.debugLog.View(m.width, m.bodyHeight())
	default:
		body = m.renderList()
	}

	help := "  j/k:move  g/G:oldest/newest  enter:detail  1-5:filter  f:follow  d:debug  q:quit"
	if m.sourcesDone {
		help += "  (sources ended)"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		body,
		theme.StyleDimmed.Render(help),
	)
}

func (m Model) renderList() string {
	height := m.listHeight()
	if len(m.records) == 0 {
		msg := "  Waiting for telemetry..."
		if m.ctl.Filter() == 0 {
			msg = "  All types are filtered out. Press 1-5 to enable one."
		}
		return lipgloss.NewStyle().Height(height).Render(theme.StyleDimmed.Render(msg))
	}

	start, end := list.Window(len(m.records), height, m.selected)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		prefix := "  "
		if i == m.selected {
			prefix = "> "
		}
		lines = append(lines, prefix+list.Line(m.records[i], m.width-2))
	}
	return lipgloss.NewStyle().Height(height).Render(strings.Join(lines, "\n"))
}
