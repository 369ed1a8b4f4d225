package app

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aitail/aitail/internal/session"
	"github.com/aitail/aitail/internal/source"
	"github.com/aitail/aitail/internal/telemetry"
	tea "github.com/charmbracelet/bubbletea"
)

// typeParser turns "Request:text" into a Request record, and so on.
var typeParser = telemetry.ParserFunc(func(raw string) (*telemetry.Telemetry, error) {
	name, text, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, nil
	}
	typ, err := telemetry.ParseType(name)
	if err != nil {
		return nil, nil
	}
	return telemetry.New(typ, telemetry.Fields{Summary: text}), nil
})

// mailbox stands in for tea.Program.Send.
type mailbox struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (b *mailbox) send(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

// drain feeds every queued message through Update.
func (b *mailbox) drain(m Model) Model {
	b.mu.Lock()
	msgs := b.msgs
	b.msgs = nil
	b.mu.Unlock()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func newTestModel(t *testing.T, lines ...string) (Model, *session.Session, *mailbox) {
	t.Helper()
	s := session.New(typeParser, telemetry.DefaultFilterSet())
	box := &mailbox{}
	m := New(s, Options{Follow: true, DetailStyle: "notty"})
	s.Subscribe(Callbacks(box.send))
	for _, l := range lines {
		if err := s.Ingest(l); err != nil {
			t.Fatal(err)
		}
	}
	m = box.drain(m)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), s, box
}

func press(m Model, keys string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func summaries(recs []*telemetry.Telemetry) string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Summary())
	}
	return strings.Join(out, ",")
}

func TestAddedMessagesBuildView(t *testing.T) {
	m, _, _ := newTestModel(t, "Request:r1", "noise", "Message:m1", "Exception:e1")

	if got := summaries(m.Records()); got != "r1,m1,e1" {
		t.Errorf("records = %q", got)
	}
	if sel := m.Selected(); sel == nil || sel.Summary() != "e1" {
		t.Errorf("follow should select newest, got %v", sel)
	}
	if m.statusBar.Stats.Total != 3 {
		t.Errorf("status total = %d", m.statusBar.Stats.Total)
	}

	v := m.View()
	for _, want := range []string{"r1", "m1", "e1", "3/3 shown"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAddedDeduplicatesByID(t *testing.T) {
	m, s, _ := newTestModel(t, "Request:r1")
	rec := s.FilteredView()[0]

	next, _ := m.Update(AddedMsg{Record: rec})
	m = next.(Model)
	if n := len(m.Records()); n != 1 {
		t.Errorf("records = %d after duplicate AddedMsg, want 1", n)
	}
}

func TestSeededFromExistingView(t *testing.T) {
	s := session.New(typeParser, telemetry.DefaultFilterSet())
	s.Ingest("Event:before")
	m := New(s, Options{})
	if got := summaries(m.Records()); got != "before" {
		t.Errorf("records = %q", got)
	}
}

func TestToggleFilterRunsOffLoop(t *testing.T) {
	m, s, box := newTestModel(t, "Request:r1", "Message:m1", "Request:r2")

	// "2" toggles Request. The session must not change until the command runs.
	m, cmd := press(m, "2")
	if cmd == nil {
		t.Fatal("toggle returned no command")
	}
	if !s.IsTypeEnabled(telemetry.Request) {
		t.Fatal("filter changed inside Update")
	}

	msg := cmd()
	if s.IsTypeEnabled(telemetry.Request) {
		t.Fatal("command did not disable Request")
	}
	m = box.drain(m)
	next, _ := m.Update(msg)
	m = next.(Model)

	if got := summaries(m.Records()); got != "m1" {
		t.Errorf("records after disable = %q", got)
	}
	if m.statusBar.Filter.Enabled(telemetry.Request) {
		t.Error("status bar still shows Request enabled")
	}
	last := m.debugLog.Entries[len(m.debugLog.Entries)-1]
	if !strings.Contains(last.Message, "Request disabled") {
		t.Errorf("debug entry = %q", last.Message)
	}

	// Re-enable restores history order.
	m, cmd = press(m, "2")
	msg = cmd()
	m = box.drain(m)
	next, _ = m.Update(msg)
	m = next.(Model)
	if got := summaries(m.Records()); got != "r1,m1,r2" {
		t.Errorf("records after enable = %q", got)
	}
}

func TestRapidTogglesBothApply(t *testing.T) {
	m, s, box := newTestModel(t, "Request:r1", "Message:m1")

	// Two presses before either command runs; the commands then race.
	m, first := press(m, "2")
	m, second := press(m, "2")
	msgs := make(chan tea.Msg, 2)
	var wg sync.WaitGroup
	for _, cmd := range []tea.Cmd{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs <- cmd()
		}()
	}
	wg.Wait()
	close(msgs)

	if !s.IsTypeEnabled(telemetry.Request) {
		t.Fatal("second toggle was lost")
	}
	m = box.drain(m)
	for msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	if got := summaries(m.Records()); got != "r1,m1" {
		t.Errorf("records = %q, want r1,m1", got)
	}
}

func TestNavigationAndFollow(t *testing.T) {
	m, s, box := newTestModel(t, "Event:a", "Event:b", "Event:c")

	m, _ = press(m, "k")
	if m.Selected().Summary() != "b" || m.follow {
		t.Fatalf("after k: selected %q follow %v", m.Selected().Summary(), m.follow)
	}

	// New records do not move the selection while not following.
	s.Ingest("Event:d")
	m = box.drain(m)
	if m.Selected().Summary() != "b" {
		t.Errorf("selection moved to %q", m.Selected().Summary())
	}

	m, _ = press(m, "g")
	if m.Selected().Summary() != "a" {
		t.Errorf("g selected %q", m.Selected().Summary())
	}
	m, _ = press(m, "G")
	if m.Selected().Summary() != "d" || !m.follow {
		t.Errorf("G selected %q follow %v", m.Selected().Summary(), m.follow)
	}

	m, _ = press(m, "f")
	if m.follow {
		t.Error("f should turn follow off")
	}
}

func TestReplaceKeepsSelectedRecord(t *testing.T) {
	m, s, box := newTestModel(t, "Message:m1", "Request:r1", "Message:m2", "Request:r2")
	m, _ = press(m, "k") // m2, follow off

	if err := s.SetFilterEnabled(telemetry.Request, false); err != nil {
		t.Fatal(err)
	}
	m = box.drain(m)
	if sel := m.Selected(); sel == nil || sel.Summary() != "m2" {
		t.Errorf("selected = %v, want m2", sel)
	}
}

func TestDetailOverlay(t *testing.T) {
	m, _, _ := newTestModel(t, "Exception:boom")

	m, _ = press(m, "enter")
	if m.overlay != OverlayDetail {
		t.Fatal("enter should open the detail overlay")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("detail view missing summary")
	}

	m, _ = press(m, "esc")
	if m.overlay != OverlayNone {
		t.Error("esc should close the overlay")
	}
}

func TestDetailOnEmptyViewStaysClosed(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = press(m, "enter")
	if m.overlay != OverlayNone {
		t.Error("detail opened with no records")
	}
	if !strings.Contains(m.View(), "Waiting for telemetry") {
		t.Error("empty view should show waiting message")
	}
}

func TestSourceErrorsLogged(t *testing.T) {
	m, _, box := newTestModel(t)
	hook := ErrorHook(box.send)
	hook("file:app.log", errors.New("parse: malformed telemetry payload"))
	m = box.drain(m)

	m, _ = press(m, "d")
	if m.overlay != OverlayDebug {
		t.Fatal("d should open the debug overlay")
	}
	if !strings.Contains(m.View(), "malformed telemetry payload") {
		t.Error("debug overlay missing the error")
	}
}

type fakeHealth struct{ hs []source.Health }

func (f *fakeHealth) Health() []source.Health { return f.hs }

func TestHealthTransitionsLogged(t *testing.T) {
	s := session.New(typeParser, telemetry.DefaultFilterSet())
	fh := &fakeHealth{hs: []source.Health{{Source: "demo", Status: source.StatusHealthy}}}
	m := New(s, Options{Health: fh})

	next, _ := m.Update(healthTickMsg{})
	m = next.(Model)
	if len(m.debugLog.Entries) != 0 {
		t.Errorf("healthy source logged: %+v", m.debugLog.Entries)
	}

	fh.hs = []source.Health{{Source: "demo", Status: source.StatusDegraded, LastError: "bad json"}}
	next, _ = m.Update(healthTickMsg{})
	m = next.(Model)
	if len(m.debugLog.Entries) != 1 || !strings.Contains(m.debugLog.Entries[0].Message, "degraded (bad json)") {
		t.Errorf("entries = %+v", m.debugLog.Entries)
	}
	if len(m.statusBar.Health) != 1 {
		t.Error("status bar health not updated")
	}
}
