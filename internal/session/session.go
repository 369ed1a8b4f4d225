// Package session owns the telemetry history of one debugged process and the
// filtered view derived from it.
//
// A Session is fed from producer goroutines and queried or reconfigured from
// a UI goroutine. One lock guards the history, the filtered view and the
// filter set, so the view is always the stable-order filter of the history
// by the current filter set once an operation returns. Change callbacks are
// delivered outside that lock; see notify.go.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aitail/aitail/internal/telemetry"
	"github.com/google/uuid"
)

// ErrNoParser is returned by Ingest on a session created without a parser.
var ErrNoParser = errors.New("session has no parser")

// Stats summarizes the session contents at one instant.
type Stats struct {
	Total   int
	Visible int
	ByType  map[telemetry.Type]int
}

type Session struct {
	id     string
	parser telemetry.Parser

	mu       sync.RWMutex
	history  []*telemetry.Telemetry
	filtered []*telemetry.Telemetry
	filter   telemetry.FilterSet
	counts   map[telemetry.Type]int

	onAdded    AddedFunc
	onReplaced ReplacedFunc
	pending    []notification
	delivering bool
}

// New creates an empty session. Use telemetry.DefaultFilterSet for the usual
// all-visible starting state.
func New(parser telemetry.Parser, filter telemetry.FilterSet) *Session {
	return &Session{
		id:     uuid.NewString(),
		parser: parser,
		filter: filter,
		counts: make(map[telemetry.Type]int),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Ingest classifies raw with the session's parser and stores the result.
// Input the parser does not recognise is ignored. Parser errors are returned
// and leave the session untouched.
func (s *Session) Ingest(raw string) error {
	if s.parser == nil {
		return ErrNoParser
	}
	t, err := s.parser.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return s.Add(t)
}

// Add stores an already classified record. A nil record is a no-op. Records
// of a type outside the closed set are rejected and not stored.
func (s *Session) Add(t *telemetry.Telemetry) error {
	if t == nil {
		return nil
	}
	if !t.Type().Valid() {
		return fmt.Errorf("%w: %d", telemetry.ErrUnknownType, int(t.Type()))
	}

	s.mu.Lock()
	s.history = append(s.history, t)
	s.counts[t.Type()]++
	visible := s.filter.Enabled(t.Type())
	if visible {
		s.filtered = append(s.filtered, t)
		s.enqueueLocked(notification{added: t})
	}
	s.mu.Unlock()

	if visible {
		s.deliver()
	}
	return nil
}

// SetFilterEnabled shows or hides typ and rebuilds the filtered view from the
// full history. Every call rebuilds and notifies, even when the set is
// unchanged.
func (s *Session) SetFilterEnabled(typ telemetry.Type, enabled bool) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %d", telemetry.ErrUnknownType, int(typ))
	}

	s.mu.Lock()
	s.setFilterLocked(typ, enabled)
	s.mu.Unlock()

	s.deliver()
	return nil
}

// ToggleFilter flips typ under the lock and reports its new state. Unlike a
// read followed by SetFilterEnabled, concurrent toggles never collapse into
// one.
func (s *Session) ToggleFilter(typ telemetry.Type) (bool, error) {
	if !typ.Valid() {
		return false, fmt.Errorf("%w: %d", telemetry.ErrUnknownType, int(typ))
	}

	s.mu.Lock()
	enabled := !s.filter.Enabled(typ)
	s.setFilterLocked(typ, enabled)
	s.mu.Unlock()

	s.deliver()
	return enabled, nil
}

func (s *Session) setFilterLocked(typ telemetry.Type, enabled bool) {
	s.filter = s.filter.Set(typ, enabled)
	view := make([]*telemetry.Telemetry, 0, len(s.filtered))
	for _, t := range s.history {
		if s.filter.Enabled(t.Type()) {
			view = append(view, t)
		}
	}
	s.filtered = view
	s.enqueueLocked(notification{replaced: slices.Clone(view), replace: true})
}

func (s *Session) IsTypeEnabled(typ telemetry.Type) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Enabled(typ)
}

func (s *Session) Filter() telemetry.FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// FilteredView returns a copy of the visible records in arrival order.
func (s *Session) FilteredView() []*telemetry.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filtered)
}

// History returns a copy of every record ingested so far.
func (s *Session) History() []*telemetry.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Total:   len(s.history),
		Visible: len(s.filtered),
		ByType:  make(map[telemetry.Type]int, len(telemetry.AllTypes())),
	}
	for _, typ := range telemetry.AllTypes() {
		st.ByType[typ] = s.counts[typ]
	}
	return st
}
