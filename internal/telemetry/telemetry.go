// Package telemetry defines the classified diagnostic record, its closed
// type set, and the filter set used to derive visible views.
package telemetry

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Fields is the payload of a telemetry record. It is copied in by New and
// copied out by Telemetry.Fields, so a record never shares mutable state
// with its producer or readers.
type Fields struct {
	Timestamp     time.Time
	Name          string // envelope name, e.g. "AppRequests"
	Summary       string // one-line human readable text
	OperationID   string
	OperationName string
	Severity      string
	ResponseCode  string
	Success       *bool // nil when the record carries no outcome
	Duration      time.Duration
	Properties    map[string]string
	Raw           string // original JSON payload
}

func (f Fields) clone() Fields {
	if f.Success != nil {
		v := *f.Success
		f.Success = &v
	}
	if f.Properties != nil {
		f.Properties = maps.Clone(f.Properties)
	}
	return f
}

// Telemetry is one classified event. It is immutable after New returns.
type Telemetry struct {
	id     string
	typ    Type
	fields Fields
}

// New creates a record with a fresh ID. typ is not validated here; the
// session rejects unknown types at ingestion.
func New(typ Type, f Fields) *Telemetry {
	return &Telemetry{
		id:     uuid.NewString(),
		typ:    typ,
		fields: f.clone(),
	}
}

func (t *Telemetry) ID() string { return t.id }

func (t *Telemetry) Type() Type { return t.typ }

func (t *Telemetry) Name() string { return t.fields.Name }

func (t *Telemetry) Summary() string { return t.fields.Summary }

func (t *Telemetry) Timestamp() time.Time { return t.fields.Timestamp }

func (t *Telemetry) Raw() string { return t.fields.Raw }

func (t *Telemetry) Duration() time.Duration { return t.fields.Duration }

// Success reports the outcome and whether the record carries one.
func (t *Telemetry) Success() (success, ok bool) {
	if t.fields.Success == nil {
		return false, false
	}
	return *t.fields.Success, true
}

// Properties returns a copy of the custom properties.
func (t *Telemetry) Properties() map[string]string {
	return maps.Clone(t.fields.Properties)
}

// Fields returns a deep copy of the payload.
func (t *Telemetry) Fields() Fields {
	return t.fields.clone()
}
