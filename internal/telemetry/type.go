package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a value outside the closed Type set
// reaches an API that classifies or filters telemetry.
var ErrUnknownType = errors.New("unknown telemetry type")

// Type classifies a telemetry record. The set is closed; numTypes bounds it.
type Type int

const (
	Message Type = iota
	Request
	Exception
	Event
	RemoteDependency

	numTypes
)

var typeNames = map[Type]string{
	Message:          "Message",
	Request:          "Request",
	Exception:        "Exception",
	Event:            "Event",
	RemoteDependency: "RemoteDependency",
}

var typeFromName = map[string]Type{
	"message":           Message,
	"request":           Request,
	"exception":         Exception,
	"event":             Event,
	"remotedependency":  RemoteDependency,
	"remote_dependency": RemoteDependency,
	"dependency":        RemoteDependency,
}

// AllTypes returns every known type in declaration order.
func AllTypes() []Type {
	types := make([]Type, 0, numTypes)
	for t := Type(0); t < numTypes; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	return t >= 0 && t < numTypes
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseType resolves a display name or config key (case-insensitive).
func ParseType(s string) (Type, error) {
	if t, ok := typeFromName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
