package telemetry

import (
	"fmt"
	"strings"
)

// FilterSet is the set of types currently visible. The zero value is empty.
type FilterSet uint8

// DefaultFilterSet enables every known type.
func DefaultFilterSet() FilterSet {
	var f FilterSet
	for _, t := range AllTypes() {
		f = f.With(t)
	}
	return f
}

// NewFilterSet builds a set from types, rejecting anything outside the
// closed Type set.
func NewFilterSet(types ...Type) (FilterSet, error) {
	var f FilterSet
	for _, t := range types {
		if !t.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
		}
		f = f.With(t)
	}
	return f, nil
}

func (f FilterSet) Enabled(t Type) bool {
	if !t.Valid() {
		return false
	}
	return f&(1<<uint(t)) != 0
}

// With returns f plus t. Invalid types leave f unchanged.
func (f FilterSet) With(t Type) FilterSet {
	if !t.Valid() {
		return f
	}
	return f | 1<<uint(t)
}

// Without returns f minus t. Invalid types leave f unchanged.
func (f FilterSet) Without(t Type) FilterSet {
	if !t.Valid() {
		return f
	}
	return f &^ (1 << uint(t))
}

// Set returns f with t enabled or disabled.
func (f FilterSet) Set(t Type, enabled bool) FilterSet {
	if enabled {
		return f.With(t)
	}
	return f.Without(t)
}

func (f FilterSet) Types() []Type {
	var types []Type
	for _, t := range AllTypes() {
		if f.Enabled(t) {
			types = append(types, t)
		}
	}
	return types
}

func (f FilterSet) String() string {
	types := f.Types()
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}
