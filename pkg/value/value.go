// Package value implements the dynamically typed values that flow through variables,
// keyword arguments and interpolation results.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type behind a Value
type Kind int

const (
	StringKind Kind = iota
	IntKind
	FloatKind
	BoolKind
	ListKind
	MapKind
)

func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case ListKind:
		return "list"
	case MapKind:
		return "map"
	}
	return "unknown"
}

// Value is one of String, Int, Float, Bool, List or *Map.
type Value interface {
	Kind() Kind
	// String renders scalars without any quoting. Collections render in their canonical form.
	String() string
}

type (
	String string
	Int    int64
	Float  float64
	Bool   bool
	List   []Value
)

func (String) Kind() Kind { return StringKind }
func (Int) Kind() Kind    { return IntKind }
func (Float) Kind() Kind  { return FloatKind }
func (Bool) Kind() Kind   { return BoolKind }
func (List) Kind() Kind   { return ListKind }

func (s String) String() string { return string(s) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	result := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return result
	}

	// keep a decimal point so the text decodes back into a float
	if !strings.ContainsAny(result, ".e") {
		result += ".0"
	}
	return result
}

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (l List) String() string {
	return Encode(l)
}

// Map is an insertion ordered mapping from string keys to values.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap creates an empty map with room for size entries
func NewMap(size int) *Map {
	return &Map{
		keys:   make([]string, 0, size),
		values: make(map[string]Value, size),
	}
}

func (m *Map) Kind() Kind { return MapKind }

func (m *Map) String() string {
	return Encode(m)
}

// Set adds or replaces key. A replaced key keeps its original position.
func (m *Map) Set(key string, v Value) {
	if _, present := m.values[key]; !present {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}

	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}

	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Equal compares keys, key order and values
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}

	for idx, key := range m.Keys() {
		if other.keys[idx] != key {
			return false
		}

		if !Equal(m.values[key], other.values[key]) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b hold the same kind and contents
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if a.Kind() != b.Kind() {
		return false
	}

	switch a := a.(type) {
	case List:
		other := b.(List)
		if len(a) != len(other) {
			return false
		}
		for idx := range a {
			if !Equal(a[idx], other[idx]) {
				return false
			}
		}
		return true
	case *Map:
		return a.Equal(b.(*Map))
	default:
		return a == b
	}
}

// Lookup indexes into a list or map with the textual key taken from a subscript.
// Lists accept decimal indexes, negative indexes count from the end.
func Lookup(container Value, key string) (Value, bool) {
	switch container := container.(type) {
	case List:
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, false
		}

		if idx < 0 {
			idx += len(container)
		}

		if idx < 0 || idx >= len(container) {
			return nil, false
		}
		return container[idx], true
	case *Map:
		return container.Get(key)
	}

	return nil, false
}
