// Package vars implements the variable store used by build scripts and the interpolation of
// $name references inside strings.
//
// A Store is created once per run and is not safe for concurrent use.
package vars

import (
	"os"

	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rs/zerolog"
)

// Store maps variable names to values. String values are interpolated whenever they're read
// so that a variable defined as "$other" always reflects the current value of other.
type Store struct {
	names     []string
	values    map[string]value.Value
	logger    zerolog.Logger
	lookupEnv func(string) (string, bool)
	resolving map[string]bool
}

// Option customizes a new Store
type Option func(*Store)

// WithLookupEnv replaces os.LookupEnv as the fallback for names missing from the store
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(s *Store) {
		s.lookupEnv = lookup
	}
}

// New creates an empty store. Diagnostics about unresolved references are written to logger.
func New(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		names:     make([]string, 0),
		values:    make(map[string]value.Value),
		logger:    logger,
		lookupEnv: os.LookupEnv,
		resolving: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores v under name, replacing any previous value
func (s *Store) Set(name string, v value.Value) {
	if _, present := s.values[name]; !present {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Raw returns the stored value without interpolating it
func (s *Store) Raw(name string) (value.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Get returns the value of name. String values are interpolated on every read; other values are
// returned as stored.
func (s *Store) Get(name string) (value.Value, bool) {
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}

	text, isString := v.(value.String)
	if !isString {
		return v, true
	}

	if s.resolving[name] {
		s.logger.Warn().Str("variable", name).Msgf("$%s refers to itself, leaving it unexpanded", name)
		return v, true
	}

	s.resolving[name] = true
	defer delete(s.resolving, name)

	return value.String(s.Interpolate(string(text))), true
}

// ResolveOrEnv looks name up in the store and falls back to the process environment.
func (s *Store) ResolveOrEnv(name string) (value.Value, bool) {
	if v, ok := s.Get(name); ok {
		return v, true
	}

	if env, ok := s.lookupEnv(name); ok {
		return value.String(env), true
	}

	return nil, false
}

// Names returns all variable names in the order they were first set
func (s *Store) Names() []string {
	result := make([]string, len(s.names))
	copy(result, s.names)
	return result
}

func (s *Store) Len() int {
	return len(s.names)
}
