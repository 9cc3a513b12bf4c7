// Package config resolves module settings from flat, upper-case key/value
// configuration. Keys follow the NAMESPACE_MODULENAME_KEY convention; a module
// requested without a namespace reads MODULENAME_KEY.
//
// A Source is assembled once from feeders (see package feeders) and is then
// read-only. Modules read it through a Getter bound to their namespace and
// name:
//
//	g := src.Getter("primary", "cache")
//	size := config.GetOr(g, "max_size", 1000) // PRIMARY_CACHE_MAX_SIZE
//	dsn, err := config.Require[string](g, "dsn")
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/majordome-go/majordome/feeders"
)

// Logger receives warnings about values that could not be parsed.
type Logger interface {
	Warn(msg string, args ...any)
}

// Entry documents one key a module asked for.
type Entry struct {
	Key      string
	Default  string
	Required bool
}

// Source is a resolved set of configuration values.
type Source struct {
	values map[string]string

	mu       sync.Mutex
	declared map[string]Entry
	logger   Logger
}

// Load builds a Source from feeders. Earlier feeders win over later ones.
func Load(fs ...feeders.Feeder) (*Source, error) {
	values := make(map[string]string)
	for i, f := range fs {
		if err := f.Feed(values); err != nil {
			return nil, fmt.Errorf("config feeder %d (%T): %w", i, f, err)
		}
	}
	return newSource(values), nil
}

// FromMap builds a Source from a fixed map. Keys are normalised.
func FromMap(m map[string]string) *Source {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[feeders.NormalizeKey(k)] = v
	}
	return newSource(values)
}

func newSource(values map[string]string) *Source {
	return &Source{
		values:   values,
		declared: make(map[string]Entry),
	}
}

// SetLogger sets the logger used for parse warnings.
func (s *Source) SetLogger(l Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// Lookup returns the raw value of key.
func (s *Source) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of values in the source.
func (s *Source) Len() int {
	return len(s.values)
}

// Getter returns an accessor for the module called name, requested under
// namespace (which may be empty).
func (s *Source) Getter(namespace, name string) *Getter {
	return &Getter{src: s, namespace: namespace, name: name}
}

// Declared lists every key modules asked for, sorted by key.
func (s *Source) Declared() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.declared))
	for _, e := range s.declared {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Source) declare(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared[e.Key] = e
}

func (s *Source) warn(msg string, args ...any) {
	s.mu.Lock()
	l := s.logger
	s.mu.Unlock()
	if l != nil {
		l.Warn(msg, args...)
	}
}
