// Package category maps raw destination labels of a call log onto the
// group names a report is broken down by.
package category

import (
	"sort"
	"sync/atomic"
)

// Entry is one label to group definition, in table order.
type Entry struct {
	Label string `yaml:"label" json:"label"`
	Group string `yaml:"group" json:"group"`
}

// Duplicate records a label that was defined more than once. Effective is
// the group that won, which is always the later definition.
type Duplicate struct {
	Label     string `json:"label"`
	Previous  string `json:"previous"`
	Effective string `json:"effective"`
}

// Mapper resolves a destination label to its group.
type Mapper interface {
	GroupOf(label string) (string, bool)
}

// Map is an immutable lookup built from an ordered entry list. Labels are
// matched by exact string equality.
type Map struct {
	groups     map[string]string
	order      []string
	duplicates []Duplicate
}

// New builds a Map. When a label repeats, the last definition wins and the
// redefinition is recorded in Duplicates.
func New(entries []Entry) *Map {
	m := &Map{groups: make(map[string]string, len(entries))}
	for _, e := range entries {
		if prev, ok := m.groups[e.Label]; ok {
			m.duplicates = append(m.duplicates, Duplicate{
				Label:     e.Label,
				Previous:  prev,
				Effective: e.Group,
			})
		} else {
			m.order = append(m.order, e.Label)
		}
		m.groups[e.Label] = e.Group
	}
	return m
}

// GroupOf implements Mapper.
func (m *Map) GroupOf(label string) (string, bool) {
	g, ok := m.groups[label]
	return g, ok
}

// Len returns the number of distinct labels.
func (m *Map) Len() int { return len(m.groups) }

// Entries returns the effective mapping, one entry per label in the order
// labels were first defined.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, label := range m.order {
		out = append(out, Entry{Label: label, Group: m.groups[label]})
	}
	return out
}

// Duplicates returns every redefinition seen while building the map.
func (m *Map) Duplicates() []Duplicate {
	return append([]Duplicate(nil), m.duplicates...)
}

// Groups returns the sorted distinct effective group names.
func (m *Map) Groups() []string {
	seen := make(map[string]struct{}, len(m.groups))
	out := make([]string, 0)
	for _, g := range m.groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Store holds the current Map and allows it to be replaced while readers
// keep using it.
type Store struct {
	current atomic.Pointer[Map]
}

// NewStore creates a Store serving m.
func NewStore(m *Map) *Store {
	s := &Store{}
	s.current.Store(m)
	return s
}

// Current returns the Map in effect.
func (s *Store) Current() *Map { return s.current.Load() }

// Replace swaps in a new Map.
func (s *Store) Replace(m *Map) { s.current.Store(m) }

// GroupOf implements Mapper against the current Map.
func (s *Store) GroupOf(label string) (string, bool) {
	return s.Current().GroupOf(label)
}
