package registry

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/zero-day-ai/aitool"
	"github.com/zero-day-ai/aitool/descriptor"
)

// Snapshot is an immutable id → descriptor mapping. Once constructed it
// is never mutated; reload replaces the whole snapshot.
type Snapshot struct {
	byID    map[string]*descriptor.Descriptor
	byName  map[string]*descriptor.Descriptor
	ordered []*descriptor.Descriptor
}

// NewSnapshot builds a snapshot from descriptors, rejecting duplicate
// ids: id uniqueness within one snapshot is the registry's invariant,
// so a duplicate is a configuration error, not a silent overwrite.
func NewSnapshot(descriptors []*descriptor.Descriptor) (*Snapshot, error) {
	byID := make(map[string]*descriptor.Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if _, exists := byID[d.ID]; exists {
			return nil, &aitool.Error{
				Op:      "registry.NewSnapshot",
				Kind:    aitool.KindConfiguration,
				Err:     fmt.Errorf("%w: %q", aitool.ErrDuplicateID, d.ID),
				Context: map[string]any{"tool_id": d.ID},
			}
		}
		byID[d.ID] = d
	}

	ordered := make([]*descriptor.Descriptor, 0, len(byID))
	for _, d := range byID {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	// Names are not required to be unique across tools; the lowest id
	// wins a collision so name lookups stay deterministic.
	byName := make(map[string]*descriptor.Descriptor, len(ordered))
	for _, d := range ordered {
		if _, exists := byName[d.Name]; !exists {
			byName[d.Name] = d
		}
	}

	return &Snapshot{byID: byID, byName: byName, ordered: ordered}, nil
}

// Lookup returns the descriptor for an id. The signature matches
// engine.LookupFunc so a snapshot can serve as a fallback context.
func (s *Snapshot) Lookup(id string) (*descriptor.Descriptor, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// All returns the descriptors ordered by id. Callers must not modify
// the returned descriptors.
func (s *Snapshot) All() []*descriptor.Descriptor {
	out := make([]*descriptor.Descriptor, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// LookupByName returns the descriptor with the given tool name. When
// several tools share a name, the one with the lowest id is returned.
func (s *Snapshot) LookupByName(name string) (*descriptor.Descriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Categories returns the sorted set of categories present in the
// snapshot.
func (s *Snapshot) Categories() []descriptor.Category {
	seen := make(map[descriptor.Category]bool)
	var out []descriptor.Category
	for _, d := range s.ordered {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of descriptors in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byID)
}

// Store publishes the current snapshot to concurrent readers. Swapping
// is atomic; readers always see either the old or the new complete set.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store serving the given snapshot, or an empty
// snapshot when nil.
func NewStore(initial *Snapshot) *Store {
	if initial == nil {
		initial = &Snapshot{byID: map[string]*descriptor.Descriptor{}}
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the snapshot being served.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap atomically replaces the served snapshot and returns the previous
// one. In-flight invocations keep reading the snapshot they started with.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	if next == nil {
		next = &Snapshot{byID: map[string]*descriptor.Descriptor{}}
	}
	return s.current.Swap(next)
}

// Lookup resolves an id against the current snapshot. The signature
// matches engine.LookupFunc.
func (s *Store) Lookup(id string) (*descriptor.Descriptor, bool) {
	return s.Current().Lookup(id)
}
