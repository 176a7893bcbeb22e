// Package store provides Store implementations for overlays to wrap.
package store

import (
	"context"
	"sync"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/internal/event"
	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
)

var _ overlay.Store = (*Memory)(nil)

// Memory is an in-process Store holding fragments in insertion order. It is
// safe for concurrent use; listeners run after the write lock is released.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]overlay.Fragment
	closed  bool

	changes *event.Bus[overlay.Change]
}

// NewMemory builds a store seeded with fragments. Later fragments replace
// earlier ones with the same key.
func NewMemory(fragments ...overlay.Fragment) *Memory {
	m := &Memory{
		entries: make(map[string]overlay.Fragment, len(fragments)),
		changes: event.NewBus[overlay.Change](nil),
	}
	for _, fragment := range fragments {
		m.put(normalize(fragment))
	}
	return m
}

// FromValue builds a store from the leaves of a nested map.
func FromValue(value map[string]any) *Memory {
	return NewMemory(Flatten(value)...)
}

// Fragments returns copies of every fragment in insertion order.
func (m *Memory) Fragments() []overlay.Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]overlay.Fragment, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.entries[key].Clone())
	}
	return out
}

// Get returns a copy of the fragment at key.
func (m *Memory) Get(key any) (overlay.Fragment, bool) {
	canonical := keypath.Normalize(key).String()
	m.mu.RLock()
	defer m.mu.RUnlock()
	fragment, ok := m.entries[canonical]
	if !ok {
		return overlay.Fragment{}, false
	}
	return fragment.Clone(), true
}

// Value folds the store's fragments into a nested map.
func (m *Memory) Value() map[string]any {
	fragments := m.Fragments()
	entries := make([]layering.Entry, len(fragments))
	for i, fragment := range fragments {
		entries[i] = layering.Entry{Path: fragment.Key, Value: fragment.Value}
	}
	return layering.Fold(entries)
}

// OnChange subscribes fn to store changes.
func (m *Memory) OnChange(fn overlay.ChangeFunc) overlay.Disposable {
	return m.changes.Subscribe(fn)
}

// Set writes value at key and notifies subscribers.
func (m *Memory) Set(key any, value any) {
	fragment := overlay.Fragment{Key: keypath.Normalize(key), Value: layering.Clone(value)}

	m.mu.Lock()
	previous, existed := m.entries[fragment.Key.String()]
	m.put(fragment)
	m.mu.Unlock()

	change := overlay.Change{New: ref(fragment.Clone())}
	if existed {
		change.Old = ref(previous)
	}
	m.emit(change)
}

// Delete removes key and notifies subscribers. Deleting a missing key is a
// no-op.
func (m *Memory) Delete(key any) {
	canonical := keypath.Normalize(key).String()

	m.mu.Lock()
	previous, existed := m.entries[canonical]
	if existed {
		m.drop(canonical)
	}
	m.mu.Unlock()

	if existed {
		m.emit(overlay.Change{Old: ref(previous)})
	}
}

// Replace swaps the whole content for fragments and emits one change per
// key that was added, removed or changed. It returns the emitted changes.
func (m *Memory) Replace(fragments []overlay.Fragment) []overlay.Change {
	next := make([]overlay.Fragment, 0, len(fragments))
	for _, fragment := range fragments {
		next = append(next, normalize(fragment))
	}

	m.mu.Lock()
	previous := make([]overlay.Fragment, 0, len(m.order))
	for _, key := range m.order {
		previous = append(previous, m.entries[key])
	}
	m.order = nil
	m.entries = make(map[string]overlay.Fragment, len(next))
	for _, fragment := range next {
		m.put(fragment)
	}
	current := make([]overlay.Fragment, 0, len(m.order))
	for _, key := range m.order {
		current = append(current, m.entries[key])
	}
	m.mu.Unlock()

	changes := Diff(previous, current)
	for _, change := range changes {
		m.emit(change)
	}
	return changes
}

// Len returns the number of fragments.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Close stops notifications. Data stays readable. Close is idempotent.
func (m *Memory) Close(context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.changes.Reset()
	return nil
}

func (m *Memory) emit(change overlay.Change) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}
	m.changes.Emit(change)
}

// put must be called with the write lock held.
func (m *Memory) put(fragment overlay.Fragment) {
	canonical := fragment.Key.String()
	if _, ok := m.entries[canonical]; !ok {
		m.order = append(m.order, canonical)
	}
	m.entries[canonical] = fragment
}

// drop must be called with the write lock held.
func (m *Memory) drop(canonical string) {
	delete(m.entries, canonical)
	for i, key := range m.order {
		if key == canonical {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func normalize(fragment overlay.Fragment) overlay.Fragment {
	return overlay.Fragment{
		Key:   keypath.Normalize(fragment.Key),
		Value: layering.Clone(fragment.Value),
	}
}

func ref(fragment overlay.Fragment) *overlay.Fragment {
	return &fragment
}
