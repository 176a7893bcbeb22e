package overlay

import (
	"container/list"

	"github.com/goliatone/go-overlay/keypath"
)

// overrideSet holds at most one override per canonical key. Entries are
// indexed by the canonical key rendering and threaded through a list that
// records insertion order, so lookup and removal are O(1) and snapshots
// iterate deterministically.
//
// overrideSet is not safe for concurrent use; Overlay guards it.
type overrideSet struct {
	index map[string]*list.Element
	order *list.List
}

func newOverrideSet(seed []Fragment) *overrideSet {
	s := &overrideSet{
		index: make(map[string]*list.Element, len(seed)),
		order: list.New(),
	}
	for _, fragment := range seed {
		s.remove(fragment.Key)
		s.add(fragment)
	}
	return s
}

func canonicalKey(key any) string {
	return keypath.Normalize(key).String()
}

func (s *overrideSet) find(key any) (Fragment, bool) {
	elem, ok := s.index[canonicalKey(key)]
	if !ok {
		return Fragment{}, false
	}
	return elem.Value.(Fragment), true
}

func (s *overrideSet) exists(key any) bool {
	_, ok := s.index[canonicalKey(key)]
	return ok
}

// remove deletes the override matching key. Missing keys are a no-op.
func (s *overrideSet) remove(key any) {
	id := canonicalKey(key)
	elem, ok := s.index[id]
	if !ok {
		return
	}
	s.order.Remove(elem)
	delete(s.index, id)
}

// add inserts fragment. Callers remove any existing entry for the same key
// first; a duplicate add overwrites in place.
func (s *overrideSet) add(fragment Fragment) {
	id := fragment.Key.String()
	if elem, ok := s.index[id]; ok {
		elem.Value = fragment
		return
	}
	s.index[id] = s.order.PushBack(fragment)
}

// snapshot returns deep copies of the overrides in insertion order.
func (s *overrideSet) snapshot() []Fragment {
	out := make([]Fragment, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(Fragment).Clone())
	}
	return out
}

// reset empties the set and returns the removed overrides in insertion
// order.
func (s *overrideSet) reset() []Fragment {
	removed := make([]Fragment, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		removed = append(removed, elem.Value.(Fragment))
	}
	s.index = make(map[string]*list.Element)
	s.order.Init()
	return removed
}

func (s *overrideSet) len() int {
	return s.order.Len()
}
