package store

import (
	"reflect"
	"sort"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
)

// Flatten walks a nested map and returns one fragment per leaf, with keys
// visited in sorted order. Empty maps are kept as leaves so they survive a
// fold; slices and scalars are leaves. Maps with string keys of any value
// type are walked like map[string]any. A nil or empty root yields nil.
func Flatten(value map[string]any) []overlay.Fragment {
	if len(value) == 0 {
		return nil
	}
	var fragments []overlay.Fragment
	walk(value, nil, &fragments)
	return fragments
}

func walk(value any, prefix keypath.Path, out *[]overlay.Fragment) {
	nested, ok := layering.StringMap(value)
	if !ok || (len(nested) == 0 && len(prefix) > 0) {
		*out = append(*out, overlay.Fragment{Key: prefix.Clone(), Value: layering.Clone(value)})
		return
	}
	keys := make([]string, 0, len(nested))
	for key := range nested {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		walk(nested[key], append(prefix.Clone(), key), out)
	}
}

// Diff compares two fragment lists by key and returns the changes that turn
// previous into next: removals first in previous order, then additions and
// updates in next order. Fragments with deeply equal values produce no
// change.
func Diff(previous, next []overlay.Fragment) []overlay.Change {
	before := make(map[string]overlay.Fragment, len(previous))
	for _, fragment := range previous {
		before[fragment.Key.String()] = fragment
	}
	after := make(map[string]struct{}, len(next))
	for _, fragment := range next {
		after[fragment.Key.String()] = struct{}{}
	}

	var changes []overlay.Change
	for _, fragment := range previous {
		if _, ok := after[fragment.Key.String()]; ok {
			continue
		}
		changes = append(changes, overlay.Change{Old: ref(fragment.Clone())})
	}
	for _, fragment := range next {
		old, existed := before[fragment.Key.String()]
		if existed && reflect.DeepEqual(old.Value, fragment.Value) {
			continue
		}
		change := overlay.Change{New: ref(fragment.Clone())}
		if existed {
			change.Old = ref(old.Clone())
		}
		changes = append(changes, change)
	}
	return changes
}
