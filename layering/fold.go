package layering

import "sort"

// Entry is one value addressed by a path inside a nested map.
type Entry struct {
	Path  []string
	Value any
}

// Fold materializes entries into a fresh nested map. Entries are applied in
// ascending path length (stable for equal lengths) so that an ancestor value
// never clobbers a descendant written under it. Values are deep copied.
func Fold(entries []Entry) map[string]any {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Path) < len(ordered[j].Path)
	})

	result := map[string]any{}
	for _, entry := range ordered {
		Assign(result, entry.Path, Clone(entry.Value))
	}
	return result
}

// Assign sets value at path inside root, creating intermediate maps as
// needed. Intermediate maps with string keys are converted to
// map[string]any in place so their entries survive; any other intermediate
// value is replaced. An empty path leaves root untouched. The (possibly
// newly allocated) root is returned.
func Assign(root map[string]any, path []string, value any) map[string]any {
	if root == nil {
		root = map[string]any{}
	}
	if len(path) == 0 {
		return root
	}

	current := root
	for _, segment := range path[:len(path)-1] {
		next, ok := StringMap(current[segment])
		if !ok {
			next = map[string]any{}
		}
		current[segment] = next
		current = next
	}
	current[path[len(path)-1]] = value
	return root
}

// Lookup walks path inside root and reports the value found there.
func Lookup(root map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return root, root != nil
	}
	var current any = root
	for _, segment := range path {
		node, ok := StringMap(current)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
