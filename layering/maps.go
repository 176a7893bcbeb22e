package layering

import (
	"fmt"
	"reflect"
)

// StringMap views value as a map[string]any. A map[string]any is returned
// as is. Other maps with string keys (map[string]int, named string key
// types) and map[any]any are copied into a new map, with interface keys
// rendered by fmt.Sprint. Anything else reports false.
func StringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	keyKind := rv.Type().Key().Kind()
	if keyKind != reflect.String && keyKind != reflect.Interface {
		return nil, false
	}
	if rv.IsNil() {
		return map[string]any{}, true
	}

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key()
		var name string
		if keyKind == reflect.String {
			name = key.String()
		} else {
			name = fmt.Sprint(key.Interface())
		}
		out[name] = iter.Value().Interface()
	}
	return out, true
}
