package store

import (
	"testing"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/keypath"
	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	cases := []struct {
		name  string
		input map[string]any
		want  []overlay.Fragment
	}{
		{name: "nil", input: nil, want: nil},
		{
			name: "nested leaves sorted",
			input: map[string]any{
				"db":   map[string]any{"port": 5432, "host": "localhost"},
				"name": "svc",
			},
			want: []overlay.Fragment{
				{Key: keypath.Path{"db", "host"}, Value: "localhost"},
				{Key: keypath.Path{"db", "port"}, Value: 5432},
				{Key: keypath.Path{"name"}, Value: "svc"},
			},
		},
		{
			name:  "empty map kept as leaf",
			input: map[string]any{"features": map[string]any{}},
			want: []overlay.Fragment{
				{Key: keypath.Path{"features"}, Value: map[string]any{}},
			},
		},
		{
			name:  "slices are leaves",
			input: map[string]any{"hosts": []any{"a", "b"}},
			want: []overlay.Fragment{
				{Key: keypath.Path{"hosts"}, Value: []any{"a", "b"}},
			},
		},
		{
			name:  "any keyed maps",
			input: map[string]any{"limits": map[any]any{1: "one"}},
			want: []overlay.Fragment{
				{Key: keypath.Path{"limits", "1"}, Value: "one"},
			},
		},
		{
			name:  "string keyed typed maps",
			input: map[string]any{"ports": map[string]int{"http": 80, "https": 443}},
			want: []overlay.Fragment{
				{Key: keypath.Path{"ports", "http"}, Value: 80},
				{Key: keypath.Path{"ports", "https"}, Value: 443},
			},
		},
		{
			name:  "dotted keys stay one segment",
			input: map[string]any{"a.b": 1},
			want: []overlay.Fragment{
				{Key: keypath.Path{"a.b"}, Value: 1},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Flatten(tc.input)); diff != "" {
				t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffSkipsEqualValues(t *testing.T) {
	previous := Flatten(map[string]any{"a": 1, "b": []any{1, 2}})
	next := Flatten(map[string]any{"a": 1, "b": []any{1, 2}})
	if changes := Diff(previous, next); len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestDiffCopiesFragments(t *testing.T) {
	previous := []overlay.Fragment{{Key: keypath.Path{"a"}, Value: []any{1}}}
	changes := Diff(previous, nil)
	changes[0].Old.Value.([]any)[0] = 99
	if previous[0].Value.([]any)[0] != 1 {
		t.Fatalf("expected diff to copy fragments")
	}
}
