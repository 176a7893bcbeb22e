package keypath

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type label string

func (l label) String() string { return string(l) }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		key  any
		want Path
	}{
		{name: "nil", key: nil, want: Path{}},
		{name: "empty string", key: "", want: Path{}},
		{name: "dotted", key: "a.b.c", want: Path{"a", "b", "c"}},
		{name: "single", key: "port", want: Path{"port"}},
		{name: "bracket index", key: "servers[0].host", want: Path{"servers", "0", "host"}},
		{name: "quoted bracket", key: `labels["app.name"].value`, want: Path{"labels", "app.name", "value"}},
		{name: "single quoted bracket", key: `a['x']`, want: Path{"a", "x"}},
		{name: "escaped quote", key: `a["say \"hi\""]`, want: Path{"a", `say "hi"`}},
		{name: "leading dot", key: ".a", want: Path{"", "a"}},
		{name: "double dot", key: "a..b", want: Path{"a", "", "b"}},
		{name: "trailing dot", key: "a.", want: Path{"a", ""}},
		{name: "string slice", key: []string{"a", "b"}, want: Path{"a", "b"}},
		{name: "path", key: Path{"a.b", "c"}, want: Path{"a.b", "c"}},
		{name: "mixed slice", key: []any{"servers", 1, "port"}, want: Path{"servers", "1", "port"}},
		{name: "integer", key: 7, want: Path{"7"}},
		{name: "stringer", key: label("db.port"), want: Path{"db", "port"}},
		{name: "unterminated bracket", key: "a[0", want: Path{"a", "[0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.key)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Normalize(%#v) mismatch (-want +got):\n%s", tt.key, diff)
			}
		})
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	if !Equal(Normalize("a.b"), Normalize([]string{"a", "b"})) {
		t.Fatalf("expected dotted and sequence forms to be equal")
	}
	if !Equal(Normalize("a[0]"), Normalize("a.0")) {
		t.Fatalf("expected bracket and dotted index forms to be equal")
	}
	if Equal(Normalize("a.b"), Normalize([]string{"a.b"})) {
		t.Fatalf("expected single segment containing a dot to differ from two segments")
	}
}

func TestNormalizeCopiesInput(t *testing.T) {
	input := []string{"a", "b"}
	got := Normalize(input)
	input[0] = "changed"
	if got[0] != "a" {
		t.Fatalf("expected Normalize to detach from caller slice, got %v", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	paths := []Path{
		{},
		{"a"},
		{"a", "b", "c"},
		{""},
		{"", "a"},
		{"a", ""},
		{"a.b", "c"},
		{"a", "x[0]"},
		{"quote\"d", `back\slash`},
		{"it's"},
	}
	for _, p := range paths {
		rendered := p.String()
		if got := Parse(rendered); !cmp.Equal(p, got) {
			t.Fatalf("round trip of %#v via %q produced %#v", p, rendered, got)
		}
	}
}

func TestStringCanonical(t *testing.T) {
	if got := Normalize("a[0].b").String(); got != "a.0.b" {
		t.Fatalf("expected canonical a.0.b, got %q", got)
	}
	if got := (Path{"a.b", "c"}).String(); got != `["a.b"].c` {
		t.Fatalf("expected quoted rendering, got %q", got)
	}
}
