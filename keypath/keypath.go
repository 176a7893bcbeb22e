// Package keypath normalizes keys into canonical ordered path segments.
//
// A key may be a dotted string ("db.port"), a bracket expression
// ("servers[0].host", `labels["app.kubernetes.io/name"]`) or an already
// split sequence. All of them normalize to a Path, and two keys are equal
// when their canonical renderings are equal.
package keypath

import (
	"fmt"
	"strings"
)

// Path is the canonical ordered sequence of key segments.
type Path []string

// Normalize converts key into a Path. Strings are parsed, sequences are
// copied element-wise, nil yields an empty path and any other value is
// parsed from its string form.
func Normalize(key any) Path {
	switch typed := key.(type) {
	case nil:
		return Path{}
	case Path:
		return typed.Clone()
	case []string:
		return Path(typed).Clone()
	case string:
		return Parse(typed)
	case []any:
		out := make(Path, len(typed))
		for i, segment := range typed {
			out[i] = segmentString(segment)
		}
		return out
	case fmt.Stringer:
		return Parse(typed.String())
	default:
		return Parse(fmt.Sprint(typed))
	}
}

// Equal reports whether a and b render to the same canonical string.
func Equal(a, b Path) bool {
	return a.String() == b.String()
}

// Clone returns a detached copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return Path{}
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p)
}

// Segments returns the path as a plain string slice copy.
func (p Path) Segments() []string {
	return []string(p.Clone())
}

// String renders the canonical form. Parse(p.String()) yields p.
func (p Path) String() string {
	var b strings.Builder
	for i, segment := range p {
		if needsQuote(segment) {
			b.WriteString(`["`)
			b.WriteString(escape(segment))
			b.WriteString(`"]`)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(segment)
	}
	return b.String()
}

func segmentString(segment any) string {
	if s, ok := segment.(string); ok {
		return s
	}
	return fmt.Sprint(segment)
}

func needsQuote(segment string) bool {
	if segment == "" {
		return true
	}
	return strings.ContainsAny(segment, `.[]"'\`)
}

func escape(segment string) string {
	if !strings.ContainsAny(segment, `"\`) {
		return segment
	}
	var b strings.Builder
	for _, r := range segment {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
