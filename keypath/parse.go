package keypath

import "strings"

// Parse splits a dotted/bracket key expression into segments.
//
//	"a.b.c"          -> [a b c]
//	"servers[0].host" -> [servers 0 host]
//	`a["x.y"].z`     -> [a x.y z]
//	".a" / "a..b"    -> ["" a] / [a "" b]
func Parse(key string) Path {
	out := Path{}
	if key == "" {
		return out
	}

	expectSegment := true
	i := 0
	for i < len(key) {
		switch key[i] {
		case '.':
			if expectSegment {
				out = append(out, "")
			}
			expectSegment = true
			i++
			if i == len(key) {
				out = append(out, "")
			}
		case '[':
			segment, next := parseBracket(key, i)
			out = append(out, segment)
			expectSegment = false
			i = next
		default:
			end := i
			for end < len(key) && key[end] != '.' && key[end] != '[' {
				end++
			}
			out = append(out, key[i:end])
			expectSegment = false
			i = end
		}
	}
	return out
}

// parseBracket reads a bracket segment starting at key[start] == '['. It
// returns the segment and the index following the closing bracket. An
// unterminated bracket consumes the rest of the input literally.
func parseBracket(key string, start int) (string, int) {
	i := start + 1
	if i < len(key) && (key[i] == '"' || key[i] == '\'') {
		quote := key[i]
		var b strings.Builder
		j := i + 1
		for j < len(key) {
			c := key[j]
			if c == '\\' && j+1 < len(key) {
				b.WriteByte(key[j+1])
				j += 2
				continue
			}
			if c == quote {
				break
			}
			b.WriteByte(c)
			j++
		}
		if j+1 < len(key) && key[j] == quote && key[j+1] == ']' {
			return b.String(), j + 2
		}
		return key[start:], len(key)
	}

	end := strings.IndexByte(key[i:], ']')
	if end < 0 {
		return key[start:], len(key)
	}
	return strings.TrimSpace(key[i : i+end]), i + end + 1
}
