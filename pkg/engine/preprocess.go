package engine

import "strings"

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites scene script source before handing it to zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols that could clash with user variables.
//  2. A hyphen between identifier characters becomes an underscore
//     (inner-loop -> inner_loop); zygomys reads a bare hyphen as minus.
//  3. ; and ;; line comments become // comments.
//
// String literals (double-quoted and backtick) pass through untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)

	for i := 0; i < len(source); {
		c := source[i]
		switch {
		case c == '"':
			i = copyQuoted(&out, source, i, '"', true)
		case c == '`':
			i = copyQuoted(&out, source, i, '`', false)
		case c == ';':
			for i < len(source) && source[i] == ';' {
				i++
			}
			out.WriteString("//")
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				end = len(source) - i
			}
			out.WriteString(source[i : i+end])
			i += end
		case c == ':' && i+1 < len(source) && source[i+1] == '=':
			out.WriteString(":=")
			i += 2
		case c == ':' && i+1 < len(source) && isLetter(source[i+1]):
			j := i + 1
			for j < len(source) && isKWChar(source[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + source[i+1:j] + `"`)
			i = j
		case c == '-' && i > 0 && i+1 < len(source) && isIdentChar(source[i-1]) && isLetter(source[i+1]):
			out.WriteByte('_')
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// copyQuoted copies the literal opening at source[start] through its closing
// quote and returns the index after it. An unterminated literal runs to the
// end of the source.
func copyQuoted(out *strings.Builder, source string, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(source) && source[i] != quote {
		if escapes && source[i] == '\\' && i+1 < len(source) {
			i++
		}
		i++
	}
	if i < len(source) {
		i++
	}
	out.WriteString(source[start:i])
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
