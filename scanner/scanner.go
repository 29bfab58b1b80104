// Package scanner contains the escape-aware string scanning primitives shared
// by every rule parser. All functions work on byte offsets and never allocate
// unless they return a new string.
package scanner

const (
	// Escape is the escape character used by all filter rule dialects.
	Escape = '\\'
	// RegexMarker opens and closes regular-expression patterns and values.
	RegexMarker = '/'
)

// IsWhitespace reports whether c is an ASCII whitespace character.
func IsWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsLetter reports whether c is an ASCII letter.
func IsLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsEscaped reports whether the character at index i is preceded by an odd
// number of escape characters.
func IsEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == Escape; j-- {
		n++
	}
	return n%2 == 1
}

// SkipWS returns the first index at or after start that is not whitespace.
func SkipWS(s string, start int) int {
	i := start
	for i < len(s) && IsWhitespace(s[i]) {
		i++
	}
	return i
}

// SkipWSBack returns the last index at or before start that is not
// whitespace, or -1 when everything up to start is whitespace.
func SkipWSBack(s string, start int) int {
	i := start
	for i >= 0 && IsWhitespace(s[i]) {
		i--
	}
	return i
}

// TrimmedBounds returns the [start, end) bounds of s[from:to] with outer
// whitespace removed. When the range is blank, start == end.
func TrimmedBounds(s string, from, to int) (int, int) {
	start := SkipWS(s[:to], from)
	end := SkipWSBack(s, to-1) + 1
	if end < start {
		end = start
	}
	return start, end
}

// FindNextUnescaped returns the index of the first unescaped c at or after
// start, or -1.
func FindNextUnescaped(s string, start int, c byte) int {
	for i := start; i < len(s); i++ {
		if s[i] == c && !IsEscaped(s, i) {
			return i
		}
	}
	return -1
}

// FindLastUnescaped returns the index of the last unescaped c in s, or -1.
func FindLastUnescaped(s string, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c && !IsEscaped(s, i) {
			return i
		}
	}
	return -1
}

// FindNextNotBracketed returns the index of the first unescaped c at or after
// start that is not enclosed in parentheses, or -1.
func FindNextNotBracketed(s string, start int, c byte) int {
	depth := 0
	for i := start; i < len(s); i++ {
		if IsEscaped(s, i) {
			continue
		}
		switch s[i] {
		case '(':
			depth++
			continue
		case ')':
			if depth > 0 {
				depth--
				continue
			}
		}
		if s[i] == c && depth == 0 {
			return i
		}
	}
	return -1
}

// FindUnescapedOutsideQuotes returns the first index of c at or after start
// that is neither escaped nor inside a single- or double-quoted string.
func FindUnescapedOutsideQuotes(s string, start int, c byte) int {
	var quote byte
	for i := start; i < len(s); i++ {
		if IsEscaped(s, i) {
			continue
		}
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == c:
			return i
		}
	}
	return -1
}

// FindMatchingParen returns the index of the parenthesis that closes the one
// at open, honoring escapes and quoted strings. It returns -1 when the
// parenthesis is never closed.
func FindMatchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		if IsEscaped(s, i) {
			continue
		}
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FindRegexEnd returns the index of the unescaped regex marker closing the
// regular expression opened at start, or -1.
func FindRegexEnd(s string, start int) int {
	return FindNextUnescaped(s, start+1, RegexMarker)
}

// IsRegexPattern reports whether s looks like a /regex/ literal.
func IsRegexPattern(s string) bool {
	return len(s) > 1 && s[0] == RegexMarker && s[len(s)-1] == RegexMarker && !IsEscaped(s, len(s)-1)
}

// IsQuoted reports whether s starts and ends with the same quote character.
func IsQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '\'' || q == '"' || q == '`') && s[len(s)-1] == q && !IsEscaped(s, len(s)-1)
}

// Unquote removes one pair of surrounding quotes, if any.
func Unquote(s string) string {
	if IsQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// Span is a half-open [Start, End) range produced by the splitting helpers.
type Span struct {
	Start int
	End   int
}

// SplitUnescaped splits s[from:to] by unescaped sep characters and returns
// the trimmed spans of every part, including empty ones. Parts inside quotes
// are not split when honorQuotes is set.
func SplitUnescaped(s string, from, to int, sep byte, honorQuotes bool) []Span {
	var parts []Span
	partStart := from
	var quote byte
	for i := from; i < to; i++ {
		if IsEscaped(s, i) {
			continue
		}
		ch := s[i]
		if honorQuotes {
			if quote != 0 {
				if ch == quote {
					quote = 0
				}
				continue
			}
			if ch == '\'' || ch == '"' {
				quote = ch
				continue
			}
		}
		if ch == sep {
			st, en := TrimmedBounds(s, partStart, i)
			parts = append(parts, Span{st, en})
			partStart = i + 1
		}
	}
	st, en := TrimmedBounds(s, partStart, to)
	parts = append(parts, Span{st, en})
	return parts
}
