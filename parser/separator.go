package parser

import (
	"strings"

	"agtree/scanner"
)

// Cosmetic rule separators.
const (
	SepElementHiding              = "##"
	SepElementHidingException     = "#@#"
	SepExtendedHiding             = "#?#"
	SepExtendedHidingException    = "#@?#"
	SepCssInjection               = "#$#"
	SepCssInjectionException      = "#@$#"
	SepExtendedCssInjection       = "#$?#"
	SepExtendedCssInjectionExcept = "#@$?#"
	SepJsInjection                = "#%#"
	SepJsInjectionException       = "#@%#"
	SepHtmlFiltering              = "$$"
	SepHtmlFilteringException     = "$@$"
)

// separators is ordered longest first so that the most specific separator
// wins at a given position.
var separators = []string{
	SepExtendedCssInjectionExcept,
	SepExtendedHidingException,
	SepCssInjectionException,
	SepJsInjectionException,
	SepExtendedCssInjection,
	SepElementHidingException,
	SepExtendedHiding,
	SepCssInjection,
	SepJsInjection,
	SepHtmlFilteringException,
	SepElementHiding,
	SepHtmlFiltering,
}

type separator struct {
	Start int
	End   int
	Value string
}

// IsException reports whether the separator carries the `@` marker.
func (s separator) IsException() bool {
	return strings.IndexByte(s.Value, '@') >= 0
}

// separatorAt returns the separator starting at i, if any.
func separatorAt(raw string, i int) (separator, bool) {
	if c := raw[i]; c != '#' && c != '$' {
		return separator{}, false
	}
	if scanner.IsEscaped(raw, i) {
		return separator{}, false
	}
	for _, sep := range separators {
		if strings.HasPrefix(raw[i:], sep) {
			return separator{Start: i, End: i + len(sep), Value: sep}, true
		}
	}
	return separator{}, false
}

// findSeparator returns the first cosmetic separator in raw[start:end]. When
// the rule opens with an AdGuard modifier list the search starts after its
// first unescaped `]`.
func findSeparator(raw string, start, end int) (separator, bool) {
	from := start
	if strings.HasPrefix(raw[start:end], "[$") {
		closeIdx := modifierListClose(raw, start, end)
		if closeIdx < 0 {
			return separator{}, false
		}
		from = closeIdx + 1
	}
	for i := from; i < end; i++ {
		if sep, ok := separatorAt(raw[:end], i); ok {
			return sep, true
		}
	}
	return separator{}, false
}

// modifierListClose returns the index of the `]` closing the AdGuard modifier
// list that opens at start, or -1. A /regex/ value may contain `]`.
func modifierListClose(raw string, start, end int) int {
	for i := start + len(adgModifierListOpen); i < end; i++ {
		if scanner.IsEscaped(raw, i) {
			continue
		}
		switch raw[i] {
		case modifierAssign:
			v := scanner.SkipWS(raw[:end], i+1)
			if v >= end || raw[v] != scanner.RegexMarker {
				continue
			}
			re := scanner.FindRegexEnd(raw[:end], v)
			if re < 0 {
				continue
			}
			// the regex must end its value
			if next := scanner.SkipWS(raw[:end], re+1); next < end && (raw[next] == modifierDelimiter || raw[next] == adgModifierListClose) {
				i = re
			}
		case adgModifierListClose:
			return i
		}
	}
	return -1
}
