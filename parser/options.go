package parser

import (
	"agtree/ast"
	"agtree/css"
)

// ModifierValidator checks a modifier against a compatibility table. The
// returned error is the reason the modifier is rejected.
type ModifierValidator interface {
	ValidateModifier(m *ast.Modifier, syntax ast.Syntax) error
}

// Options controls a parse call. The zero value parses only common syntax,
// fails on the first error and records neither raws nor locations.
type Options struct {
	// Tolerant turns a failing rule into an InvalidRule instead of an error.
	Tolerant bool
	// IncludeRaws stores the original line in every rule.
	IncludeRaws bool
	// IsLocIncluded sets node locations.
	IsLocIncluded bool

	ParseUboSpecificRules bool
	ParseAbpSpecificRules bool
	// ParseHostRules recognizes /etc/hosts lines as host rules.
	ParseHostRules bool

	// MaxNestingDepth bounds recursive selector arguments, negation chains
	// and parenthesized pre-processor expressions.
	MaxNestingDepth int

	// ModifierValidator is consulted for every network rule modifier. Nil
	// disables the check.
	ModifierValidator ModifierValidator
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		IncludeRaws:           true,
		ParseUboSpecificRules: true,
		ParseAbpSpecificRules: true,
		ParseHostRules:        true,
		MaxNestingDepth:       css.DefaultMaxNestingDepth,
	}
}

func (o Options) depth() int {
	if o.MaxNestingDepth <= 0 {
		return css.DefaultMaxNestingDepth
	}
	return o.MaxNestingDepth
}
