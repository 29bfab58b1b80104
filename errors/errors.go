// Package errors provides the error types raised by the parsers, generators
// and the binary codec.
//
// Syntax errors carry a [Start, End) span into the original source so that
// tooling can underline the offending text. Messages are table-driven: every
// Code maps to one format string in messages.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a syntax error kind.
type Code int

const (
	CodeUnknown Code = iota

	// Dispatcher and shared
	CodeSyntaxDisabled
	CodeSyntaxMixed
	CodeNestingTooDeep
	CodeUnclosedParenthesis
	CodeUnexpectedCharacter
	CodeEmptyParameter

	// Comments
	CodeEmptyAgent
	CodeAgentUnclosed
	CodeEmptyHint
	CodeInvalidHint
	CodeEmptyPreProcessorName
	CodeMissingPreProcessorParams
	CodeUnexpectedPreProcessorParams
	CodeInvalidExpression
	CodeInvalidConfigParams

	// Network
	CodeEmptyModifiers
	CodeEmptyModifierName
	CodeEmptyModifierValue
	CodeInvalidModifier
	CodeNetworkRuleEmpty
	CodeInvalidHostRule

	// Cosmetic
	CodeEmptyRuleBody
	CodeEmptyDomain
	CodeModifierListUnclosed
	CodeInvalidBody
	CodeInvalidCssInjection
	CodeInvalidScriptlet
	CodeUboStyleNotLast
	CodeUboDuplicatePseudo
	CodeUboInvalidNesting
	CodeUboMatchesPathSibling
	CodeUboEmptyArgument
	CodeUboUnexpectedArgument

	// CSS selectors
	CodeSelectorEmpty
	CodeSelectorUnexpectedToken
	CodeTypeSelectorAlreadySet
	CodeTypeSelectorNotFirst
	CodeCombinatorPosition
	CodeCommaPosition
	CodeAttributeName
	CodeAttributeOperator
	CodeAttributeValue
	CodeAttributeUnclosed
	CodeUnterminatedString
)

var messages = map[Code]string{
	CodeUnknown: "%s",

	CodeSyntaxDisabled:      "Parsing of %s-specific rules is disabled, but the rule uses them",
	CodeSyntaxMixed:         "Syntaxes cannot be mixed: rule uses %s syntax but %s syntax was already detected",
	CodeNestingTooDeep:      "Maximum nesting depth of %d exceeded",
	CodeUnclosedParenthesis: "Unclosed parenthesis",
	CodeUnexpectedCharacter: "Unexpected character %q",
	CodeEmptyParameter:      "Empty parameter is not allowed",

	CodeEmptyAgent:                   "Empty agent name",
	CodeAgentUnclosed:                "Agent comment must be closed with ']'",
	CodeEmptyHint:                    "Empty hint",
	CodeInvalidHint:                  "Invalid hint %q",
	CodeEmptyPreProcessorName:        "Empty pre-processor directive name",
	CodeMissingPreProcessorParams:    "Pre-processor directive %q requires parameters",
	CodeUnexpectedPreProcessorParams: "Pre-processor directive %q does not accept parameters",
	CodeInvalidExpression:            "Invalid logical expression: %s",
	CodeInvalidConfigParams:          "Invalid config comment parameters: %s",

	CodeEmptyModifiers:     "Empty modifiers are not allowed",
	CodeEmptyModifierName:  "Modifier name cannot be empty",
	CodeEmptyModifierValue: "Value of modifier %q cannot be empty",
	CodeInvalidModifier:    "Invalid modifier %q: %s",
	CodeNetworkRuleEmpty:   "Network rule must have a pattern or modifiers",
	CodeInvalidHostRule:    "Invalid host rule: %s",

	CodeEmptyRuleBody:         "Empty rule body",
	CodeEmptyDomain:           "Empty domain specified in the domain list",
	CodeModifierListUnclosed:  "Missing ']' at the end of the AdGuard modifier list",
	CodeInvalidBody:           "Invalid body for separator %q",
	CodeInvalidCssInjection:   "Invalid CSS injection body: %s",
	CodeInvalidScriptlet:      "Invalid scriptlet call: %s",
	CodeUboStyleNotLast:       "uBlock Origin pseudo-class ':%s()' must be the last element of the selector",
	CodeUboDuplicatePseudo:    "uBlock Origin pseudo-class ':%s()' is used more than once",
	CodeUboInvalidNesting:     "uBlock Origin pseudo-class ':%s()' cannot be nested inside ':%s()'",
	CodeUboMatchesPathSibling: "Negated ':matches-path()' cannot be combined with other selectors inside ':not()'",
	CodeUboEmptyArgument:      "uBlock Origin pseudo-class ':%s()' requires an argument",
	CodeUboUnexpectedArgument: "uBlock Origin pseudo-class ':%s()' does not accept an argument",

	CodeSelectorEmpty:           "Selector cannot be empty",
	CodeSelectorUnexpectedToken: "Unexpected token %q in selector",
	CodeTypeSelectorAlreadySet:  "Type selector is already set for this compound selector",
	CodeTypeSelectorNotFirst:    "Type selector must be the first simple selector in a compound selector",
	CodeCombinatorPosition:      "Combinator %q cannot be %s",
	CodeCommaPosition:           "Comma cannot be %s",
	CodeAttributeName:           "Attribute selector requires an identifier name",
	CodeAttributeOperator:       "Invalid attribute selector operator %q",
	CodeAttributeValue:          "Attribute selector value must be an identifier or a string",
	CodeAttributeUnclosed:       "Attribute selector must be closed with ']'",
	CodeUnterminatedString:      "Unterminated string",
}

// Message formats the template registered for code.
func Message(code Code, args ...any) string {
	tmpl, ok := messages[code]
	if !ok {
		tmpl = messages[CodeUnknown]
	}
	return fmt.Sprintf(tmpl, args...)
}

// Location is the [Start, End) span an error refers to.
type Location struct {
	Start int
	End   int
}

// SyntaxError is raised for any malformed rule.
type SyntaxError struct {
	Code    Code
	Message string
	Loc     Location
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%d-%d)", e.Message, e.Loc.Start, e.Loc.End)
}

// New creates a syntax error for code spanning [start, end).
func New(code Code, start, end int, args ...any) *SyntaxError {
	return &SyntaxError{
		Code:    code,
		Message: Message(code, args...),
		Loc:     Location{Start: start, End: end},
	}
}

// Shift returns a copy of err moved by offset. It is used when a sub-parser
// works on a slice of the original text.
func Shift(err error, offset int) error {
	var se *SyntaxError
	if offset == 0 || !errors.As(err, &se) {
		return err
	}
	shifted := *se
	shifted.Loc.Start += offset
	shifted.Loc.End += offset
	return &shifted
}

// IsDisabledSyntax reports whether err signals a recognized but disabled
// dialect.
func IsDisabledSyntax(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Code == CodeSyntaxDisabled
}

// CodeOf returns the code of a syntax error, or CodeUnknown.
func CodeOf(err error) Code {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

var (
	// ErrSchemaMismatch is returned when a binary buffer was written with a
	// different schema version.
	ErrSchemaMismatch = errors.New("binary schema mismatch")

	// ErrUnsupportedNode is returned when a generator or the codec receives a
	// node type it has no case for.
	ErrUnsupportedNode = errors.New("unsupported node type")

	// ErrCorruptBuffer is returned when a binary buffer ends early or holds
	// an unknown tag.
	ErrCorruptBuffer = errors.New("corrupt binary buffer")
)
