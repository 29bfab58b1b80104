// Package parser turns raw filter rule text into AST nodes.
//
// Parse classifies one line as empty, comment, cosmetic or network and hands
// it to the matching category parser. All positions are byte offsets into the
// line plus the caller's base offset, so a rule parsed out of a larger
// document reports spans in document coordinates.
package parser

import (
	"errors"
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

// Parse parses a single rule. baseOffset is added to every location.
func Parse(raw string, opts Options, baseOffset int) (ast.Rule, error) {
	p := newParser(raw, opts, baseOffset)

	rule, err := p.parseRule()
	if err == nil {
		return rule, nil
	}
	if !opts.Tolerant {
		return nil, err
	}
	return p.invalid(err), nil
}

// ParseFilterList parses newline-delimited text. Lines are parsed in tolerant
// mode, so a failing line becomes an InvalidRule and never aborts the list.
func ParseFilterList(text string, opts Options) *ast.FilterList {
	opts.Tolerant = true

	list := &ast.FilterList{}
	if opts.IsLocIncluded {
		list.Loc = &ast.Location{Start: 0, End: len(text)}
	}

	for _, line := range SplitLines(text) {
		rule, _ := Parse(text[line.Start:line.End], opts, line.Start)
		list.Children = append(list.Children, rule)
	}
	return list
}

// SplitLines returns the span of every line of text, excluding line
// terminators. \n, \r\n and \r all end a line. A trailing terminator does not
// start a new line.
func SplitLines(text string) []scanner.Span {
	var lines []scanner.Span
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, scanner.Span{Start: start, End: i})
			start = i + 1
		case '\r':
			lines = append(lines, scanner.Span{Start: start, End: i})
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, scanner.Span{Start: start, End: len(text)})
	}
	return lines
}

type parser struct {
	raw  string
	opts Options
	base int
}

func newParser(raw string, opts Options, base int) *parser {
	return &parser{raw: raw, opts: opts, base: base}
}

func (p *parser) parseRule() (ast.Rule, error) {
	// 1. Trim
	start, end := scanner.TrimmedBounds(p.raw, 0, len(p.raw))
	if start == end {
		return &ast.EmptyRule{RuleBase: p.ruleBase(0, len(p.raw), ast.SyntaxCommon)}, nil
	}

	// 2. Comments
	if isComment(p.raw, start, end) {
		return p.parseComment(start, end)
	}

	// 3. Cosmetic rules, recognized by their separator
	if sep, ok := findSeparator(p.raw, start, end); ok {
		return p.parseCosmetic(start, end, sep)
	}

	// 4. Everything else is a network or host rule
	if p.opts.ParseHostRules {
		if rule, ok, err := p.parseHost(start, end); ok || err != nil {
			return rule, err
		}
	}
	return p.parseNetwork(start, end)
}

// ParseComment parses raw as a comment rule. It returns nil when raw is not a
// comment.
func ParseComment(raw string, opts Options, baseOffset int) (ast.Rule, error) {
	p := newParser(raw, opts, baseOffset)
	start, end := scanner.TrimmedBounds(raw, 0, len(raw))
	if start == end || !isComment(raw, start, end) {
		return nil, nil
	}
	return p.parseComment(start, end)
}

// ParseCosmetic parses raw as a cosmetic rule. It returns nil when raw has no
// cosmetic separator.
func ParseCosmetic(raw string, opts Options, baseOffset int) (ast.CosmeticRule, error) {
	p := newParser(raw, opts, baseOffset)
	start, end := scanner.TrimmedBounds(raw, 0, len(raw))
	sep, ok := findSeparator(raw, start, end)
	if !ok {
		return nil, nil
	}
	rule, err := p.parseCosmetic(start, end, sep)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ParseNetwork parses raw as a network rule.
func ParseNetwork(raw string, opts Options, baseOffset int) (*ast.NetworkRule, error) {
	p := newParser(raw, opts, baseOffset)
	start, end := scanner.TrimmedBounds(raw, 0, len(raw))
	return p.parseNetwork(start, end)
}

func (p *parser) loc(start, end int) *ast.Location {
	if !p.opts.IsLocIncluded {
		return nil
	}
	return &ast.Location{Start: p.base + start, End: p.base + end}
}

func (p *parser) value(start, end int) ast.Value {
	return ast.Value{Base: ast.Base{Loc: p.loc(start, end)}, Value: p.raw[start:end]}
}

func (p *parser) valuePtr(start, end int) *ast.Value {
	v := p.value(start, end)
	return &v
}

func (p *parser) errorAt(code parseErrors.Code, start, end int, args ...any) error {
	return parseErrors.New(code, p.base+start, p.base+end, args...)
}

func (p *parser) ruleBase(start, end int, syntax ast.Syntax) ast.RuleBase {
	rb := ast.RuleBase{Base: ast.Base{Loc: p.loc(start, end)}, Syntax: syntax}
	if p.opts.IncludeRaws {
		rb.Raws = &ast.Raws{Text: p.raw}
	}
	return rb
}

func (p *parser) invalid(err error) *ast.InvalidRule {
	rule := &ast.InvalidRule{
		RuleBase: p.ruleBase(0, len(p.raw), ast.SyntaxCommon),
		Raw:      p.raw,
	}

	var se *parseErrors.SyntaxError
	if errors.As(err, &se) {
		rule.Error = ast.InvalidRuleError{Message: se.Message, Start: se.Loc.Start, End: se.Loc.End}
	} else {
		rule.Error = ast.InvalidRuleError{Message: err.Error(), Start: p.base, End: p.base + len(p.raw)}
	}
	return rule
}

// commitSyntax narrows *current to next. Moving between two specific
// dialects is an error, as is using a dialect whose parsing is disabled.
func (p *parser) commitSyntax(current *ast.Syntax, next ast.Syntax, start, end int) error {
	switch next {
	case ast.SyntaxUbo:
		if !p.opts.ParseUboSpecificRules {
			return p.errorAt(parseErrors.CodeSyntaxDisabled, start, end, next)
		}
	case ast.SyntaxAbp:
		if !p.opts.ParseAbpSpecificRules {
			return p.errorAt(parseErrors.CodeSyntaxDisabled, start, end, next)
		}
	}

	if next == ast.SyntaxCommon || *current == next {
		return nil
	}
	if *current != ast.SyntaxCommon {
		return p.errorAt(parseErrors.CodeSyntaxMixed, start, end, next, *current)
	}
	*current = next
	return nil
}

func hasPrefixAt(s string, i int, prefix string) bool {
	return strings.HasPrefix(s[i:], prefix)
}
