package parser

import (
	"net/netip"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

const (
	exceptionMarker   = "@@"
	modifierSeparator = '$'
	modifierDelimiter = ','
	modifierAssign    = '='
	negationMarker    = '~'
	domainDelimiter   = ','
)

func (p *parser) parseNetwork(start, end int) (*ast.NetworkRule, error) {
	rule := &ast.NetworkRule{RuleBase: p.ruleBase(start, end, ast.SyntaxCommon)}

	// 1. Exception marker
	patternStart := start
	if hasPrefixAt(p.raw[:end], start, exceptionMarker) {
		rule.Exception = true
		patternStart += len(exceptionMarker)
	}

	// 2. Modifier list
	patternEnd := end
	if sep := p.findModifierSeparator(patternStart, end); sep >= 0 {
		patternEnd = sep
		mods, err := p.parseModifierList(sep+1, end, sep)
		if err != nil {
			return nil, err
		}
		if err := p.validateModifiers(mods, rule.Syntax); err != nil {
			return nil, err
		}
		rule.Modifiers = mods
	}

	// 3. Pattern
	ps, pe := scanner.TrimmedBounds(p.raw, patternStart, patternEnd)
	rule.Pattern = p.value(ps, pe)
	if ps == pe && rule.Modifiers == nil {
		return nil, p.errorAt(parseErrors.CodeNetworkRuleEmpty, start, end)
	}
	return rule, nil
}

// findModifierSeparator returns the index of the `$` that opens the modifier
// list, or -1. Candidates are tried from the end so that a `$` inside the
// pattern survives; escaped candidates and candidates inside a /regex/
// pattern are skipped. A candidate is accepted when the text after it is
// blank or starts like a modifier.
func (p *parser) findModifierSeparator(start, end int) int {
	regex := start < end && p.raw[start] == scanner.RegexMarker
	for i := end - 1; i >= start; i-- {
		if p.raw[i] != modifierSeparator || scanner.IsEscaped(p.raw, i) {
			continue
		}
		if regex && insideRegex(p.raw, start, i) {
			continue
		}
		if p.startsModifierList(i+1, end) {
			return i
		}
	}
	return -1
}

// insideRegex reports whether i falls between the regex markers of a pattern
// starting at start.
func insideRegex(s string, start, i int) bool {
	n := 0
	for j := start; j < i; j++ {
		if s[j] == scanner.RegexMarker && !scanner.IsEscaped(s, j) {
			n++
		}
	}
	return n%2 == 1
}

func (p *parser) startsModifierList(from, to int) bool {
	i := scanner.SkipWS(p.raw[:to], from)
	if i == to {
		return true
	}
	if p.raw[i] == negationMarker {
		i++
	}
	nameEnd := scanModifierName(p.raw, i, to)
	if nameEnd == i {
		return false
	}
	next := scanner.SkipWS(p.raw[:to], nameEnd)
	return next == to || p.raw[next] == modifierDelimiter || p.raw[next] == modifierAssign
}

func isModifierNameChar(c byte) bool {
	return scanner.IsLetter(c) || scanner.IsDigit(c) || c == '_' || c == '-'
}

func scanModifierName(s string, i, to int) int {
	for i < to && isModifierNameChar(s[i]) {
		i++
	}
	return i
}

// parseModifierList parses raw[from:to] as comma-separated modifiers. marker
// is the index of the opening `$` or `[$`, used for the empty-list span.
func (p *parser) parseModifierList(from, to, marker int) (*ast.ModifierList, error) {
	s, e := scanner.TrimmedBounds(p.raw, from, to)
	if s == e {
		return nil, p.errorAt(parseErrors.CodeEmptyModifiers, marker, to)
	}

	list := &ast.ModifierList{Base: ast.Base{Loc: p.loc(s, e)}}
	for i := s; ; {
		next := p.modifierEnd(i, e)
		m, err := p.parseModifier(i, next)
		if err != nil {
			return nil, err
		}
		list.Children = append(list.Children, m)
		if next >= e {
			break
		}
		i = next + 1
	}
	return list, nil
}

// modifierEnd returns the index of the comma ending the modifier that starts
// at i, or to. A /regex/ value may contain commas.
func (p *parser) modifierEnd(i, to int) int {
	assigned := false
	for j := i; j < to; j++ {
		if scanner.IsEscaped(p.raw, j) {
			continue
		}
		switch p.raw[j] {
		case modifierAssign:
			if assigned {
				continue
			}
			assigned = true
			v := scanner.SkipWS(p.raw[:to], j+1)
			if v < to && p.raw[v] == scanner.RegexMarker {
				if re := scanner.FindRegexEnd(p.raw[:to], v); re > 0 {
					j = re
				}
			}
		case modifierDelimiter:
			return j
		}
	}
	return to
}

func (p *parser) parseModifier(from, to int) (*ast.Modifier, error) {
	s, e := scanner.TrimmedBounds(p.raw, from, to)
	if s == e {
		return nil, p.errorAt(parseErrors.CodeEmptyModifierName, from, to)
	}

	m := &ast.Modifier{Base: ast.Base{Loc: p.loc(s, e)}}
	i := s
	if p.raw[i] == negationMarker {
		m.Exception = true
		i = scanner.SkipWS(p.raw[:e], i+1)
	}

	assign := scanner.FindNextUnescaped(p.raw[:e], i, modifierAssign)
	nameEnd := e
	if assign >= 0 {
		nameEnd = assign
	}
	ns, ne := scanner.TrimmedBounds(p.raw, i, nameEnd)
	if ns == ne {
		return nil, p.errorAt(parseErrors.CodeEmptyModifierName, s, e)
	}
	if scanModifierName(p.raw, ns, ne) != ne {
		return nil, p.errorAt(parseErrors.CodeInvalidModifier, ns, ne, p.raw[ns:ne], "invalid characters in name")
	}
	m.Name = p.value(ns, ne)

	if assign >= 0 {
		vs, ve := scanner.TrimmedBounds(p.raw, assign+1, e)
		if vs == ve {
			return nil, p.errorAt(parseErrors.CodeEmptyModifierValue, s, e, m.Name.Value)
		}
		m.Value = p.valuePtr(vs, ve)
	}
	return m, nil
}

func (p *parser) validateModifiers(list *ast.ModifierList, syntax ast.Syntax) error {
	if p.opts.ModifierValidator == nil || list == nil {
		return nil
	}
	for _, m := range list.Children {
		if err := p.opts.ModifierValidator.ValidateModifier(m, syntax); err != nil {
			start, end := p.modifierBounds(m)
			return parseErrors.New(parseErrors.CodeInvalidModifier, start, end, m.Name.Value, err.Error())
		}
	}
	return nil
}

// modifierBounds returns the absolute bounds of m, falling back to the
// whole line when locations are off.
func (p *parser) modifierBounds(m *ast.Modifier) (int, int) {
	if m.Loc != nil {
		return m.Loc.Start, m.Loc.End
	}
	return p.base, p.base + len(p.raw)
}

func (p *parser) parseDomainList(from, to int) (ast.DomainList, error) {
	s, e := scanner.TrimmedBounds(p.raw, from, to)
	list := ast.DomainList{Base: ast.Base{Loc: p.loc(s, e)}}
	if s == e {
		return list, nil
	}

	for _, part := range scanner.SplitUnescaped(p.raw, s, e, domainDelimiter, false) {
		if part.Start == part.End {
			return list, p.errorAt(parseErrors.CodeEmptyDomain, part.Start, part.End)
		}
		d := &ast.Domain{Base: ast.Base{Loc: p.loc(part.Start, part.End)}}
		vs := part.Start
		if p.raw[vs] == negationMarker {
			d.Exception = true
			vs = scanner.SkipWS(p.raw[:part.End], vs+1)
			if vs == part.End {
				return list, p.errorAt(parseErrors.CodeEmptyDomain, part.Start, part.End)
			}
		}
		d.Value = p.raw[vs:part.End]
		list.Children = append(list.Children, d)
	}
	return list, nil
}

// parseHost recognizes `IP hostname... [# comment]` lines. ok is false when
// the line is not a host rule.
func (p *parser) parseHost(start, end int) (*ast.HostRule, bool, error) {
	contentEnd := end
	var comment *ast.Value
	for i := start + 1; i < end; i++ {
		if p.raw[i] == hostsCommentMarker && scanner.IsWhitespace(p.raw[i-1]) {
			contentEnd = scanner.SkipWSBack(p.raw, i-1) + 1
			cs, ce := scanner.TrimmedBounds(p.raw, i+1, end)
			comment = p.valuePtr(cs, ce)
			break
		}
	}

	fields := fieldSpans(p.raw, start, contentEnd)
	if len(fields) < 2 {
		return nil, false, nil
	}
	ip := fields[0]
	if _, err := netip.ParseAddr(p.raw[ip.Start:ip.End]); err != nil {
		return nil, false, nil
	}

	rule := &ast.HostRule{
		RuleBase: p.ruleBase(start, end, ast.SyntaxCommon),
		IP:       p.value(ip.Start, ip.End),
		Comment:  comment,
	}
	first, last := fields[1], fields[len(fields)-1]
	rule.Hostnames.Loc = p.loc(first.Start, last.End)
	for _, f := range fields[1:] {
		if !isHostname(p.raw[f.Start:f.End]) {
			return nil, true, p.errorAt(parseErrors.CodeInvalidHostRule, f.Start, f.End, "invalid hostname "+p.raw[f.Start:f.End])
		}
		rule.Hostnames.Children = append(rule.Hostnames.Children, p.valuePtr(f.Start, f.End))
	}
	return rule, true, nil
}

func fieldSpans(s string, from, to int) []scanner.Span {
	var spans []scanner.Span
	i := from
	for {
		i = scanner.SkipWS(s[:to], i)
		if i >= to {
			return spans
		}
		j := i
		for j < to && !scanner.IsWhitespace(s[j]) {
			j++
		}
		spans = append(spans, scanner.Span{Start: i, End: j})
		i = j
	}
}

func isHostname(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !scanner.IsLetter(c) && !scanner.IsDigit(c) && c != '.' && c != '-' && c != '_' {
			return false
		}
	}
	return s != ""
}
