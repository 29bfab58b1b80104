package parser

import (
	"strings"

	"gopkg.in/yaml.v3"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

const (
	commentMarker       = '!'
	hostsCommentMarker  = '#'
	hintMarker          = "!+"
	preProcessorMarker  = "!#"
	configCommentPrefix = "aglint"
	configCommentSep    = "--"
)

// Known metadata headers, lower-cased.
var metadataHeaders = map[string]bool{
	"checksum":      true,
	"description":   true,
	"expires":       true,
	"homepage":      true,
	"last modified": true,
	"last updated":  true,
	"licence":       true,
	"license":       true,
	"redirect":      true,
	"timeupdated":   true,
	"title":         true,
	"version":       true,
}

var configCommands = map[string]bool{
	"aglint":                   true,
	"aglint-disable":           true,
	"aglint-enable":            true,
	"aglint-disable-next-line": true,
	"aglint-enable-next-line":  true,
}

// Pre-processor directives and whether they take parameters.
const (
	directiveIf               = "if"
	directiveElse             = "else"
	directiveEndif            = "endif"
	directiveInclude          = "include"
	directiveSafariCbAffinity = "safari_cb_affinity"
)

func isComment(raw string, start, end int) bool {
	switch raw[start] {
	case commentMarker:
		return true
	case hostsCommentMarker:
		// `##`, `#@#` and friends open cosmetic rules
		_, ok := separatorAt(raw, start)
		return !ok
	case '[':
		return !hasPrefixAt(raw, start, "[$") && raw[end-1] == ']'
	}
	return false
}

func (p *parser) parseComment(start, end int) (ast.Rule, error) {
	switch {
	case p.raw[start] == '[':
		return p.parseAgent(start, end)
	case hasPrefixAt(p.raw, start, hintMarker):
		return p.parseHint(start, end)
	case hasPrefixAt(p.raw, start, preProcessorMarker) && start+2 < end && isIdentChar(p.raw[start+2]):
		return p.parsePreProcessor(start, end)
	}

	if rule := p.parseMetadata(start, end); rule != nil {
		return rule, nil
	}
	if rule, ok, err := p.parseConfigComment(start, end); ok || err != nil {
		return rule, err
	}

	return &ast.CommentRule{
		RuleBase: p.ruleBase(start, end, ast.SyntaxCommon),
		Marker:   p.value(start, start+1),
		Text:     p.value(start+1, end),
	}, nil
}

func (p *parser) parseAgent(start, end int) (*ast.AgentCommentRule, error) {
	innerStart, innerEnd := scanner.TrimmedBounds(p.raw, start+1, end-1)
	if innerStart == innerEnd {
		return nil, p.errorAt(parseErrors.CodeEmptyAgent, start, end)
	}

	rule := &ast.AgentCommentRule{RuleBase: p.ruleBase(start, end, ast.SyntaxCommon)}
	for _, part := range scanner.SplitUnescaped(p.raw, start+1, end-1, ';', false) {
		if part.Start == part.End {
			return nil, p.errorAt(parseErrors.CodeEmptyAgent, part.Start, part.End)
		}

		agent := &ast.Agent{Base: ast.Base{Loc: p.loc(part.Start, part.End)}}

		// The version is the last word when it starts with a digit.
		nameEnd := part.End
		for i := part.End - 1; i > part.Start; i-- {
			if scanner.IsWhitespace(p.raw[i]) {
				if scanner.IsDigit(p.raw[i+1]) {
					agent.Version = p.valuePtr(i+1, part.End)
					nameEnd = scanner.SkipWSBack(p.raw, i) + 1
				}
				break
			}
		}
		agent.Adblock = p.value(part.Start, nameEnd)
		rule.Children = append(rule.Children, agent)
	}
	return rule, nil
}

func isIdentChar(c byte) bool {
	return scanner.IsLetter(c) || scanner.IsDigit(c) || c == '_'
}

func (p *parser) scanIdent(i, end int) int {
	for i < end && isIdentChar(p.raw[i]) {
		i++
	}
	return i
}

func (p *parser) parseHint(start, end int) (*ast.HintCommentRule, error) {
	rule := &ast.HintCommentRule{RuleBase: p.ruleBase(start, end, ast.SyntaxAdg)}

	i := scanner.SkipWS(p.raw[:end], start+len(hintMarker))
	if i >= end {
		return nil, p.errorAt(parseErrors.CodeEmptyHint, start, end)
	}

	for i < end {
		nameEnd := p.scanIdent(i, end)
		if nameEnd == i {
			return nil, p.errorAt(parseErrors.CodeInvalidHint, i, i+1, string(p.raw[i]))
		}

		hint := &ast.Hint{Name: p.value(i, nameEnd)}
		hintEnd := nameEnd

		if nameEnd < end && p.raw[nameEnd] == '(' {
			closeIdx := scanner.FindMatchingParen(p.raw[:end], nameEnd)
			if closeIdx < 0 {
				return nil, p.errorAt(parseErrors.CodeUnclosedParenthesis, nameEnd, end)
			}
			hint.Params = p.parameterList(nameEnd+1, closeIdx, ',', false)
			hintEnd = closeIdx + 1
		}

		if hintEnd < end && !scanner.IsWhitespace(p.raw[hintEnd]) {
			return nil, p.errorAt(parseErrors.CodeInvalidHint, i, hintEnd+1, p.raw[i:hintEnd+1])
		}

		hint.Loc = p.loc(i, hintEnd)
		rule.Children = append(rule.Children, hint)
		i = scanner.SkipWS(p.raw[:end], hintEnd)
	}
	return rule, nil
}

// parameterList splits raw[from:to] by sep. Empty parameters become nil
// children; a blank range yields an empty list.
func (p *parser) parameterList(from, to int, sep byte, honorQuotes bool) *ast.ParameterList {
	list := &ast.ParameterList{Base: ast.Base{Loc: p.loc(from, to)}}
	if s, e := scanner.TrimmedBounds(p.raw, from, to); s == e {
		return list
	}
	for _, part := range scanner.SplitUnescaped(p.raw, from, to, sep, honorQuotes) {
		if part.Start == part.End {
			list.Children = append(list.Children, nil)
			continue
		}
		list.Children = append(list.Children, p.valuePtr(part.Start, part.End))
	}
	return list
}

func (p *parser) parsePreProcessor(start, end int) (*ast.PreProcessorCommentRule, error) {
	nameStart := start + len(preProcessorMarker)
	nameEnd := p.scanIdent(nameStart, end)

	rule := &ast.PreProcessorCommentRule{
		RuleBase: p.ruleBase(start, end, ast.SyntaxCommon),
		Name:     p.value(nameStart, nameEnd),
	}
	name := p.raw[nameStart:nameEnd]

	restStart, restEnd := scanner.TrimmedBounds(p.raw, nameEnd, end)
	hasParams := restStart < restEnd

	switch name {
	case directiveIf:
		if !hasParams {
			return nil, p.errorAt(parseErrors.CodeMissingPreProcessorParams, start, end, name)
		}
		expr, err := p.parseExpression(restStart, restEnd)
		if err != nil {
			return nil, err
		}
		rule.Params = expr

	case directiveElse, directiveEndif:
		if hasParams {
			return nil, p.errorAt(parseErrors.CodeUnexpectedPreProcessorParams, restStart, restEnd, name)
		}

	case directiveInclude:
		if !hasParams {
			return nil, p.errorAt(parseErrors.CodeMissingPreProcessorParams, start, end, name)
		}
		rule.Params = p.valuePtr(restStart, restEnd)

	case directiveSafariCbAffinity:
		if !hasParams {
			break
		}
		if nameEnd >= end || p.raw[nameEnd] != '(' {
			return nil, p.errorAt(parseErrors.CodeUnexpectedCharacter, restStart, restStart+1, string(p.raw[restStart]))
		}
		closeIdx := scanner.FindMatchingParen(p.raw[:end], nameEnd)
		if closeIdx < 0 {
			return nil, p.errorAt(parseErrors.CodeUnclosedParenthesis, nameEnd, end)
		}
		if closeIdx != end-1 {
			return nil, p.errorAt(parseErrors.CodeUnexpectedCharacter, closeIdx+1, closeIdx+2, string(p.raw[closeIdx+1]))
		}
		rule.Params = p.parameterList(nameEnd+1, closeIdx, ',', false)

	default:
		if hasParams {
			rule.Params = p.valuePtr(restStart, restEnd)
		}
	}
	return rule, nil
}

// parseMetadata returns nil when the comment is not a known `Header: value`
// pair.
func (p *parser) parseMetadata(start, end int) *ast.MetadataCommentRule {
	headerStart := scanner.SkipWS(p.raw[:end], start+1)
	colon := strings.IndexByte(p.raw[headerStart:end], ':')
	if colon <= 0 {
		return nil
	}
	colon += headerStart

	hs, he := scanner.TrimmedBounds(p.raw, headerStart, colon)
	if !metadataHeaders[strings.ToLower(p.raw[hs:he])] {
		return nil
	}
	vs, ve := scanner.TrimmedBounds(p.raw, colon+1, end)
	if vs == ve {
		return nil
	}

	return &ast.MetadataCommentRule{
		RuleBase: p.ruleBase(start, end, ast.SyntaxCommon),
		Marker:   p.value(start, start+1),
		Header:   p.value(hs, he),
		Value:    p.value(vs, ve),
	}
}

func (p *parser) parseConfigComment(start, end int) (*ast.ConfigCommentRule, bool, error) {
	cmdStart := scanner.SkipWS(p.raw[:end], start+1)
	if !hasPrefixAt(p.raw, cmdStart, configCommentPrefix) {
		return nil, false, nil
	}
	cmdEnd := cmdStart
	for cmdEnd < end && !scanner.IsWhitespace(p.raw[cmdEnd]) {
		cmdEnd++
	}
	if !configCommands[p.raw[cmdStart:cmdEnd]] {
		return nil, false, nil
	}

	rule := &ast.ConfigCommentRule{
		RuleBase: p.ruleBase(start, end, ast.SyntaxCommon),
		Marker:   p.value(start, start+1),
		Command:  p.value(cmdStart, cmdEnd),
	}

	paramsEnd := end
	if sep := findConfigCommentSeparator(p.raw, cmdEnd, end); sep >= 0 {
		paramsEnd = sep
		cs, ce := scanner.TrimmedBounds(p.raw, sep+len(configCommentSep), end)
		rule.Comment = p.valuePtr(cs, ce)
	}

	ps, pe := scanner.TrimmedBounds(p.raw, cmdEnd, paramsEnd)
	if p.raw[cmdStart:cmdEnd] == configCommentPrefix {
		if ps == pe {
			return nil, true, p.errorAt(parseErrors.CodeInvalidConfigParams, start, end, "missing configuration object")
		}
		var obj map[string]any
		if err := yaml.Unmarshal([]byte("{"+p.raw[ps:pe]+"}"), &obj); err != nil {
			return nil, true, p.errorAt(parseErrors.CodeInvalidConfigParams, ps, pe, err.Error())
		}
		rule.Params = &ast.ConfigNode{Base: ast.Base{Loc: p.loc(ps, pe)}, Value: obj}
		return rule, true, nil
	}

	if ps < pe {
		list := p.parameterList(ps, pe, ',', false)
		for _, child := range list.Children {
			if child == nil {
				return nil, true, p.errorAt(parseErrors.CodeEmptyParameter, ps, pe)
			}
		}
		rule.Params = list
	}
	return rule, true, nil
}

// findConfigCommentSeparator returns the index of a ` -- ` separator outside
// quotes, or -1.
func findConfigCommentSeparator(raw string, from, to int) int {
	for i := from; i < to-1; {
		j := scanner.FindUnescapedOutsideQuotes(raw[:to], i, '-')
		if j < 0 || j+1 >= to {
			return -1
		}
		if raw[j+1] == '-' && scanner.IsWhitespace(raw[j-1]) && (j+2 == to || scanner.IsWhitespace(raw[j+2])) {
			return j
		}
		i = j + 1
	}
	return -1
}
