package parser

import (
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

const (
	scriptletParamSeparator = ','
	snippetCallSeparator    = ';'
)

// scriptletCall returns the bounds of the argument text of `prefix...)`.
func (p *parser) scriptletCall(c *cosmeticContext, prefix string) (int, int, error) {
	open := c.bodyStart + len(prefix) - 1
	closeIdx := scanner.FindMatchingParen(p.raw[:c.bodyEnd], open)
	if closeIdx < 0 {
		return 0, 0, p.errorAt(parseErrors.CodeUnclosedParenthesis, open, c.bodyEnd)
	}
	if closeIdx != c.bodyEnd-1 {
		return 0, 0, p.errorAt(parseErrors.CodeInvalidScriptlet, closeIdx+1, c.bodyEnd, "unexpected text after the call")
	}
	return open + 1, closeIdx, nil
}

func parseUboScriptlet(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if !strings.HasPrefix(c.body(p), uboScriptletPrefix) {
		return nil, nil
	}
	if err := c.commit(p, ast.SyntaxUbo); err != nil {
		return nil, err
	}
	from, to, err := p.scriptletCall(c, uboScriptletPrefix)
	if err != nil {
		return nil, err
	}

	rule := &ast.ScriptletInjectionRule{CosmeticRuleBase: c.base}
	rule.Body.Loc = p.loc(c.bodyStart, c.bodyEnd)

	params := p.parameterList(from, to, scriptletParamSeparator, true)
	if len(params.Children) == 0 {
		if !c.base.Exception {
			return nil, p.errorAt(parseErrors.CodeInvalidScriptlet, c.bodyStart, c.bodyEnd, "empty scriptlet call is only allowed in exceptions")
		}
		return rule, nil
	}
	if params.Children[0] == nil {
		return nil, p.errorAt(parseErrors.CodeInvalidScriptlet, c.bodyStart, c.bodyEnd, "missing scriptlet name")
	}
	rule.Body.Children = []*ast.ParameterList{params}
	return rule, nil
}

func parseAdgScriptlet(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if !strings.HasPrefix(c.body(p), adgScriptletPrefix) {
		return nil, nil
	}
	if err := c.commit(p, ast.SyntaxAdg); err != nil {
		return nil, err
	}
	from, to, err := p.scriptletCall(c, adgScriptletPrefix)
	if err != nil {
		return nil, err
	}

	rule := &ast.ScriptletInjectionRule{CosmeticRuleBase: c.base}
	rule.Body.Loc = p.loc(c.bodyStart, c.bodyEnd)

	params := p.parameterList(from, to, scriptletParamSeparator, true)
	if len(params.Children) == 0 {
		if !c.base.Exception {
			return nil, p.errorAt(parseErrors.CodeInvalidScriptlet, c.bodyStart, c.bodyEnd, "empty scriptlet call is only allowed in exceptions")
		}
		return rule, nil
	}
	for _, param := range params.Children {
		if param == nil {
			return nil, p.errorAt(parseErrors.CodeEmptyParameter, from, to)
		}
		if !scanner.IsQuoted(param.Value) {
			start, end := p.valueBounds(param, from, to)
			return nil, p.errorAt(parseErrors.CodeInvalidScriptlet, start, end, "parameter "+param.Value+" must be quoted")
		}
	}
	rule.Body.Children = []*ast.ParameterList{params}
	return rule, nil
}

// valueBounds returns the local bounds of v, or [from, to) when locations are
// off.
func (p *parser) valueBounds(v *ast.Value, from, to int) (int, int) {
	if v.Loc != nil {
		return v.Loc.Start - p.base, v.Loc.End - p.base
	}
	return from, to
}

func parseAbpSnippet(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if err := c.commit(p, ast.SyntaxAbp); err != nil {
		return nil, err
	}

	rule := &ast.ScriptletInjectionRule{CosmeticRuleBase: c.base}
	rule.Body.Loc = p.loc(c.bodyStart, c.bodyEnd)

	for _, call := range scanner.SplitUnescaped(p.raw, c.bodyStart, c.bodyEnd, snippetCallSeparator, true) {
		if call.Start == call.End {
			continue
		}
		params := &ast.ParameterList{Base: ast.Base{Loc: p.loc(call.Start, call.End)}}
		args, open := quotedFields(p.raw, call.Start, call.End)
		if open >= 0 {
			return nil, p.errorAt(parseErrors.CodeUnterminatedString, open, call.End)
		}
		for _, arg := range args {
			params.Children = append(params.Children, p.valuePtr(arg.Start, arg.End))
		}
		rule.Body.Children = append(rule.Body.Children, params)
	}
	if len(rule.Body.Children) == 0 {
		return nil, p.errorAt(parseErrors.CodeInvalidScriptlet, c.bodyStart, c.bodyEnd, "no snippet calls")
	}
	return rule, nil
}

// quotedFields splits raw[from:to] on whitespace outside quotes. open is the
// index of a quote left unterminated, or -1.
func quotedFields(raw string, from, to int) (fields []scanner.Span, open int) {
	var quote byte
	open = -1
	fieldStart := -1
	for i := from; i < to; i++ {
		ch := raw[i]
		escaped := scanner.IsEscaped(raw, i)
		if quote != 0 {
			if ch == quote && !escaped {
				quote = 0
				open = -1
			}
			continue
		}
		if scanner.IsWhitespace(ch) && !escaped {
			if fieldStart >= 0 {
				fields = append(fields, scanner.Span{Start: fieldStart, End: i})
				fieldStart = -1
			}
			continue
		}
		if fieldStart < 0 {
			fieldStart = i
		}
		if (ch == '\'' || ch == '"') && !escaped {
			quote = ch
			open = i
		}
	}
	if fieldStart >= 0 {
		fields = append(fields, scanner.Span{Start: fieldStart, End: to})
	}
	return fields, open
}

func parseAdgJsInjection(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if err := c.commit(p, ast.SyntaxAdg); err != nil {
		return nil, err
	}
	return &ast.JsInjectionRule{CosmeticRuleBase: c.base, Body: p.value(c.bodyStart, c.bodyEnd)}, nil
}
