package parser

import (
	"strings"

	"agtree/ast"
	"agtree/css"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

const (
	adgModifierListOpen     = "[$"
	adgModifierListClose    = ']'
	uboScriptletPrefix      = "+js("
	uboHtmlFilterPrefix     = '^'
	uboResponseHeaderPrefix = "responseheader("
	adgScriptletPrefix      = "//scriptlet("
	cssMediaPrefix          = "@media"
)

// cosmeticContext carries the state shared by the body parsers of one rule.
type cosmeticContext struct {
	base      ast.CosmeticRuleBase
	sep       separator
	bodyStart int
	bodyEnd   int

	// ubo is set for `##` and `#@#` bodies that went through the uBO
	// selector splitter.
	ubo *uboSelector
}

// bodyParser returns nil, nil when its pre-check does not match the body.
type bodyParser func(p *parser, c *cosmeticContext) (ast.CosmeticRule, error)

// bodyParsers lists the candidate body parsers per separator. The order is a
// precedence list: each candidate's pre-check may shadow the ones after it.
var bodyParsers = map[string][]bodyParser{
	SepElementHiding:              {parseUboHtmlFiltering, parseUboScriptlet, parseUboCssInjection, parseAbpCssInjection, parseElementHiding},
	SepElementHidingException:     {parseUboHtmlFiltering, parseUboScriptlet, parseUboCssInjection, parseAbpCssInjection, parseElementHiding},
	SepExtendedHiding:             {parseElementHiding},
	SepExtendedHidingException:    {parseElementHiding},
	SepCssInjection:               {parseAdgCssInjection, parseAbpSnippet},
	SepCssInjectionException:      {parseAdgCssInjection, parseAbpSnippet},
	SepExtendedCssInjection:       {parseAdgCssInjection},
	SepExtendedCssInjectionExcept: {parseAdgCssInjection},
	SepJsInjection:                {parseAdgScriptlet, parseAdgJsInjection},
	SepJsInjectionException:       {parseAdgScriptlet, parseAdgJsInjection},
	SepHtmlFiltering:              {parseAdgHtmlFiltering},
	SepHtmlFilteringException:     {parseAdgHtmlFiltering},
}

func (p *parser) parseCosmetic(start, end int, sep separator) (ast.CosmeticRule, error) {
	c := &cosmeticContext{
		sep: sep,
		base: ast.CosmeticRuleBase{
			RuleBase:  p.ruleBase(start, end, ast.SyntaxCommon),
			Exception: sep.IsException(),
			Separator: p.value(sep.Start, sep.End),
		},
	}

	// 1. Body
	c.bodyStart, c.bodyEnd = scanner.TrimmedBounds(p.raw, sep.End, end)
	if c.bodyStart == c.bodyEnd {
		return nil, p.errorAt(parseErrors.CodeEmptyRuleBody, sep.End, end)
	}

	// 2. Pattern: optional AdGuard modifier list, then the domain list
	ps, pe := scanner.TrimmedBounds(p.raw, start, sep.Start)
	if strings.HasPrefix(p.raw[ps:pe], adgModifierListOpen) {
		closeIdx := modifierListClose(p.raw, ps, pe)
		if closeIdx < 0 {
			return nil, p.errorAt(parseErrors.CodeModifierListUnclosed, ps, pe)
		}
		mods, err := p.parseModifierList(ps+len(adgModifierListOpen), closeIdx, ps)
		if err != nil {
			return nil, err
		}
		if err := p.commitSyntax(&c.base.Syntax, ast.SyntaxAdg, ps, closeIdx+1); err != nil {
			return nil, err
		}
		c.base.Modifiers = mods
		ps = closeIdx + 1
	}

	domains, err := p.parseDomainList(ps, pe)
	if err != nil {
		return nil, err
	}
	c.base.Domains = domains

	// 3. uBO selector splitting
	if sep.Value == SepElementHiding || sep.Value == SepElementHidingException {
		body := p.raw[c.bodyStart:c.bodyEnd]
		if body[0] != uboHtmlFilterPrefix && !strings.HasPrefix(body, uboScriptletPrefix) {
			u, err := p.splitUboSelector(c.bodyStart, c.bodyEnd)
			if err != nil {
				return nil, err
			}
			if u.detected() {
				if err := p.commitSyntax(&c.base.Syntax, ast.SyntaxUbo, u.first.Start, u.first.End); err != nil {
					return nil, err
				}
			}
			c.ubo = u
		}
	}

	// 4. Body parsers, first match wins
	for _, parse := range bodyParsers[sep.Value] {
		rule, err := parse(p, c)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			return rule, nil
		}
	}
	return nil, p.errorAt(parseErrors.CodeInvalidBody, c.bodyStart, c.bodyEnd, sep.Value)
}

func (c *cosmeticContext) body(p *parser) string {
	return p.raw[c.bodyStart:c.bodyEnd]
}

func (c *cosmeticContext) commit(p *parser, syntax ast.Syntax) error {
	return p.commitSyntax(&c.base.Syntax, syntax, c.bodyStart, c.bodyEnd)
}

func (p *parser) validateSelector(start, end int, text string) error {
	_, err := css.ParseSelectorList(text, css.Options{
		Offset:          p.base + start,
		MaxNestingDepth: p.opts.depth(),
	})
	return err
}

func parseElementHiding(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	start, end, text := c.bodyStart, c.bodyEnd, c.body(p)
	if c.ubo != nil {
		start, end, text = c.ubo.start, c.ubo.end, c.ubo.selector
		if mods := c.ubo.elementHidingModifiers(); mods != nil {
			c.base.Modifiers = mods
		}
	}
	if err := p.validateSelector(start, end, text); err != nil {
		return nil, err
	}

	return &ast.ElementHidingRule{
		CosmeticRuleBase: c.base,
		Body: ast.ElementHidingRuleBody{
			Base:         ast.Base{Loc: p.loc(c.bodyStart, c.bodyEnd)},
			SelectorList: ast.Value{Base: ast.Base{Loc: p.loc(start, end)}, Value: text},
		},
	}, nil
}

func parseUboHtmlFiltering(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if p.raw[c.bodyStart] != uboHtmlFilterPrefix {
		return nil, nil
	}
	if err := c.commit(p, ast.SyntaxUbo); err != nil {
		return nil, err
	}
	s, e := scanner.TrimmedBounds(p.raw, c.bodyStart+1, c.bodyEnd)
	if s == e {
		return nil, p.errorAt(parseErrors.CodeEmptyRuleBody, c.bodyStart, c.bodyEnd)
	}
	if err := p.validateUboHtmlBody(s, e); err != nil {
		return nil, err
	}
	return &ast.HtmlFilteringRule{CosmeticRuleBase: c.base, Body: p.value(s, e)}, nil
}

// validateUboHtmlBody checks a `##^` body: `responseheader(name)` or a
// selector.
func (p *parser) validateUboHtmlBody(start, end int) error {
	if !strings.HasPrefix(p.raw[start:end], uboResponseHeaderPrefix) {
		return p.validateSelector(start, end, p.raw[start:end])
	}
	open := start + len(uboResponseHeaderPrefix) - 1
	closeIdx := scanner.FindMatchingParen(p.raw[:end], open)
	if closeIdx < 0 {
		return p.errorAt(parseErrors.CodeUnclosedParenthesis, open, end)
	}
	if closeIdx != end-1 {
		return p.errorAt(parseErrors.CodeUnexpectedCharacter, closeIdx+1, end, string(p.raw[closeIdx+1]))
	}
	if s, e := scanner.TrimmedBounds(p.raw, open+1, closeIdx); s == e {
		return p.errorAt(parseErrors.CodeUboEmptyArgument, start, end, "responseheader")
	}
	return nil
}

func parseAdgHtmlFiltering(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if err := c.commit(p, ast.SyntaxAdg); err != nil {
		return nil, err
	}
	if err := p.validateSelector(c.bodyStart, c.bodyEnd, c.body(p)); err != nil {
		return nil, err
	}
	return &ast.HtmlFilteringRule{CosmeticRuleBase: c.base, Body: p.value(c.bodyStart, c.bodyEnd)}, nil
}

func parseUboCssInjection(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if c.ubo == nil || !c.ubo.injection {
		return nil, nil
	}
	u := c.ubo
	if err := p.validateSelector(u.start, u.end, u.selector); err != nil {
		return nil, err
	}

	if u.path != nil {
		c.base.Modifiers = &ast.ModifierList{Base: ast.Base{Loc: u.path.Loc}, Children: []*ast.Modifier{u.path}}
	}
	body := ast.CssInjectionRuleBody{
		Base:            ast.Base{Loc: p.loc(c.bodyStart, c.bodyEnd)},
		SelectorList:    ast.Value{Base: ast.Base{Loc: p.loc(u.start, u.end)}, Value: u.selector},
		DeclarationList: u.style,
		Remove:          u.remove,
	}
	if u.media != nil {
		body.MediaQueryList = u.media.Value
	}
	return &ast.CssInjectionRule{CosmeticRuleBase: c.base, Body: body}, nil
}

// looksLikeCssBlock is the pre-check for `selector { declarations }` bodies.
func looksLikeCssBlock(raw string, start, end int) bool {
	return raw[end-1] == '}' && scanner.FindUnescapedOutsideQuotes(raw[:end], start, '{') >= 0
}

func parseAbpCssInjection(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	if !looksLikeCssBlock(p.raw, c.bodyStart, c.bodyEnd) {
		return nil, nil
	}
	if err := c.commit(p, ast.SyntaxAbp); err != nil {
		return nil, err
	}
	body, err := p.parseCssBlock(c.bodyStart, c.bodyEnd)
	if err != nil {
		return nil, err
	}
	body.Loc = p.loc(c.bodyStart, c.bodyEnd)
	return &ast.CssInjectionRule{CosmeticRuleBase: c.base, Body: body}, nil
}

func parseAdgCssInjection(p *parser, c *cosmeticContext) (ast.CosmeticRule, error) {
	media := hasPrefixFold(c.body(p), cssMediaPrefix)
	if !media && !looksLikeCssBlock(p.raw, c.bodyStart, c.bodyEnd) {
		return nil, nil
	}
	if err := c.commit(p, ast.SyntaxAdg); err != nil {
		return nil, err
	}

	if !media {
		body, err := p.parseCssBlock(c.bodyStart, c.bodyEnd)
		if err != nil {
			return nil, err
		}
		body.Loc = p.loc(c.bodyStart, c.bodyEnd)
		return &ast.CssInjectionRule{CosmeticRuleBase: c.base, Body: body}, nil
	}

	// @media <query> { <selector> { <declarations> } }
	open := scanner.FindUnescapedOutsideQuotes(p.raw[:c.bodyEnd], c.bodyStart, '{')
	if open < 0 || p.raw[c.bodyEnd-1] != '}' {
		return nil, p.errorAt(parseErrors.CodeInvalidCssInjection, c.bodyStart, c.bodyEnd, "media query must be followed by a block")
	}
	ms, me := scanner.TrimmedBounds(p.raw, c.bodyStart+len(cssMediaPrefix), open)
	if ms == me {
		return nil, p.errorAt(parseErrors.CodeInvalidCssInjection, c.bodyStart, open, "empty media query")
	}
	is, ie := scanner.TrimmedBounds(p.raw, open+1, c.bodyEnd-1)
	if is == ie || !looksLikeCssBlock(p.raw, is, ie) {
		return nil, p.errorAt(parseErrors.CodeInvalidCssInjection, open, c.bodyEnd, "media block must contain a style rule")
	}
	body, err := p.parseCssBlock(is, ie)
	if err != nil {
		return nil, err
	}
	body.Loc = p.loc(c.bodyStart, c.bodyEnd)
	body.MediaQueryList = p.valuePtr(ms, me)
	return &ast.CssInjectionRule{CosmeticRuleBase: c.base, Body: body}, nil
}

// parseCssBlock parses `selector { declarations }` in raw[start:end].
func (p *parser) parseCssBlock(start, end int) (ast.CssInjectionRuleBody, error) {
	var body ast.CssInjectionRuleBody

	open := scanner.FindUnescapedOutsideQuotes(p.raw[:end], start, '{')
	if open < 0 || p.raw[end-1] != '}' {
		return body, p.errorAt(parseErrors.CodeInvalidCssInjection, start, end, "expected a declaration block")
	}
	ss, se := scanner.TrimmedBounds(p.raw, start, open)
	if ss == se {
		return body, p.errorAt(parseErrors.CodeInvalidCssInjection, start, open+1, "missing selector")
	}
	if err := p.validateSelector(ss, se, p.raw[ss:se]); err != nil {
		return body, err
	}
	body.SelectorList = p.value(ss, se)

	ds, de := scanner.TrimmedBounds(p.raw, open+1, end-1)
	if ds == de {
		return body, p.errorAt(parseErrors.CodeInvalidCssInjection, open, end, "empty declaration block")
	}
	if isRemoveDeclaration(p.raw[ds:de]) {
		body.Remove = true
	} else {
		body.DeclarationList = p.valuePtr(ds, de)
	}
	return body, nil
}

// isRemoveDeclaration reports whether decl is `remove: true;`.
func isRemoveDeclaration(decl string) bool {
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, strings.ToLower(decl))
	return compact == "remove:true;" || compact == "remove:true"
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
