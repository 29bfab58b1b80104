package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/ast"
	parseErrors "agtree/errors"
)

func params(list *ast.ParameterList) []string {
	var out []string
	for _, v := range list.Children {
		if v == nil {
			out = append(out, "")
			continue
		}
		out = append(out, v.Value)
	}
	return out
}

func TestParseCosmetic_Domains(t *testing.T) {
	rule := parse(t, "example.com, ~sub.example.com##.ad").(*ast.ElementHidingRule)
	require.Len(t, rule.Domains.Children, 2)
	assert.Equal(t, "example.com", rule.Domains.Children[0].Value)
	assert.False(t, rule.Domains.Children[0].Exception)
	assert.Equal(t, "sub.example.com", rule.Domains.Children[1].Value)
	assert.True(t, rule.Domains.Children[1].Exception)

	rule = parse(t, "example.com#@#.ad").(*ast.ElementHidingRule)
	assert.True(t, rule.Exception)
	assert.Equal(t, "#@#", rule.Separator.Value)

	assert.Equal(t, parseErrors.CodeEmptyDomain, parseErr(t, "a.com,,b.com##.ad", DefaultOptions()).Code)
	assert.Equal(t, parseErrors.CodeEmptyDomain, parseErr(t, "a.com,~##.ad", DefaultOptions()).Code)
}

func TestParseCosmetic_AdgModifiers(t *testing.T) {
	rule := parse(t, "[$path=/page,domain=example.com]##.ad").(*ast.ElementHidingRule)
	assert.Equal(t, ast.SyntaxAdg, rule.Syntax)
	assert.Equal(t, []modifierView{
		{name: "path", value: "/page"},
		{name: "domain", value: "example.com"},
	}, modifiers(rule.Modifiers))
	assert.Empty(t, rule.Domains.Children)

	se := parseErr(t, "[$]example.com##.ad", DefaultOptions())
	assert.Equal(t, parseErrors.CodeEmptyModifiers, se.Code)

	// `]` inside a regex value does not close the list
	rule = parse(t, "[$path=/a]##b/]example.com##.ad").(*ast.ElementHidingRule)
	assert.Equal(t, []modifierView{{name: "path", value: "/a]##b/"}}, modifiers(rule.Modifiers))
	require.Len(t, rule.Domains.Children, 1)
	assert.Equal(t, "example.com", rule.Domains.Children[0].Value)
	assert.Equal(t, ".ad", rule.Body.SelectorList.Value)

	rule = parse(t, "[$path=/page/,domain=a.com]##.ad").(*ast.ElementHidingRule)
	assert.Equal(t, []modifierView{
		{name: "path", value: "/page/"},
		{name: "domain", value: "a.com"},
	}, modifiers(rule.Modifiers))
}

func TestParseCosmetic_ElementHiding(t *testing.T) {
	rule := parse(t, "example.com##div.ad > span").(*ast.ElementHidingRule)
	assert.Equal(t, "div.ad > span", rule.Body.SelectorList.Value)
	assert.Nil(t, rule.Modifiers)

	rule = parse(t, "##.ad:not(.b)").(*ast.ElementHidingRule)
	assert.Equal(t, ".ad:not(.b)", rule.Body.SelectorList.Value)
	assert.Equal(t, ast.SyntaxCommon, rule.Syntax)

	se := parseErr(t, "example.com##a,,b", DefaultOptions())
	assert.Equal(t, parseErrors.CodeCommaPosition, se.Code)
	assert.Equal(t, parseErrors.Location{Start: 15, End: 16}, se.Loc)
}

func TestParseCosmetic_EmptyBody(t *testing.T) {
	tests := []struct {
		raw string
		loc parseErrors.Location
	}{
		{"example.com##", parseErrors.Location{Start: 13, End: 13}},
		{"example.com#$#   ", parseErrors.Location{Start: 14, End: 14}},
		{"##^", parseErrors.Location{Start: 2, End: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			se := parseErr(t, tt.raw, DefaultOptions())
			assert.Equal(t, parseErrors.CodeEmptyRuleBody, se.Code)
			assert.Equal(t, tt.loc, se.Loc)
		})
	}
}

func TestParseCosmetic_AdgCssInjection(t *testing.T) {
	rule := parse(t, "#$#.ad { color: red }").(*ast.CssInjectionRule)
	assert.Equal(t, ".ad", rule.Body.SelectorList.Value)
	require.NotNil(t, rule.Body.DeclarationList)
	assert.Equal(t, "color: red", rule.Body.DeclarationList.Value)
	assert.False(t, rule.Body.Remove)
	assert.Nil(t, rule.Body.MediaQueryList)

	rule = parse(t, "#$#.ad { remove: true; }").(*ast.CssInjectionRule)
	assert.True(t, rule.Body.Remove)
	assert.Nil(t, rule.Body.DeclarationList)

	rule = parse(t, "#$#@media (min-width: 100px) { .ad { color: red } }").(*ast.CssInjectionRule)
	require.NotNil(t, rule.Body.MediaQueryList)
	assert.Equal(t, "(min-width: 100px)", rule.Body.MediaQueryList.Value)
	assert.Equal(t, ".ad", rule.Body.SelectorList.Value)
	assert.Equal(t, "color: red", rule.Body.DeclarationList.Value)

	rule = parse(t, "#$?#.ad:has(.x) { display: none }").(*ast.CssInjectionRule)
	assert.Equal(t, "#$?#", rule.Separator.Value)

	for _, raw := range []string{
		"#$#.ad { }",
		"#$#{ color: red }",
		"#$#@media { .ad { color: red } }",
		"#$#@media (x) { }",
	} {
		se := parseErr(t, raw, DefaultOptions())
		assert.Equal(t, parseErrors.CodeInvalidCssInjection, se.Code, raw)
	}

	se := parseErr(t, "#$?#foo bar", DefaultOptions())
	assert.Equal(t, parseErrors.CodeInvalidBody, se.Code)
}

func TestParseCosmetic_UboCssInjection(t *testing.T) {
	rule := parse(t, "example.com##.ad:style(color: red !important)").(*ast.CssInjectionRule)
	assert.Equal(t, ast.SyntaxUbo, rule.Syntax)
	assert.Equal(t, ".ad", rule.Body.SelectorList.Value)
	assert.Equal(t, "color: red !important", rule.Body.DeclarationList.Value)

	rule = parse(t, "##.ad:remove()").(*ast.CssInjectionRule)
	assert.True(t, rule.Body.Remove)
	assert.Nil(t, rule.Body.DeclarationList)

	rule = parse(t, "##.ad:matches-media((min-width: 800px)):style(color: red)").(*ast.CssInjectionRule)
	require.NotNil(t, rule.Body.MediaQueryList)
	assert.Equal(t, "(min-width: 800px)", rule.Body.MediaQueryList.Value)
	assert.Equal(t, "color: red", rule.Body.DeclarationList.Value)

	rule = parse(t, "##:matches-path(/page) .ad:style(x: y)").(*ast.CssInjectionRule)
	assert.Equal(t, ".ad", rule.Body.SelectorList.Value)
	assert.Equal(t, []modifierView{{name: "matches-path", value: "/page"}}, modifiers(rule.Modifiers))
}

func TestParseCosmetic_UboCssInjectionLocations(t *testing.T) {
	opts := DefaultOptions()
	opts.IsLocIncluded = true
	rule, err := Parse("##body:style(padding: 0;)", opts, 0)
	require.NoError(t, err)

	css := rule.(*ast.CssInjectionRule)
	assert.Equal(t, &ast.Location{Start: 2, End: 6}, css.Body.SelectorList.Loc)
	assert.Equal(t, "padding: 0;", css.Body.DeclarationList.Value)
	assert.Equal(t, &ast.Location{Start: 13, End: 24}, css.Body.DeclarationList.Loc)
	assert.Equal(t, &ast.Location{Start: 2, End: 25}, css.Body.Loc)
}

func TestParseCosmetic_UboMatchesPath(t *testing.T) {
	tests := []struct {
		raw       string
		exception bool
	}{
		{"example.com##.ad:matches-path(/page)", false},
		{"example.com##.ad:not(:matches-path(/page))", true},
		{"example.com##.ad:not(:not(:matches-path(/page)))", false},
		{"example.com##.ad:not( :not( :not(:matches-path(/page)) ) )", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rule := parse(t, tt.raw).(*ast.ElementHidingRule)
			assert.Equal(t, ast.SyntaxUbo, rule.Syntax)
			assert.Equal(t, ".ad", rule.Body.SelectorList.Value)
			assert.Equal(t, []modifierView{
				{name: "matches-path", value: "/page", exception: tt.exception},
			}, modifiers(rule.Modifiers))
		})
	}

	rule := parse(t, "##.ad:matches-media(print)").(*ast.ElementHidingRule)
	assert.Equal(t, []modifierView{{name: "matches-media", value: "print"}}, modifiers(rule.Modifiers))
}

func TestParseCosmetic_UboModifierLocations(t *testing.T) {
	opts := DefaultOptions()
	opts.IsLocIncluded = true
	rule, err := Parse("##.ad:matches-media(print):matches-path(/p)", opts, 0)
	require.NoError(t, err)

	hiding := rule.(*ast.ElementHidingRule)
	require.NotNil(t, hiding.Modifiers)
	assert.Equal(t, &ast.Location{Start: 5, End: 43}, hiding.Modifiers.Loc)
	require.Len(t, hiding.Modifiers.Children, 2)
	assert.Equal(t, &ast.Location{Start: 26, End: 43}, hiding.Modifiers.Children[0].Loc)
	assert.Equal(t, &ast.Location{Start: 5, End: 26}, hiding.Modifiers.Children[1].Loc)
}

func TestParseCosmetic_UboErrors(t *testing.T) {
	tests := []struct {
		raw  string
		code parseErrors.Code
		loc  *parseErrors.Location
	}{
		{"##.a:style(color:red) .b", parseErrors.CodeUboStyleNotLast, &parseErrors.Location{Start: 4, End: 21}},
		{"##.a:remove(x)", parseErrors.CodeUboUnexpectedArgument, nil},
		{"##.a:style()", parseErrors.CodeUboEmptyArgument, nil},
		{"##.a:matches-path()", parseErrors.CodeUboEmptyArgument, nil},
		{"##.a:matches-media(x):matches-media(y)", parseErrors.CodeUboDuplicatePseudo, nil},
		{"##.a:style(x:y):remove()", parseErrors.CodeUboStyleNotLast, nil},
		{"##div:has(:style(x))", parseErrors.CodeUboInvalidNesting, &parseErrors.Location{Start: 11, End: 17}},
		{"##.a:not(:style(x))", parseErrors.CodeUboInvalidNesting, nil},
		{"##.a:not(.b, :matches-path(/p))", parseErrors.CodeUboMatchesPathSibling, nil},
		{"##.a:matches-path(/a):not(:matches-path(/b))", parseErrors.CodeUboDuplicatePseudo, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			se := parseErr(t, tt.raw, DefaultOptions())
			assert.Equal(t, tt.code, se.Code)
			if tt.loc != nil {
				assert.Equal(t, *tt.loc, se.Loc)
			}
		})
	}
}

func TestParseCosmetic_UboNegationDepth(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNestingDepth = 2
	_, err := Parse("##.a:not(:not(:not(:matches-path(/p))))", opts, 0)
	assert.Equal(t, parseErrors.CodeNestingTooDeep, parseErrors.CodeOf(err))
}

func TestParseCosmetic_Scriptlets(t *testing.T) {
	rule := parse(t, "example.com##+js(set-constant, foo, 'a,b')").(*ast.ScriptletInjectionRule)
	assert.Equal(t, ast.SyntaxUbo, rule.Syntax)
	require.Len(t, rule.Body.Children, 1)
	assert.Equal(t, []string{"set-constant", "foo", "'a,b'"}, params(rule.Body.Children[0]))

	rule = parse(t, "example.com#@#+js()").(*ast.ScriptletInjectionRule)
	assert.True(t, rule.Exception)
	assert.Empty(t, rule.Body.Children)

	rule = parse(t, "example.com#%#//scriptlet('set-constant', 'foo', 'bar')").(*ast.ScriptletInjectionRule)
	assert.Equal(t, ast.SyntaxAdg, rule.Syntax)
	assert.Equal(t, []string{"'set-constant'", "'foo'", "'bar'"}, params(rule.Body.Children[0]))

	rule = parse(t, "#@%#//scriptlet()").(*ast.ScriptletInjectionRule)
	assert.Empty(t, rule.Body.Children)

	rule = parse(t, "example.com#$#log 'hello world'; abort-on-property-read foo").(*ast.ScriptletInjectionRule)
	assert.Equal(t, ast.SyntaxAbp, rule.Syntax)
	require.Len(t, rule.Body.Children, 2)
	assert.Equal(t, []string{"log", "'hello world'"}, params(rule.Body.Children[0]))
	assert.Equal(t, []string{"abort-on-property-read", "foo"}, params(rule.Body.Children[1]))

	for _, raw := range []string{
		"example.com##+js()",
		"##+js(, x)",
		"##+js(x) y",
		"#%#//scriptlet(foo)",
		"#%#//scriptlet()",
	} {
		se := parseErr(t, raw, DefaultOptions())
		assert.Equal(t, parseErrors.CodeInvalidScriptlet, se.Code, raw)
	}

	se := parseErr(t, "##+js(x", DefaultOptions())
	assert.Equal(t, parseErrors.CodeUnclosedParenthesis, se.Code)

	se = parseErr(t, "example.com#$#log 'abc", DefaultOptions())
	assert.Equal(t, parseErrors.CodeUnterminatedString, se.Code)
	assert.Equal(t, parseErrors.Location{Start: 18, End: 22}, se.Loc)

	se = parseErr(t, `#$#log "a b"; trace 'c`, DefaultOptions())
	assert.Equal(t, parseErrors.CodeUnterminatedString, se.Code)
}

func TestParseCosmetic_HtmlAndJs(t *testing.T) {
	html := parse(t, `example.com$$script[tag-content="ad"]`).(*ast.HtmlFilteringRule)
	assert.Equal(t, ast.SyntaxAdg, html.Syntax)
	assert.Equal(t, `script[tag-content="ad"]`, html.Body.Value)

	html = parse(t, "example.com$@$div").(*ast.HtmlFilteringRule)
	assert.True(t, html.Exception)

	html = parse(t, "example.com##^script:has-text(ad)").(*ast.HtmlFilteringRule)
	assert.Equal(t, ast.SyntaxUbo, html.Syntax)
	assert.Equal(t, "script:has-text(ad)", html.Body.Value)

	html = parse(t, "example.com##^responseheader(set-cookie)").(*ast.HtmlFilteringRule)
	assert.Equal(t, "responseheader(set-cookie)", html.Body.Value)

	js := parse(t, "example.com#%#window.x = 1;").(*ast.JsInjectionRule)
	assert.Equal(t, "window.x = 1;", js.Body.Value)
}

func TestParseCosmetic_HtmlFilteringErrors(t *testing.T) {
	tests := []struct {
		raw  string
		code parseErrors.Code
		loc  *parseErrors.Location
	}{
		{`example.com$$script[tag-content="ad"`, parseErrors.CodeAttributeUnclosed, &parseErrors.Location{Start: 19, End: 36}},
		{"example.com$$div[", parseErrors.CodeAttributeUnclosed, &parseErrors.Location{Start: 16, End: 17}},
		{"example.com$@$div >", parseErrors.CodeCombinatorPosition, nil},
		{"example.com##^script:has-text(ad", parseErrors.CodeUnclosedParenthesis, nil},
		{"example.com##^div[a=", parseErrors.CodeAttributeUnclosed, nil},
		{"example.com##^responseheader(x", parseErrors.CodeUnclosedParenthesis, nil},
		{"example.com##^responseheader( )", parseErrors.CodeUboEmptyArgument, nil},
		{"example.com##^responseheader(x) y", parseErrors.CodeUnexpectedCharacter, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			se := parseErr(t, tt.raw, DefaultOptions())
			assert.Equal(t, tt.code, se.Code)
			if tt.loc != nil {
				assert.Equal(t, *tt.loc, se.Loc)
			}
		})
	}
}
