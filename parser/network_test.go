package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/ast"
	parseErrors "agtree/errors"
)

type modifierView struct {
	name      string
	value     string
	exception bool
}

func modifiers(list *ast.ModifierList) []modifierView {
	if list == nil {
		return nil
	}
	var out []modifierView
	for _, m := range list.Children {
		v := modifierView{name: m.Name.Value, exception: m.Exception}
		if m.Value != nil {
			v.value = m.Value.Value
		}
		out = append(out, v)
	}
	return out
}

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		raw       string
		exception bool
		pattern   string
		mods      []modifierView
	}{
		{"||example.org^", false, "||example.org^", nil},
		{"@@||example.org^", true, "||example.org^", nil},
		{"||example.org^$script,~third-party", false, "||example.org^", []modifierView{
			{name: "script"},
			{name: "third-party", exception: true},
		}},
		{"/ads$/$script", false, "/ads$/", []modifierView{{name: "script"}}},
		{`||example.org/\$path$domain=a.com|~b.com`, false, `||example.org/\$path`, []modifierView{
			{name: "domain", value: "a.com|~b.com"},
		}},
		{"||example.org^$ important , ~ image", false, "||example.org^", []modifierView{
			{name: "important"},
			{name: "image", exception: true},
		}},
		{"$script,domain=example.org", false, "", []modifierView{
			{name: "script"},
			{name: "domain", value: "example.org"},
		}},
		// a `$` not followed by a modifier stays in the pattern
		{"||example.org/$@foo", false, "||example.org/$@foo", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rule, ok := parse(t, tt.raw).(*ast.NetworkRule)
			require.True(t, ok)
			assert.Equal(t, tt.exception, rule.Exception)
			assert.Equal(t, tt.pattern, rule.Pattern.Value)
			assert.Equal(t, tt.mods, modifiers(rule.Modifiers))
		})
	}
}

func TestParseNetwork_RegexModifierValue(t *testing.T) {
	rule := parse(t, `@@/example/$m1,m2=v2,m3=/^r3\$/`).(*ast.NetworkRule)
	assert.True(t, rule.Exception)
	assert.Equal(t, "/example/", rule.Pattern.Value)
	assert.Equal(t, []modifierView{
		{name: "m1"},
		{name: "m2", value: "v2"},
		{name: "m3", value: `/^r3\$/`},
	}, modifiers(rule.Modifiers))

	rule = parse(t, `||example.org^$replace=/a,b/c/`).(*ast.NetworkRule)
	assert.Equal(t, []modifierView{{name: "replace", value: "/a,b/c/"}}, modifiers(rule.Modifiers))
}

func TestParseNetwork_Locations(t *testing.T) {
	opts := DefaultOptions()
	opts.IsLocIncluded = true
	rule, err := ParseNetwork("@@||a.b^$x=1", opts, 5)
	require.NoError(t, err)

	assert.Equal(t, &ast.Location{Start: 5, End: 17}, rule.Loc)
	assert.Equal(t, &ast.Location{Start: 7, End: 13}, rule.Pattern.Loc)
	require.NotNil(t, rule.Modifiers)
	assert.Equal(t, &ast.Location{Start: 14, End: 17}, rule.Modifiers.Loc)

	m := rule.Modifiers.Children[0]
	assert.Equal(t, &ast.Location{Start: 14, End: 17}, m.Loc)
	assert.Equal(t, &ast.Location{Start: 14, End: 15}, m.Name.Loc)
	assert.Equal(t, &ast.Location{Start: 16, End: 17}, m.Value.Loc)
}

func TestParseNetwork_Errors(t *testing.T) {
	tests := []struct {
		raw  string
		code parseErrors.Code
		loc  parseErrors.Location
	}{
		{"||example.org^$", parseErrors.CodeEmptyModifiers, parseErrors.Location{Start: 14, End: 15}},
		{"||example.org^$script,", parseErrors.CodeEmptyModifierName, parseErrors.Location{Start: 22, End: 22}},
		{"||example.org^$domain=", parseErrors.CodeEmptyModifierValue, parseErrors.Location{Start: 15, End: 22}},
		{"||example.org^$script,~=x", parseErrors.CodeEmptyModifierName, parseErrors.Location{Start: 22, End: 25}},
		{"@@", parseErrors.CodeNetworkRuleEmpty, parseErrors.Location{Start: 0, End: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			se := parseErr(t, tt.raw, DefaultOptions())
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.loc, se.Loc)
		})
	}
}

type rejectValidator struct{ name string }

func (v rejectValidator) ValidateModifier(m *ast.Modifier, _ ast.Syntax) error {
	if m.Name.Value == v.name {
		return errors.New("rejected")
	}
	return nil
}

func TestParseNetwork_ModifierValidator(t *testing.T) {
	opts := DefaultOptions()
	opts.IsLocIncluded = true
	opts.ModifierValidator = rejectValidator{name: "bad"}

	_, err := Parse("||a^$script", opts, 0)
	assert.NoError(t, err)

	se := parseErr(t, "||a^$script,bad", opts)
	assert.Equal(t, parseErrors.CodeInvalidModifier, se.Code)
	assert.Equal(t, parseErrors.Location{Start: 12, End: 15}, se.Loc)
	assert.Contains(t, se.Message, "rejected")
}

func TestParseHost(t *testing.T) {
	rule := parse(t, "127.0.0.1 localhost example.org # local names").(*ast.HostRule)
	assert.Equal(t, "127.0.0.1", rule.IP.Value)
	require.Len(t, rule.Hostnames.Children, 2)
	assert.Equal(t, "localhost", rule.Hostnames.Children[0].Value)
	assert.Equal(t, "example.org", rule.Hostnames.Children[1].Value)
	require.NotNil(t, rule.Comment)
	assert.Equal(t, "local names", rule.Comment.Value)

	rule = parse(t, "::1\tip6-localhost").(*ast.HostRule)
	assert.Equal(t, "::1", rule.IP.Value)
	assert.Nil(t, rule.Comment)

	se := parseErr(t, "0.0.0.0 bad/host", DefaultOptions())
	assert.Equal(t, parseErrors.CodeInvalidHostRule, se.Code)

	// A lone address is a network pattern
	assert.IsType(t, &ast.NetworkRule{}, parse(t, "0.0.0.0"))

	opts := DefaultOptions()
	opts.ParseHostRules = false
	network, err := Parse("127.0.0.1 localhost", opts, 0)
	require.NoError(t, err)
	assert.IsType(t, &ast.NetworkRule{}, network)
}
