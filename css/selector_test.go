package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/ast"
	parseErrors "agtree/errors"
)

func TestTokenize_CoversInput(t *testing.T) {
	src := `div.a > [b="c d"]:not(.e, #f)`
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	pos := 0
	for _, tok := range tokens {
		assert.Equal(t, pos, tok.Start)
		pos = tok.End
	}
	assert.Equal(t, len(src), pos)
}

func TestParseSelectorList_Simple(t *testing.T) {
	list, err := ParseSelectorList(`div.a#b[c="d" i]:not(.x)::before`, Options{})
	require.NoError(t, err)
	require.Len(t, list.Children, 1)

	children := list.Children[0].Children
	require.Len(t, children, 6)

	assert.Equal(t, &ast.TypeSelector{Value: "div"}, children[0])
	assert.Equal(t, &ast.ClassSelector{Value: "a"}, children[1])
	assert.Equal(t, &ast.IdSelector{Value: "b"}, children[2])
	assert.Equal(t, &ast.AttributeSelector{
		Name:     ast.Value{Value: "c"},
		Operator: ast.NewValue("="),
		Value:    ast.NewValue("d"),
		Flag:     ast.NewValue("i"),
	}, children[3])
	assert.Equal(t, &ast.PseudoClassSelector{Name: ast.Value{Value: "not"}, Argument: ast.NewValue(".x")}, children[4])
	assert.Equal(t, &ast.PseudoElementSelector{Name: ast.Value{Value: "before"}}, children[5])
}

func TestParseSelectorList_Combinators(t *testing.T) {
	list, err := ParseSelectorList("a > b + c ~ d e", Options{})
	require.NoError(t, err)
	require.Len(t, list.Children, 1)

	var combinators []string
	for _, n := range list.Children[0].Children {
		if c, ok := n.(*ast.SelectorCombinator); ok {
			combinators = append(combinators, c.Value)
		}
	}
	assert.Equal(t, []string{">", "+", "~", " "}, combinators)
}

func TestParseSelectorList_List(t *testing.T) {
	list, err := ParseSelectorList(" .a , div span ", Options{})
	require.NoError(t, err)
	require.Len(t, list.Children, 2)
	assert.Len(t, list.Children[0].Children, 1)
	assert.Len(t, list.Children[1].Children, 3)
}

func TestParseSelectorList_Attributes(t *testing.T) {
	tests := []struct {
		raw  string
		want *ast.AttributeSelector
	}{
		{"[a]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}}},
		{"[a=b]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("="), Value: ast.NewValue("b")}},
		{"[a~='b c']", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("~="), Value: ast.NewValue("b c")}},
		{"[ a ^= \"b\" ]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("^="), Value: ast.NewValue("b")}},
		{"[a$=b s]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("$="), Value: ast.NewValue("b"), Flag: ast.NewValue("s")}},
		{"[a*=b]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("*="), Value: ast.NewValue("b")}},
		{"[a|=b]", &ast.AttributeSelector{Name: ast.Value{Value: "a"}, Operator: ast.NewValue("|="), Value: ast.NewValue("b")}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			list, err := ParseSelectorList(tt.raw, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, list.Children[0].Children[0])
		})
	}
}

func TestParseSelectorList_Locations(t *testing.T) {
	list, err := ParseSelectorList("div span", Options{Offset: 10, IncludeLoc: true})
	require.NoError(t, err)

	assert.Equal(t, &ast.Location{Start: 10, End: 18}, list.Loc)
	children := list.Children[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, &ast.Location{Start: 10, End: 13}, children[0].Span())
	assert.Equal(t, &ast.Location{Start: 13, End: 14}, children[1].Span())
	assert.Equal(t, &ast.Location{Start: 14, End: 18}, children[2].Span())
}

func TestParseSelectorList_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		code  parseErrors.Code
		start int
		end   int
	}{
		{"type selector already set", `div[attr="value"]span`, parseErrors.CodeTypeSelectorAlreadySet, 17, 21},
		{"type selector not first", `.a*`, parseErrors.CodeTypeSelectorNotFirst, 2, 3},
		{"leading combinator", `>div`, parseErrors.CodeCombinatorPosition, 0, 1},
		{"trailing combinator", `div >`, parseErrors.CodeCombinatorPosition, 4, 5},
		{"adjacent combinators", `div > > a`, parseErrors.CodeCombinatorPosition, 6, 7},
		{"combinator after comma", `a, > b`, parseErrors.CodeCombinatorPosition, 3, 4},
		{"combinator before comma", `a >, b`, parseErrors.CodeCombinatorPosition, 2, 3},
		{"leading comma", `,a`, parseErrors.CodeCommaPosition, 0, 1},
		{"doubled comma", `a,,b`, parseErrors.CodeCommaPosition, 2, 3},
		{"trailing comma", `a,`, parseErrors.CodeCommaPosition, 1, 2},
		{"empty", `   `, parseErrors.CodeSelectorEmpty, 0, 3},
		{"attribute without name", `[]`, parseErrors.CodeAttributeName, 1, 2},
		{"attribute bad operator", `[a!b]`, parseErrors.CodeAttributeOperator, 2, 3},
		{"attribute without value", `[a=]`, parseErrors.CodeAttributeValue, 3, 4},
		{"attribute unclosed", `[a="b"`, parseErrors.CodeAttributeUnclosed, 0, 6},
		{"unclosed pseudo-class", `a:not(.b`, parseErrors.CodeUnclosedParenthesis, 2, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSelectorList(tt.raw, Options{})
			require.Error(t, err)

			var se *parseErrors.SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code, se.Message)
			assert.Equal(t, parseErrors.Location{Start: tt.start, End: tt.end}, se.Loc)
		})
	}
}

func TestParseSelectorList_NestingLimit(t *testing.T) {
	_, err := ParseSelectorList("a:not(:not(:not(.b)))", Options{MaxNestingDepth: 2})
	assert.Equal(t, parseErrors.CodeNestingTooDeep, parseErrors.CodeOf(err))

	_, err = ParseSelectorList("a:not(:not(:not(.b)))", Options{MaxNestingDepth: 3})
	assert.NoError(t, err)
}
