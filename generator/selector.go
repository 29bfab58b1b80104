package generator

import (
	"fmt"
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

// GenerateSelectorList renders a selector list. Descendant combinators become
// a single space, other combinators are surrounded by spaces and attribute
// values are always double-quoted.
func GenerateSelectorList(list *ast.SelectorList) (string, error) {
	if list == nil || len(list.Children) == 0 {
		return "", fmt.Errorf("%w: empty selector list", parseErrors.ErrUnsupportedNode)
	}
	parts := make([]string, len(list.Children))
	for i, cs := range list.Children {
		s, err := complexSelector(cs)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func complexSelector(c *ast.ComplexSelector) (string, error) {
	if c == nil || len(c.Children) == 0 {
		return "", fmt.Errorf("%w: empty complex selector", parseErrors.ErrUnsupportedNode)
	}

	var b strings.Builder
	for i, node := range c.Children {
		comb, isComb := node.(*ast.SelectorCombinator)
		if isComb && (i == 0 || i == len(c.Children)-1) {
			return "", fmt.Errorf("%w: combinator %q at the edge of a selector", parseErrors.ErrUnsupportedNode, comb.Value)
		}
		if isComb {
			if comb.Value == ast.CombinatorDescendant {
				b.WriteByte(' ')
			} else {
				b.WriteString(" " + comb.Value + " ")
			}
			continue
		}
		if err := simpleSelector(&b, node); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func simpleSelector(b *strings.Builder, node ast.SelectorNode) error {
	switch n := node.(type) {
	case *ast.TypeSelector:
		b.WriteString(n.Value)
	case *ast.IdSelector:
		b.WriteString("#" + n.Value)
	case *ast.ClassSelector:
		b.WriteString("." + n.Value)
	case *ast.AttributeSelector:
		b.WriteString("[" + n.Name.Value)
		if n.Operator != nil && n.Value != nil {
			b.WriteString(n.Operator.Value)
			b.WriteString(`"` + escapeDoubleQuotes(n.Value.Value) + `"`)
			if n.Flag != nil {
				b.WriteString(" " + n.Flag.Value)
			}
		}
		b.WriteByte(']')
	case *ast.PseudoClassSelector:
		b.WriteString(":" + n.Name.Value)
		writeArgument(b, n.Argument)
	case *ast.PseudoElementSelector:
		b.WriteString("::" + n.Name.Value)
		writeArgument(b, n.Argument)
	default:
		return unsupported(node)
	}
	return nil
}

func writeArgument(b *strings.Builder, arg *ast.Value) {
	if arg != nil {
		b.WriteString("(" + arg.Value + ")")
	}
}

// escapeDoubleQuotes escapes every unescaped `"` in s.
func escapeDoubleQuotes(s string) string {
	if !strings.Contains(s, `"`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && !scanner.IsEscaped(s, i) {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
