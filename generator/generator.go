// Package generator turns AST nodes back into canonical rule text.
//
// Generation is the inverse of parsing up to canonicalization: whitespace is
// normalized, list separators get a fixed spelling and uBO options folded out
// of a selector are emitted in a fixed order. Parsing the generated text gives
// back an equal AST.
package generator

import (
	"fmt"
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
)

// Generate renders any rule, list or selector node.
func Generate(node ast.Node) (string, error) {
	switch n := node.(type) {
	case ast.Rule:
		return GenerateRule(n)
	case *ast.FilterList:
		return GenerateFilterList(n)
	case *ast.SelectorList:
		return GenerateSelectorList(n)
	case *ast.ModifierList:
		return modifierList(n), nil
	case *ast.DomainList:
		return domainList(*n), nil
	case *ast.ParameterList:
		return parameterList(n, ", "), nil
	case ast.Expression:
		return expression(n)
	}
	return "", unsupported(node)
}

// GenerateFilterList renders every rule of list on its own line.
func GenerateFilterList(list *ast.FilterList) (string, error) {
	lines := make([]string, 0, len(list.Children))
	for _, rule := range list.Children {
		line, err := GenerateRule(rule)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// GenerateRule renders a single rule.
func GenerateRule(rule ast.Rule) (string, error) {
	switch r := rule.(type) {
	case *ast.EmptyRule:
		return "", nil
	case *ast.InvalidRule:
		return r.Raw, nil
	case *ast.CommentRule, *ast.AgentCommentRule, *ast.HintCommentRule,
		*ast.PreProcessorCommentRule, *ast.MetadataCommentRule, *ast.ConfigCommentRule:
		return comment(r)
	case *ast.NetworkRule:
		return network(r), nil
	case *ast.HostRule:
		return host(r), nil
	case ast.CosmeticRule:
		return cosmetic(r)
	}
	return "", unsupported(rule)
}

func unsupported(node any) error {
	return fmt.Errorf("%w: %T", parseErrors.ErrUnsupportedNode, node)
}

func joinValues(values []*ast.Value, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			parts[i] = v.Value
		}
	}
	return strings.Join(parts, sep)
}

func parameterList(list *ast.ParameterList, sep string) string {
	if list == nil {
		return ""
	}
	return joinValues(list.Children, sep)
}
