package generator

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"agtree/ast"
)

func comment(rule ast.Rule) (string, error) {
	switch r := rule.(type) {
	case *ast.CommentRule:
		return r.Marker.Value + r.Text.Value, nil

	case *ast.AgentCommentRule:
		agents := make([]string, len(r.Children))
		for i, a := range r.Children {
			agents[i] = a.Adblock.Value
			if a.Version != nil {
				agents[i] += " " + a.Version.Value
			}
		}
		return "[" + strings.Join(agents, "; ") + "]", nil

	case *ast.HintCommentRule:
		hints := make([]string, len(r.Children))
		for i, h := range r.Children {
			hints[i] = h.Name.Value
			if h.Params != nil {
				hints[i] += "(" + parameterList(h.Params, ", ") + ")"
			}
		}
		return "!+ " + strings.Join(hints, " "), nil

	case *ast.PreProcessorCommentRule:
		return preProcessor(r)

	case *ast.MetadataCommentRule:
		return r.Marker.Value + " " + r.Header.Value + ": " + r.Value.Value, nil

	case *ast.ConfigCommentRule:
		return configComment(r)
	}
	return "", unsupported(rule)
}

func preProcessor(r *ast.PreProcessorCommentRule) (string, error) {
	out := "!#" + r.Name.Value
	switch params := r.Params.(type) {
	case nil:
		return out, nil
	case *ast.Value:
		return out + " " + params.Value, nil
	case *ast.ParameterList:
		return out + "(" + parameterList(params, ",") + ")", nil
	case ast.Expression:
		expr, err := expression(params)
		if err != nil {
			return "", err
		}
		return out + " " + expr, nil
	}
	return "", unsupported(r.Params)
}

func expression(e ast.Expression) (string, error) {
	switch n := e.(type) {
	case *ast.ExpressionVariable:
		return n.Name, nil
	case *ast.ExpressionParenthesis:
		inner, err := expression(n.Expression)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case *ast.ExpressionOperator:
		left, err := expression(n.Left)
		if err != nil {
			return "", err
		}
		if n.Operator == ast.OperatorNot {
			return ast.OperatorNot + left, nil
		}
		right, err := expression(n.Right)
		if err != nil {
			return "", err
		}
		return left + " " + n.Operator + " " + right, nil
	}
	return "", unsupported(e)
}

func configComment(r *ast.ConfigCommentRule) (string, error) {
	out := r.Marker.Value + " " + r.Command.Value

	switch params := r.Params.(type) {
	case nil:
	case *ast.ParameterList:
		out += " " + parameterList(params, ", ")
	case *ast.ConfigNode:
		obj, err := configObject(params.Value)
		if err != nil {
			return "", err
		}
		out += " " + obj
	default:
		return "", unsupported(r.Params)
	}

	if r.Comment != nil {
		out += " -- " + r.Comment.Value
	}
	return out, nil
}

// configObject renders the members of obj as `"key": value` pairs in key
// order, without the surrounding braces.
func configObject(obj map[string]any) (string, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		key, _ := json.Marshal(k)
		val, err := json.Marshal(obj[k])
		if err != nil {
			return "", fmt.Errorf("encoding config value %q: %w", k, err)
		}
		pairs[i] = string(key) + ": " + string(val)
	}
	return strings.Join(pairs, ", "), nil
}
