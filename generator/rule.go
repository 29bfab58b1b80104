package generator

import (
	"fmt"
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/parser"
)

func network(r *ast.NetworkRule) string {
	var b strings.Builder
	if r.Exception {
		b.WriteString("@@")
	}
	b.WriteString(r.Pattern.Value)
	if r.Modifiers != nil && len(r.Modifiers.Children) > 0 {
		b.WriteByte('$')
		b.WriteString(modifierList(r.Modifiers))
	}
	return b.String()
}

func host(r *ast.HostRule) string {
	out := r.IP.Value + " " + joinValues(r.Hostnames.Children, " ")
	if r.Comment != nil {
		out += " # " + r.Comment.Value
	}
	return out
}

func modifierList(list *ast.ModifierList) string {
	parts := make([]string, len(list.Children))
	for i, m := range list.Children {
		var b strings.Builder
		if m.Exception {
			b.WriteByte('~')
		}
		b.WriteString(m.Name.Value)
		if m.Value != nil {
			b.WriteByte('=')
			b.WriteString(m.Value.Value)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ",")
}

func domainList(list ast.DomainList) string {
	parts := make([]string, len(list.Children))
	for i, d := range list.Children {
		if d.Exception {
			parts[i] = "~" + d.Value
		} else {
			parts[i] = d.Value
		}
	}
	return strings.Join(parts, ",")
}

func isElementHidingSeparator(sep string) bool {
	return sep == parser.SepElementHiding || sep == parser.SepElementHidingException
}

func cosmetic(rule ast.CosmeticRule) (string, error) {
	base := rule.Cosmetic()

	// uBO options live inside the selector, everything else in `[$...]`.
	inline := base.Syntax == ast.SyntaxUbo
	hasModifiers := base.Modifiers != nil && len(base.Modifiers.Children) > 0

	var b strings.Builder
	if hasModifiers && !inline {
		b.WriteString("[$")
		b.WriteString(modifierList(base.Modifiers))
		b.WriteByte(']')
	}
	b.WriteString(domainList(base.Domains))
	b.WriteString(base.Separator.Value)

	body, err := cosmeticBody(rule, inline)
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	return b.String(), nil
}

func cosmeticBody(rule ast.CosmeticRule, inline bool) (string, error) {
	base := rule.Cosmetic()
	sep := base.Separator.Value

	switch r := rule.(type) {
	case *ast.ElementHidingRule:
		if !inline {
			return r.Body.SelectorList.Value, nil
		}
		prefix, err := uboOptions(base.Modifiers)
		if err != nil {
			return "", err
		}
		return prefix + r.Body.SelectorList.Value, nil

	case *ast.CssInjectionRule:
		return cssInjection(r, sep, inline)

	case *ast.ScriptletInjectionRule:
		return scriptlet(r, sep)

	case *ast.JsInjectionRule:
		return r.Body.Value, nil

	case *ast.HtmlFilteringRule:
		if isElementHidingSeparator(sep) {
			return "^" + r.Body.Value, nil
		}
		return r.Body.Value, nil
	}
	return "", unsupported(rule)
}

// uboOptions renders folded uBO modifiers as the pseudo-classes they came
// from, `:matches-path()` first.
func uboOptions(list *ast.ModifierList) (string, error) {
	if list == nil {
		return "", nil
	}
	var path, media string
	for _, m := range list.Children {
		if m.Value == nil {
			return "", fmt.Errorf("%w: uBO option %q without value", parseErrors.ErrUnsupportedNode, m.Name.Value)
		}
		switch m.Name.Value {
		case parser.ModifierMatchesPath:
			path = ":matches-path(" + m.Value.Value + ")"
			if m.Exception {
				path = ":not(" + path + ")"
			}
		case parser.ModifierMatchesMedia:
			media = ":matches-media(" + m.Value.Value + ")"
		default:
			return "", fmt.Errorf("%w: uBO option %q", parseErrors.ErrUnsupportedNode, m.Name.Value)
		}
	}
	return path + media, nil
}

func cssInjection(r *ast.CssInjectionRule, sep string, inline bool) (string, error) {
	body := r.Body

	if isElementHidingSeparator(sep) && inline {
		out, err := uboOptions(r.Modifiers)
		if err != nil {
			return "", err
		}
		if body.MediaQueryList != nil {
			out += ":matches-media(" + body.MediaQueryList.Value + ")"
		}
		out += body.SelectorList.Value
		if body.Remove {
			return out + ":remove()", nil
		}
		if body.DeclarationList == nil {
			return "", fmt.Errorf("%w: css injection without declarations", parseErrors.ErrUnsupportedNode)
		}
		return out + ":style(" + body.DeclarationList.Value + ")", nil
	}

	block, err := cssBlock(body)
	if err != nil {
		return "", err
	}
	if body.MediaQueryList != nil {
		return "@media " + body.MediaQueryList.Value + " { " + block + " }", nil
	}
	return block, nil
}

func cssBlock(body ast.CssInjectionRuleBody) (string, error) {
	if body.Remove {
		return body.SelectorList.Value + " { remove: true; }", nil
	}
	if body.DeclarationList == nil {
		return "", fmt.Errorf("%w: css injection without declarations", parseErrors.ErrUnsupportedNode)
	}
	return body.SelectorList.Value + " { " + body.DeclarationList.Value + " }", nil
}

func scriptlet(r *ast.ScriptletInjectionRule, sep string) (string, error) {
	calls := r.Body.Children

	switch sep {
	case parser.SepJsInjection, parser.SepJsInjectionException:
		if len(calls) == 0 {
			return "//scriptlet()", nil
		}
		return "//scriptlet(" + parameterList(calls[0], ", ") + ")", nil

	case parser.SepElementHiding, parser.SepElementHidingException:
		if len(calls) == 0 {
			return "+js()", nil
		}
		return "+js(" + parameterList(calls[0], ", ") + ")", nil

	case parser.SepCssInjection, parser.SepCssInjectionException:
		parts := make([]string, len(calls))
		for i, call := range calls {
			parts[i] = parameterList(call, " ")
		}
		return strings.Join(parts, "; "), nil
	}
	return "", fmt.Errorf("%w: scriptlet with separator %q", parseErrors.ErrUnsupportedNode, sep)
}
