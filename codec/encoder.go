package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"agtree/ast"
	parseErrors "agtree/errors"
)

type encoder struct {
	out  *OutputByteBuffer
	locs bool
}

func (e *encoder) begin(tag uint8, base *ast.Base) {
	e.out.WriteUint8(tag)
	if e.locs && base.Loc != nil {
		e.out.WriteUint8(propLoc)
		e.location(base.Loc)
	}
}

func (e *encoder) end() {
	e.out.WriteUint8(propEnd)
}

func (e *encoder) location(l *ast.Location) {
	e.out.WriteUvarint(uint64(l.Start))
	e.out.WriteUvarint(uint64(l.End))
}

func (e *encoder) str(prop uint8, s string) {
	e.out.WriteUint8(prop)
	e.out.WriteString(s)
}

func (e *encoder) flag(prop uint8, v bool) {
	if v {
		e.out.WriteUint8(prop)
	}
}

func (e *encoder) uint(prop uint8, v int) {
	e.out.WriteUint8(prop)
	e.out.WriteUvarint(uint64(v))
}

// valuePayload writes a Value without a type tag: the string, then its
// location when locations are on.
func (e *encoder) valuePayload(v *ast.Value) {
	e.out.WriteString(v.Value)
	if !e.locs {
		return
	}
	if v.Loc == nil {
		e.out.WriteUint8(0)
		return
	}
	e.out.WriteUint8(1)
	e.location(v.Loc)
}

func (e *encoder) value(prop uint8, v ast.Value) {
	e.out.WriteUint8(prop)
	e.valuePayload(&v)
}

func (e *encoder) optValue(prop uint8, v *ast.Value) {
	if v != nil {
		e.value(prop, *v)
	}
}

func (e *encoder) child(prop uint8, n ast.Node) error {
	e.out.WriteUint8(prop)
	return e.node(n)
}

func (e *encoder) ruleBase(rb *ast.RuleBase) {
	e.str(propSyntax, string(rb.Syntax))
	if rb.Raws != nil {
		e.str(propRaws, rb.Raws.Text)
	}
}

func (e *encoder) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.FilterList:
		e.begin(tagFilterList, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, rule := range n.Children {
			if err := e.node(rule); err != nil {
				return err
			}
		}

	case *ast.EmptyRule:
		e.begin(tagEmptyRule, &n.Base)
		e.ruleBase(&n.RuleBase)

	case *ast.InvalidRule:
		e.begin(tagInvalidRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.str(propRaw, n.Raw)
		e.str(propErrorMessage, n.Error.Message)
		e.uint(propErrorStart, n.Error.Start)
		e.uint(propErrorEnd, n.Error.End)

	case *ast.CommentRule:
		e.begin(tagCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.value(propMarker, n.Marker)
		e.value(propText, n.Text)

	case *ast.AgentCommentRule:
		e.begin(tagAgentCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, a := range n.Children {
			if err := e.node(a); err != nil {
				return err
			}
		}

	case *ast.Agent:
		e.begin(tagAgent, &n.Base)
		e.value(propAdblock, n.Adblock)
		e.optValue(propVersion, n.Version)

	case *ast.HintCommentRule:
		e.begin(tagHintCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, h := range n.Children {
			if err := e.node(h); err != nil {
				return err
			}
		}

	case *ast.Hint:
		e.begin(tagHint, &n.Base)
		e.value(propName, n.Name)
		if n.Params != nil {
			if err := e.child(propParams, n.Params); err != nil {
				return err
			}
		}

	case *ast.PreProcessorCommentRule:
		e.begin(tagPreProcessorCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.value(propName, n.Name)
		if n.Params != nil {
			if err := e.child(propParams, n.Params); err != nil {
				return err
			}
		}

	case *ast.MetadataCommentRule:
		e.begin(tagMetadataCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.value(propMarker, n.Marker)
		e.value(propHeader, n.Header)
		e.value(propValue, n.Value)

	case *ast.ConfigCommentRule:
		e.begin(tagConfigCommentRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.value(propMarker, n.Marker)
		e.value(propCommand, n.Command)
		if n.Params != nil {
			if err := e.child(propParams, n.Params); err != nil {
				return err
			}
		}
		e.optValue(propComment, n.Comment)

	case *ast.ConfigNode:
		data, err := yaml.Marshal(n.Value)
		if err != nil {
			return fmt.Errorf("encoding config node: %w", err)
		}
		e.begin(tagConfigNode, &n.Base)
		e.str(propValue, string(data))

	case *ast.ParameterList:
		e.begin(tagParameterList, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, v := range n.Children {
			if v == nil {
				e.out.WriteUint8(tagNull)
				continue
			}
			e.out.WriteUint8(tagValue)
			e.valuePayload(v)
		}

	case *ast.Value:
		e.begin(tagValue, &n.Base)
		e.str(propValue, n.Value)

	case *ast.ExpressionVariable:
		e.begin(tagExpressionVariable, &n.Base)
		e.str(propName, n.Name)

	case *ast.ExpressionOperator:
		e.begin(tagExpressionOperator, &n.Base)
		e.str(propOperator, n.Operator)
		if err := e.child(propLeft, n.Left); err != nil {
			return err
		}
		if n.Right != nil {
			if err := e.child(propRight, n.Right); err != nil {
				return err
			}
		}

	case *ast.ExpressionParenthesis:
		e.begin(tagExpressionParenthesis, &n.Base)
		if err := e.child(propExpression, n.Expression); err != nil {
			return err
		}

	case *ast.NetworkRule:
		e.begin(tagNetworkRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.flag(propException, n.Exception)
		e.value(propPattern, n.Pattern)
		if n.Modifiers != nil {
			if err := e.child(propModifiers, n.Modifiers); err != nil {
				return err
			}
		}

	case *ast.HostRule:
		e.begin(tagHostRule, &n.Base)
		e.ruleBase(&n.RuleBase)
		e.value(propIP, n.IP)
		if err := e.child(propHostnames, &n.Hostnames); err != nil {
			return err
		}
		e.optValue(propComment, n.Comment)

	case *ast.HostnameList:
		e.begin(tagHostnameList, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, v := range n.Children {
			e.valuePayload(v)
		}

	case *ast.ModifierList:
		e.begin(tagModifierList, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, m := range n.Children {
			if err := e.node(m); err != nil {
				return err
			}
		}

	case *ast.Modifier:
		e.begin(tagModifier, &n.Base)
		e.value(propName, n.Name)
		e.optValue(propValue, n.Value)
		e.flag(propException, n.Exception)

	case *ast.DomainList:
		e.begin(tagDomainList, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, d := range n.Children {
			if err := e.node(d); err != nil {
				return err
			}
		}

	case *ast.Domain:
		e.begin(tagDomain, &n.Base)
		e.str(propValue, n.Value)
		e.flag(propException, n.Exception)

	case *ast.ElementHidingRule:
		e.begin(tagElementHidingRule, &n.Base)
		if err := e.cosmeticBase(&n.CosmeticRuleBase); err != nil {
			return err
		}
		if err := e.child(propBody, &n.Body); err != nil {
			return err
		}

	case *ast.ElementHidingRuleBody:
		e.begin(tagElementHidingRuleBody, &n.Base)
		e.value(propSelectorList, n.SelectorList)

	case *ast.CssInjectionRule:
		e.begin(tagCssInjectionRule, &n.Base)
		if err := e.cosmeticBase(&n.CosmeticRuleBase); err != nil {
			return err
		}
		if err := e.child(propBody, &n.Body); err != nil {
			return err
		}

	case *ast.CssInjectionRuleBody:
		e.begin(tagCssInjectionRuleBody, &n.Base)
		e.optValue(propMediaQueryList, n.MediaQueryList)
		e.value(propSelectorList, n.SelectorList)
		e.optValue(propDeclarationList, n.DeclarationList)
		e.flag(propRemove, n.Remove)

	case *ast.ScriptletInjectionRule:
		e.begin(tagScriptletInjectionRule, &n.Base)
		if err := e.cosmeticBase(&n.CosmeticRuleBase); err != nil {
			return err
		}
		if err := e.child(propBody, &n.Body); err != nil {
			return err
		}

	case *ast.ScriptletInjectionRuleBody:
		e.begin(tagScriptletInjectionRuleBody, &n.Base)
		e.out.WriteUint8(propChildren)
		e.out.WriteUvarint(uint64(len(n.Children)))
		for _, call := range n.Children {
			if err := e.node(call); err != nil {
				return err
			}
		}

	case *ast.JsInjectionRule:
		e.begin(tagJsInjectionRule, &n.Base)
		if err := e.cosmeticBase(&n.CosmeticRuleBase); err != nil {
			return err
		}
		e.value(propBody, n.Body)

	case *ast.HtmlFilteringRule:
		e.begin(tagHtmlFilteringRule, &n.Base)
		if err := e.cosmeticBase(&n.CosmeticRuleBase); err != nil {
			return err
		}
		e.value(propBody, n.Body)

	default:
		return fmt.Errorf("%w: %T", parseErrors.ErrUnsupportedNode, n)
	}

	e.end()
	return nil
}

func (e *encoder) cosmeticBase(c *ast.CosmeticRuleBase) error {
	e.ruleBase(&c.RuleBase)
	e.flag(propException, c.Exception)
	e.value(propSeparator, c.Separator)
	if err := e.child(propDomains, &c.Domains); err != nil {
		return err
	}
	if c.Modifiers != nil {
		return e.child(propModifiers, c.Modifiers)
	}
	return nil
}
