package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"agtree/ast"
	parseErrors "agtree/errors"
)

type decoder struct {
	in   *InputByteBuffer
	locs bool
}

func (d *decoder) corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{parseErrors.ErrCorruptBuffer}, args...)...)
}

func (d *decoder) location() *ast.Location {
	start := d.in.ReadUvarint()
	end := d.in.ReadUvarint()
	return &ast.Location{Start: int(start), End: int(end)}
}

func (d *decoder) valuePayload() ast.Value {
	v := ast.Value{Value: d.in.ReadString()}
	if d.locs && d.in.ReadUint8() == 1 {
		v.Loc = d.location()
	}
	return v
}

func (d *decoder) valuePtr() *ast.Value {
	v := d.valuePayload()
	return &v
}

func (d *decoder) count() int {
	n := d.in.ReadUvarint()
	if n > uint64(d.in.Remaining()) {
		// every element takes at least one byte
		d.in.fail("count")
		return 0
	}
	return int(n)
}

// props reads properties until propEnd, handing every other tag to fn. The
// location property is handled here.
func (d *decoder) props(base *ast.Base, fn func(prop uint8) error) error {
	for {
		prop := d.in.ReadUint8()
		if err := d.in.Err(); err != nil {
			return err
		}
		switch prop {
		case propEnd:
			return nil
		case propLoc:
			base.Loc = d.location()
		default:
			if err := fn(prop); err != nil {
				return err
			}
		}
		if err := d.in.Err(); err != nil {
			return err
		}
	}
}

func (d *decoder) unknownProp(tag, prop uint8) error {
	return d.corrupt("unknown property %d for node type %d", prop, tag)
}

// ruleBaseProp decodes a property shared by every rule. It reports whether
// prop was one of them.
func (d *decoder) ruleBaseProp(rb *ast.RuleBase, prop uint8) bool {
	switch prop {
	case propSyntax:
		rb.Syntax = ast.Syntax(d.in.ReadString())
	case propRaws:
		rb.Raws = &ast.Raws{Text: d.in.ReadString()}
	default:
		return false
	}
	return true
}

func (d *decoder) cosmeticBaseProp(c *ast.CosmeticRuleBase, prop uint8) (bool, error) {
	if d.ruleBaseProp(&c.RuleBase, prop) {
		return true, nil
	}
	switch prop {
	case propException:
		c.Exception = true
	case propSeparator:
		c.Separator = d.valuePayload()
	case propDomains:
		list, err := expect[*ast.DomainList](d)
		if err != nil {
			return true, err
		}
		c.Domains = *list
	case propModifiers:
		list, err := expect[*ast.ModifierList](d)
		if err != nil {
			return true, err
		}
		c.Modifiers = list
	default:
		return false, nil
	}
	return true, nil
}

// expect reads a node and checks its type.
func expect[T ast.Node](d *decoder) (T, error) {
	var zero T
	n, err := d.node()
	if err != nil {
		return zero, err
	}
	t, ok := n.(T)
	if !ok {
		return zero, d.corrupt("unexpected node %T, want %T", n, zero)
	}
	return t, nil
}

func (d *decoder) node() (ast.Node, error) {
	tag := d.in.ReadUint8()
	if err := d.in.Err(); err != nil {
		return nil, err
	}

	switch tag {
	case tagFilterList:
		n := &ast.FilterList{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				rule, err := expect[ast.Rule](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, rule)
			}
			return nil
		})
		return n, err

	case tagEmptyRule:
		n := &ast.EmptyRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if !d.ruleBaseProp(&n.RuleBase, prop) {
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagInvalidRule:
		n := &ast.InvalidRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propRaw:
				n.Raw = d.in.ReadString()
			case propErrorMessage:
				n.Error.Message = d.in.ReadString()
			case propErrorStart:
				n.Error.Start = int(d.in.ReadUvarint())
			case propErrorEnd:
				n.Error.End = int(d.in.ReadUvarint())
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagCommentRule:
		n := &ast.CommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propMarker:
				n.Marker = d.valuePayload()
			case propText:
				n.Text = d.valuePayload()
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagAgentCommentRule:
		n := &ast.AgentCommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				a, err := expect[*ast.Agent](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, a)
			}
			return nil
		})
		return n, err

	case tagAgent:
		n := &ast.Agent{}
		err := d.props(&n.Base, func(prop uint8) error {
			switch prop {
			case propAdblock:
				n.Adblock = d.valuePayload()
			case propVersion:
				n.Version = d.valuePtr()
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagHintCommentRule:
		n := &ast.HintCommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				h, err := expect[*ast.Hint](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, h)
			}
			return nil
		})
		return n, err

	case tagHint:
		n := &ast.Hint{}
		err := d.props(&n.Base, func(prop uint8) error {
			switch prop {
			case propName:
				n.Name = d.valuePayload()
			case propParams:
				params, err := expect[*ast.ParameterList](d)
				if err != nil {
					return err
				}
				n.Params = params
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagPreProcessorCommentRule:
		n := &ast.PreProcessorCommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propName:
				n.Name = d.valuePayload()
			case propParams:
				params, err := expect[ast.PreProcessorParams](d)
				if err != nil {
					return err
				}
				n.Params = params
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagMetadataCommentRule:
		n := &ast.MetadataCommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propMarker:
				n.Marker = d.valuePayload()
			case propHeader:
				n.Header = d.valuePayload()
			case propValue:
				n.Value = d.valuePayload()
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagConfigCommentRule:
		n := &ast.ConfigCommentRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propMarker:
				n.Marker = d.valuePayload()
			case propCommand:
				n.Command = d.valuePayload()
			case propParams:
				params, err := expect[ast.ConfigParams](d)
				if err != nil {
					return err
				}
				n.Params = params
			case propComment:
				n.Comment = d.valuePtr()
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagConfigNode:
		n := &ast.ConfigNode{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propValue {
				return d.unknownProp(tag, prop)
			}
			data := d.in.ReadString()
			if err := yaml.Unmarshal([]byte(data), &n.Value); err != nil {
				return d.corrupt("config node: %v", err)
			}
			return nil
		})
		return n, err

	case tagParameterList:
		n := &ast.ParameterList{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				switch d.in.ReadUint8() {
				case tagNull:
					n.Children = append(n.Children, nil)
				case tagValue:
					n.Children = append(n.Children, d.valuePtr())
				default:
					return d.corrupt("invalid parameter marker")
				}
			}
			return nil
		})
		return n, err

	case tagValue:
		n := &ast.Value{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propValue {
				return d.unknownProp(tag, prop)
			}
			n.Value = d.in.ReadString()
			return nil
		})
		return n, err

	case tagExpressionVariable:
		n := &ast.ExpressionVariable{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propName {
				return d.unknownProp(tag, prop)
			}
			n.Name = d.in.ReadString()
			return nil
		})
		return n, err

	case tagExpressionOperator:
		n := &ast.ExpressionOperator{}
		err := d.props(&n.Base, func(prop uint8) error {
			var err error
			switch prop {
			case propOperator:
				n.Operator = d.in.ReadString()
			case propLeft:
				n.Left, err = expect[ast.Expression](d)
			case propRight:
				n.Right, err = expect[ast.Expression](d)
			default:
				return d.unknownProp(tag, prop)
			}
			return err
		})
		return n, err

	case tagExpressionParenthesis:
		n := &ast.ExpressionParenthesis{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propExpression {
				return d.unknownProp(tag, prop)
			}
			var err error
			n.Expression, err = expect[ast.Expression](d)
			return err
		})
		return n, err

	case tagNetworkRule:
		n := &ast.NetworkRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			var err error
			switch prop {
			case propException:
				n.Exception = true
			case propPattern:
				n.Pattern = d.valuePayload()
			case propModifiers:
				n.Modifiers, err = expect[*ast.ModifierList](d)
			default:
				return d.unknownProp(tag, prop)
			}
			return err
		})
		return n, err

	case tagHostRule:
		n := &ast.HostRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if d.ruleBaseProp(&n.RuleBase, prop) {
				return nil
			}
			switch prop {
			case propIP:
				n.IP = d.valuePayload()
			case propHostnames:
				list, err := expect[*ast.HostnameList](d)
				if err != nil {
					return err
				}
				n.Hostnames = *list
			case propComment:
				n.Comment = d.valuePtr()
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagHostnameList:
		n := &ast.HostnameList{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				n.Children = append(n.Children, d.valuePtr())
			}
			return nil
		})
		return n, err

	case tagModifierList:
		n := &ast.ModifierList{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				m, err := expect[*ast.Modifier](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, m)
			}
			return nil
		})
		return n, err

	case tagModifier:
		n := &ast.Modifier{}
		err := d.props(&n.Base, func(prop uint8) error {
			switch prop {
			case propName:
				n.Name = d.valuePayload()
			case propValue:
				n.Value = d.valuePtr()
			case propException:
				n.Exception = true
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagDomainList:
		n := &ast.DomainList{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				dom, err := expect[*ast.Domain](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, dom)
			}
			return nil
		})
		return n, err

	case tagDomain:
		n := &ast.Domain{}
		err := d.props(&n.Base, func(prop uint8) error {
			switch prop {
			case propValue:
				n.Value = d.in.ReadString()
			case propException:
				n.Exception = true
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagElementHidingRule:
		n := &ast.ElementHidingRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if ok, err := d.cosmeticBaseProp(&n.CosmeticRuleBase, prop); ok || err != nil {
				return err
			}
			if prop != propBody {
				return d.unknownProp(tag, prop)
			}
			body, err := expect[*ast.ElementHidingRuleBody](d)
			if err != nil {
				return err
			}
			n.Body = *body
			return nil
		})
		return n, err

	case tagElementHidingRuleBody:
		n := &ast.ElementHidingRuleBody{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propSelectorList {
				return d.unknownProp(tag, prop)
			}
			n.SelectorList = d.valuePayload()
			return nil
		})
		return n, err

	case tagCssInjectionRule:
		n := &ast.CssInjectionRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if ok, err := d.cosmeticBaseProp(&n.CosmeticRuleBase, prop); ok || err != nil {
				return err
			}
			if prop != propBody {
				return d.unknownProp(tag, prop)
			}
			body, err := expect[*ast.CssInjectionRuleBody](d)
			if err != nil {
				return err
			}
			n.Body = *body
			return nil
		})
		return n, err

	case tagCssInjectionRuleBody:
		n := &ast.CssInjectionRuleBody{}
		err := d.props(&n.Base, func(prop uint8) error {
			switch prop {
			case propMediaQueryList:
				n.MediaQueryList = d.valuePtr()
			case propSelectorList:
				n.SelectorList = d.valuePayload()
			case propDeclarationList:
				n.DeclarationList = d.valuePtr()
			case propRemove:
				n.Remove = true
			default:
				return d.unknownProp(tag, prop)
			}
			return nil
		})
		return n, err

	case tagScriptletInjectionRule:
		n := &ast.ScriptletInjectionRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if ok, err := d.cosmeticBaseProp(&n.CosmeticRuleBase, prop); ok || err != nil {
				return err
			}
			if prop != propBody {
				return d.unknownProp(tag, prop)
			}
			body, err := expect[*ast.ScriptletInjectionRuleBody](d)
			if err != nil {
				return err
			}
			n.Body = *body
			return nil
		})
		return n, err

	case tagScriptletInjectionRuleBody:
		n := &ast.ScriptletInjectionRuleBody{}
		err := d.props(&n.Base, func(prop uint8) error {
			if prop != propChildren {
				return d.unknownProp(tag, prop)
			}
			for i, count := 0, d.count(); i < count; i++ {
				call, err := expect[*ast.ParameterList](d)
				if err != nil {
					return err
				}
				n.Children = append(n.Children, call)
			}
			return nil
		})
		return n, err

	case tagJsInjectionRule:
		n := &ast.JsInjectionRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if ok, err := d.cosmeticBaseProp(&n.CosmeticRuleBase, prop); ok || err != nil {
				return err
			}
			if prop != propBody {
				return d.unknownProp(tag, prop)
			}
			n.Body = d.valuePayload()
			return nil
		})
		return n, err

	case tagHtmlFilteringRule:
		n := &ast.HtmlFilteringRule{}
		err := d.props(&n.Base, func(prop uint8) error {
			if ok, err := d.cosmeticBaseProp(&n.CosmeticRuleBase, prop); ok || err != nil {
				return err
			}
			if prop != propBody {
				return d.unknownProp(tag, prop)
			}
			n.Body = d.valuePayload()
			return nil
		})
		return n, err
	}

	return nil, d.corrupt("unknown node type %d", tag)
}
