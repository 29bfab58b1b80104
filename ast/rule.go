package ast

// Modifier is a `name[=value]` option, negated when Exception is set (`~name`).
type Modifier struct {
	Base
	Name      Value
	Value     *Value
	Exception bool
}

// ModifierList is an ordered list of modifiers.
type ModifierList struct {
	Base
	Children []*Modifier
}

// Find returns the first modifier named name, or nil.
func (l *ModifierList) Find(name string) *Modifier {
	if l == nil {
		return nil
	}
	for _, m := range l.Children {
		if m.Name.Value == name {
			return m
		}
	}
	return nil
}

// Domain is one entry of a cosmetic domain list.
type Domain struct {
	Base
	Value     string
	Exception bool
}

// DomainList is the comma-separated domain list before a cosmetic separator.
type DomainList struct {
	Base
	Children []*Domain
}

// NetworkRule is a URL blocking or allowlisting rule.
type NetworkRule struct {
	RuleBase
	Exception bool
	Pattern   Value
	Modifiers *ModifierList
}

func (*NetworkRule) Category() Category { return CategoryNetwork }
func (*NetworkRule) Type() RuleType     { return TypeNetworkRule }

// HostnameList is the list of hostnames of a host rule.
type HostnameList struct {
	Base
	Children []*Value
}

// HostRule is an /etc/hosts style line: `0.0.0.0 example.org # comment`.
type HostRule struct {
	RuleBase
	IP        Value
	Hostnames HostnameList
	Comment   *Value
}

func (*HostRule) Category() Category { return CategoryNetwork }
func (*HostRule) Type() RuleType     { return TypeHostRule }

// CosmeticRuleBase holds the fields shared by every cosmetic rule.
type CosmeticRuleBase struct {
	RuleBase
	Exception bool
	Separator Value
	Domains   DomainList
	Modifiers *ModifierList
}

// Cosmetic returns the shared cosmetic fields.
func (c *CosmeticRuleBase) Cosmetic() *CosmeticRuleBase {
	return c
}

// CosmeticRule is any cosmetic rule.
type CosmeticRule interface {
	Rule
	Cosmetic() *CosmeticRuleBase
}

// ElementHidingRuleBody is the selector list of an element hiding rule.
type ElementHidingRuleBody struct {
	Base
	SelectorList Value
}

// ElementHidingRule hides elements matching a selector.
type ElementHidingRule struct {
	CosmeticRuleBase
	Body ElementHidingRuleBody
}

// CssInjectionRuleBody describes injected CSS. Remove means the matched
// elements are removed instead of styled.
type CssInjectionRuleBody struct {
	Base
	MediaQueryList  *Value
	SelectorList    Value
	DeclarationList *Value
	Remove          bool
}

// CssInjectionRule injects CSS declarations for a selector.
type CssInjectionRule struct {
	CosmeticRuleBase
	Body CssInjectionRuleBody
}

// ScriptletInjectionRuleBody holds one parameter list per scriptlet call; the
// first parameter is the scriptlet name. ABP snippets may chain several calls.
type ScriptletInjectionRuleBody struct {
	Base
	Children []*ParameterList
}

// ScriptletInjectionRule injects one or more scriptlets.
type ScriptletInjectionRule struct {
	CosmeticRuleBase
	Body ScriptletInjectionRuleBody
}

// JsInjectionRule injects raw JavaScript.
type JsInjectionRule struct {
	CosmeticRuleBase
	Body Value
}

// HtmlFilteringRule removes elements from the HTML response.
type HtmlFilteringRule struct {
	CosmeticRuleBase
	Body Value
}

func (*ElementHidingRule) Category() Category      { return CategoryCosmetic }
func (*CssInjectionRule) Category() Category       { return CategoryCosmetic }
func (*ScriptletInjectionRule) Category() Category { return CategoryCosmetic }
func (*JsInjectionRule) Category() Category        { return CategoryCosmetic }
func (*HtmlFilteringRule) Category() Category      { return CategoryCosmetic }

func (*ElementHidingRule) Type() RuleType      { return TypeElementHidingRule }
func (*CssInjectionRule) Type() RuleType       { return TypeCssInjectionRule }
func (*ScriptletInjectionRule) Type() RuleType { return TypeScriptletInjectionRule }
func (*JsInjectionRule) Type() RuleType        { return TypeJsInjectionRule }
func (*HtmlFilteringRule) Type() RuleType      { return TypeHtmlFilteringRule }
