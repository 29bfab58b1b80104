// Package ast defines the syntax tree produced by the rule parsers.
//
// Every node embeds Base, whose Loc is set only when location tracking was
// requested from the parser. Locations are [Start, End) byte offsets relative
// to the base offset the caller passed in.
//
// Rules form closed sets: each category has an interface with an unexported
// marker method, so a type switch over the concrete types in this package is
// exhaustive.
package ast

// Location is a [Start, End) span in the source text.
type Location struct {
	Start int
	End   int
}

// Base is embedded by every node.
type Base struct {
	Loc *Location
}

// Span returns the source location of the node, or nil.
func (b *Base) Span() *Location {
	return b.Loc
}

// Node is implemented by every AST node.
type Node interface {
	Span() *Location
}

// Value wraps a scalar that keeps its own span, distinct from its parent's.
type Value struct {
	Base
	Value string
}

// NewValue returns a Value without location.
func NewValue(v string) *Value {
	return &Value{Value: v}
}

// Syntax is the filter-list dialect a rule is written in.
type Syntax string

const (
	SyntaxCommon Syntax = "Common"
	SyntaxAdg    Syntax = "AdGuard"
	SyntaxUbo    Syntax = "uBlock Origin"
	SyntaxAbp    Syntax = "Adblock Plus"
)

// Category is the top-level classification of a rule.
type Category string

const (
	CategoryEmpty    Category = "Empty"
	CategoryComment  Category = "Comment"
	CategoryCosmetic Category = "Cosmetic"
	CategoryNetwork  Category = "Network"
	CategoryInvalid  Category = "Invalid"
)

// RuleType is the concrete kind of a rule.
type RuleType string

const (
	TypeEmptyRule               RuleType = "EmptyRule"
	TypeInvalidRule             RuleType = "InvalidRule"
	TypeCommentRule             RuleType = "CommentRule"
	TypeAgentCommentRule        RuleType = "AgentCommentRule"
	TypeHintCommentRule         RuleType = "HintCommentRule"
	TypePreProcessorCommentRule RuleType = "PreProcessorCommentRule"
	TypeMetadataCommentRule     RuleType = "MetadataCommentRule"
	TypeConfigCommentRule       RuleType = "ConfigCommentRule"
	TypeElementHidingRule       RuleType = "ElementHidingRule"
	TypeCssInjectionRule        RuleType = "CssInjectionRule"
	TypeScriptletInjectionRule  RuleType = "ScriptletInjectionRule"
	TypeJsInjectionRule         RuleType = "JsInjectionRule"
	TypeHtmlFilteringRule       RuleType = "HtmlFilteringRule"
	TypeNetworkRule             RuleType = "NetworkRule"
	TypeHostRule                RuleType = "HostRule"
)

// Raws holds raw text captures of a rule.
type Raws struct {
	Text string
}

// RuleBase holds the fields shared by every rule.
type RuleBase struct {
	Base
	Syntax Syntax
	Raws   *Raws
}

// Common returns the shared rule fields.
func (r *RuleBase) Common() *RuleBase {
	return r
}

// Rule is any parsed rule.
type Rule interface {
	Node
	Category() Category
	Type() RuleType
	Common() *RuleBase
}

// EmptyRule is a blank line.
type EmptyRule struct {
	RuleBase
}

func (*EmptyRule) Category() Category { return CategoryEmpty }
func (*EmptyRule) Type() RuleType     { return TypeEmptyRule }

// InvalidRuleError describes why a tolerant parse produced an InvalidRule.
type InvalidRuleError struct {
	Message string
	Start   int
	End     int
}

// InvalidRule keeps a rule that failed to parse in tolerant mode.
type InvalidRule struct {
	RuleBase
	Raw   string
	Error InvalidRuleError
}

func (*InvalidRule) Category() Category { return CategoryInvalid }
func (*InvalidRule) Type() RuleType     { return TypeInvalidRule }

// ParameterList is an ordered list of parameters. A nil child is an empty
// parameter (for example the middle one in `+js(a,,b)`).
type ParameterList struct {
	Base
	Children []*Value
}

// FilterList is an ordered sequence of rules. Order equals line order.
type FilterList struct {
	Base
	Children []Rule
}
