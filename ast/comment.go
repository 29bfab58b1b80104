package ast

// CommentRule is a plain `! text` or `# text` comment.
type CommentRule struct {
	RuleBase
	Marker Value
	Text   Value
}

func (*CommentRule) Category() Category { return CategoryComment }
func (*CommentRule) Type() RuleType     { return TypeCommentRule }

// Agent is one entry of an agent comment, e.g. `Adblock Plus 2.0`.
type Agent struct {
	Base
	Adblock Value
	Version *Value
}

// AgentCommentRule is `[Adblock Plus 2.0; AdGuard]`.
type AgentCommentRule struct {
	RuleBase
	Children []*Agent
}

func (*AgentCommentRule) Category() Category { return CategoryComment }
func (*AgentCommentRule) Type() RuleType     { return TypeAgentCommentRule }

// Hint is one hint of a hint comment, e.g. `PLATFORM(windows, mac)`.
type Hint struct {
	Base
	Name   Value
	Params *ParameterList
}

// HintCommentRule is `!+ NOT_OPTIMIZED PLATFORM(windows)`.
type HintCommentRule struct {
	RuleBase
	Children []*Hint
}

func (*HintCommentRule) Category() Category { return CategoryComment }
func (*HintCommentRule) Type() RuleType     { return TypeHintCommentRule }

// PreProcessorParams is the parameter of a pre-processor directive: a *Value
// (`!#include url`), a *ParameterList (`!#safari_cb_affinity(a,b)`) or an
// Expression (`!#if (a && !b)`).
type PreProcessorParams interface {
	Node
	preProcessorParams()
}

func (*Value) preProcessorParams()         {}
func (*ParameterList) preProcessorParams() {}

// PreProcessorCommentRule is a `!#name params` directive.
type PreProcessorCommentRule struct {
	RuleBase
	Name   Value
	Params PreProcessorParams
}

func (*PreProcessorCommentRule) Category() Category { return CategoryComment }
func (*PreProcessorCommentRule) Type() RuleType     { return TypePreProcessorCommentRule }

// MetadataCommentRule is a `! Header: value` comment.
type MetadataCommentRule struct {
	RuleBase
	Marker Value
	Header Value
	Value  Value
}

func (*MetadataCommentRule) Category() Category { return CategoryComment }
func (*MetadataCommentRule) Type() RuleType     { return TypeMetadataCommentRule }

// ConfigParams is either a *ConfigNode or a *ParameterList.
type ConfigParams interface {
	Node
	configParams()
}

// ConfigNode holds an inline configuration object.
type ConfigNode struct {
	Base
	Value map[string]any
}

func (*ConfigNode) configParams()    {}
func (*ParameterList) configParams() {}

// ConfigCommentRule is an inline linter configuration comment, e.g.
// `! aglint-disable rule1, rule2 -- reason`.
type ConfigCommentRule struct {
	RuleBase
	Marker  Value
	Command Value
	Params  ConfigParams
	Comment *Value
}

func (*ConfigCommentRule) Category() Category { return CategoryComment }
func (*ConfigCommentRule) Type() RuleType     { return TypeConfigCommentRule }

// Expression is a node of a pre-processor logical expression.
type Expression interface {
	PreProcessorParams
	expression()
}

// Logical operators.
const (
	OperatorNot = "!"
	OperatorAnd = "&&"
	OperatorOr  = "||"
)

// ExpressionVariable is a platform constant such as `adguard_ext_chromium`.
type ExpressionVariable struct {
	Base
	Name string
}

// ExpressionOperator applies Operator to Left (and Right, for binary
// operators).
type ExpressionOperator struct {
	Base
	Operator string
	Left     Expression
	Right    Expression
}

// ExpressionParenthesis keeps explicit grouping.
type ExpressionParenthesis struct {
	Base
	Expression Expression
}

func (*ExpressionVariable) preProcessorParams()    {}
func (*ExpressionOperator) preProcessorParams()    {}
func (*ExpressionParenthesis) preProcessorParams() {}
func (*ExpressionVariable) expression()            {}
func (*ExpressionOperator) expression()            {}
func (*ExpressionParenthesis) expression()         {}
