package ast

// SelectorList is a comma-separated list of complex selectors.
type SelectorList struct {
	Base
	Children []*ComplexSelector
}

// ComplexSelector is a sequence of simple selectors and combinators.
// A combinator is never first, last or adjacent to another combinator.
type ComplexSelector struct {
	Base
	Children []SelectorNode
}

// SelectorNode is a simple selector or a combinator.
type SelectorNode interface {
	Node
	selectorNode()
}

// TypeSelector is an element name or `*`.
type TypeSelector struct {
	Base
	Value string
}

// IdSelector is `#id`. Value excludes the `#`.
type IdSelector struct {
	Base
	Value string
}

// ClassSelector is `.class`. Value excludes the `.`.
type ClassSelector struct {
	Base
	Value string
}

// AttributeSelector is `[name op value flag]`.
type AttributeSelector struct {
	Base
	Name     Value
	Operator *Value
	Value    *Value
	Flag     *Value
}

// PseudoClassSelector is `:name` or `:name(argument)`. The argument is kept
// as balanced raw text.
type PseudoClassSelector struct {
	Base
	Name     Value
	Argument *Value
}

// PseudoElementSelector is `::name` or `::name(argument)`.
type PseudoElementSelector struct {
	Base
	Name     Value
	Argument *Value
}

// Combinator values.
const (
	CombinatorDescendant        = " "
	CombinatorChild             = ">"
	CombinatorNextSibling       = "+"
	CombinatorSubsequentSibling = "~"
)

// SelectorCombinator joins two compound selectors.
type SelectorCombinator struct {
	Base
	Value string
}

func (*TypeSelector) selectorNode()          {}
func (*IdSelector) selectorNode()            {}
func (*ClassSelector) selectorNode()         {}
func (*AttributeSelector) selectorNode()     {}
func (*PseudoClassSelector) selectorNode()   {}
func (*PseudoElementSelector) selectorNode() {}
func (*SelectorCombinator) selectorNode()    {}
