package css

import (
	"strings"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

// DefaultMaxNestingDepth bounds nested function arguments in selectors.
const DefaultMaxNestingDepth = 16

// Options configures the selector parser.
type Options struct {
	// Offset is added to every reported position.
	Offset int
	// IncludeLoc sets node locations.
	IncludeLoc bool
	// MaxNestingDepth limits nested pseudo-class arguments.
	MaxNestingDepth int
}

// ParseSelectorList parses a comma-separated selector list.
func ParseSelectorList(raw string, opts Options) (*ast.SelectorList, error) {
	if opts.MaxNestingDepth <= 0 {
		opts.MaxNestingDepth = DefaultMaxNestingDepth
	}

	tokens, err := Tokenize(raw)
	if err != nil {
		return nil, parseErrors.New(parseErrors.CodeUnknown, opts.Offset, opts.Offset+len(raw), err.Error())
	}

	p := &selectorParser{
		src:    raw,
		tokens: tokens,
		opts:   opts,
		spans:  make(map[ast.SelectorNode]scanner.Span),
	}
	return p.parse()
}

type selectorParser struct {
	src    string
	tokens []Token
	opts   Options

	list      []*ast.ComplexSelector
	current   []ast.SelectorNode
	lastComma *Token

	// local bounds of every node, kept even when locations are off
	spans map[ast.SelectorNode]scanner.Span

	// compound state
	compoundSize    int
	compoundHasType bool

	// pending descendant combinator (whitespace between compounds)
	pending *Token
}

func (p *selectorParser) errorAt(code parseErrors.Code, start, end int, args ...any) error {
	return parseErrors.New(code, p.opts.Offset+start, p.opts.Offset+end, args...)
}

func (p *selectorParser) loc(start, end int) *ast.Location {
	if !p.opts.IncludeLoc {
		return nil
	}
	return &ast.Location{Start: p.opts.Offset + start, End: p.opts.Offset + end}
}

func (p *selectorParser) parse() (*ast.SelectorList, error) {
	for i := 0; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch {
		case tok.IsBlank():
			if len(p.current) > 0 && !p.lastIsCombinator() {
				t := tok
				p.pending = &t
			}

		case tok.Type == Comma:
			if err := p.finishComplex(tok); err != nil {
				return nil, err
			}

		case tok.IsDelim(p.src, '>'), tok.IsDelim(p.src, '+'), tok.IsDelim(p.src, '~'):
			if err := p.addCombinator(tok, tok.Text(p.src)); err != nil {
				return nil, err
			}

		default:
			next, err := p.parseSimple(i)
			if err != nil {
				return nil, err
			}
			i = next
		}
	}

	if len(p.current) == 0 {
		if len(p.list) == 0 {
			return nil, p.errorAt(parseErrors.CodeSelectorEmpty, 0, len(p.src))
		}
		return nil, p.errorAt(parseErrors.CodeCommaPosition, p.lastComma.Start, p.lastComma.End, "at the end of a selector list")
	}
	if p.lastIsCombinator() {
		last := p.current[len(p.current)-1].(*ast.SelectorCombinator)
		start, end := p.nodeBounds(last)
		return nil, p.errorAt(parseErrors.CodeCombinatorPosition, start, end, last.Value, "at the end of a selector")
	}
	p.pushComplex()

	start, end := scanner.TrimmedBounds(p.src, 0, len(p.src))
	return &ast.SelectorList{
		Base:     ast.Base{Loc: p.loc(start, end)},
		Children: p.list,
	}, nil
}

func (p *selectorParser) lastIsCombinator() bool {
	if len(p.current) == 0 {
		return false
	}
	_, ok := p.current[len(p.current)-1].(*ast.SelectorCombinator)
	return ok
}

// nodeBounds returns the local bounds of a node.
func (p *selectorParser) nodeBounds(n ast.SelectorNode) (int, int) {
	if b, ok := p.spans[n]; ok {
		return b.Start, b.End
	}
	return 0, len(p.src)
}

func (p *selectorParser) finishComplex(comma Token) error {
	if len(p.current) == 0 {
		if len(p.list) == 0 {
			return p.errorAt(parseErrors.CodeCommaPosition, comma.Start, comma.End, "at the start of a selector list")
		}
		return p.errorAt(parseErrors.CodeCommaPosition, comma.Start, comma.End, "doubled")
	}
	if p.lastIsCombinator() {
		last := p.current[len(p.current)-1].(*ast.SelectorCombinator)
		start, end := p.nodeBounds(last)
		return p.errorAt(parseErrors.CodeCombinatorPosition, start, end, last.Value, "adjacent to a comma")
	}
	p.pushComplex()
	c := comma
	p.lastComma = &c
	return nil
}

func (p *selectorParser) pushComplex() {
	first, _ := p.nodeBounds(p.current[0])
	_, last := p.nodeBounds(p.current[len(p.current)-1])
	p.list = append(p.list, &ast.ComplexSelector{
		Base:     ast.Base{Loc: p.loc(first, last)},
		Children: p.current,
	})
	p.current = nil
	p.pending = nil
	p.compoundSize = 0
	p.compoundHasType = false
}

func (p *selectorParser) addCombinator(tok Token, value string) error {
	if len(p.current) == 0 {
		if len(p.list) > 0 {
			return p.errorAt(parseErrors.CodeCombinatorPosition, tok.Start, tok.End, value, "adjacent to a comma")
		}
		return p.errorAt(parseErrors.CodeCombinatorPosition, tok.Start, tok.End, value, "at the start of a selector")
	}
	if p.lastIsCombinator() {
		return p.errorAt(parseErrors.CodeCombinatorPosition, tok.Start, tok.End, value, "adjacent to another combinator")
	}
	p.pending = nil
	p.push(&ast.SelectorCombinator{Base: ast.Base{Loc: p.loc(tok.Start, tok.End)}, Value: value}, tok.Start, tok.End)
	p.compoundSize = 0
	p.compoundHasType = false
	return nil
}

func (p *selectorParser) push(n ast.SelectorNode, start, end int) {
	p.spans[n] = scanner.Span{Start: start, End: end}
	p.current = append(p.current, n)
}

// flushPending turns pending whitespace into a descendant combinator.
func (p *selectorParser) flushPending() {
	if p.pending == nil {
		return
	}
	ws := *p.pending
	p.pending = nil
	p.push(&ast.SelectorCombinator{Base: ast.Base{Loc: p.loc(ws.Start, ws.End)}, Value: ast.CombinatorDescendant}, ws.Start, ws.End)
	p.compoundSize = 0
	p.compoundHasType = false
}

// parseSimple parses one simple selector starting at token i and returns the
// index of its last token.
func (p *selectorParser) parseSimple(i int) (int, error) {
	p.flushPending()
	tok := p.tokens[i]

	switch {
	case tok.Type == Ident, tok.IsDelim(p.src, '*'):
		if p.compoundHasType {
			return i, p.errorAt(parseErrors.CodeTypeSelectorAlreadySet, tok.Start, tok.End)
		}
		if p.compoundSize > 0 {
			return i, p.errorAt(parseErrors.CodeTypeSelectorNotFirst, tok.Start, tok.End)
		}
		p.addSimple(&ast.TypeSelector{Base: ast.Base{Loc: p.loc(tok.Start, tok.End)}, Value: tok.Text(p.src)}, tok.Start, tok.End)
		p.compoundHasType = true
		return i, nil

	case tok.Type == Hash:
		p.addSimple(&ast.IdSelector{Base: ast.Base{Loc: p.loc(tok.Start, tok.End)}, Value: p.src[tok.Start+1 : tok.End]}, tok.Start, tok.End)
		return i, nil

	case tok.IsDelim(p.src, '.'):
		if i+1 >= len(p.tokens) || p.tokens[i+1].Type != Ident {
			return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, tok.Start, tok.End, ".")
		}
		name := p.tokens[i+1]
		p.addSimple(&ast.ClassSelector{Base: ast.Base{Loc: p.loc(tok.Start, name.End)}, Value: name.Text(p.src)}, tok.Start, name.End)
		return i + 1, nil

	case tok.Type == LeftBracket:
		return p.parseAttribute(i)

	case tok.Type == Colon:
		return p.parsePseudo(i)

	case tok.Type == BadString:
		return i, p.errorAt(parseErrors.CodeUnterminatedString, tok.Start, tok.End)
	}

	return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, tok.Start, tok.End, tok.Text(p.src))
}

func (p *selectorParser) addSimple(n ast.SelectorNode, start, end int) {
	p.push(n, start, end)
	p.compoundSize++
}

func (p *selectorParser) skipBlank(i int) int {
	for i < len(p.tokens) && p.tokens[i].IsBlank() {
		i++
	}
	return i
}

func (p *selectorParser) valueAt(tok Token) ast.Value {
	return ast.Value{Base: ast.Base{Loc: p.loc(tok.Start, tok.End)}, Value: tok.Text(p.src)}
}

func (p *selectorParser) parseAttribute(open int) (int, error) {
	openTok := p.tokens[open]
	unclosed := func() error {
		return p.errorAt(parseErrors.CodeAttributeUnclosed, openTok.Start, len(p.src))
	}

	attr := &ast.AttributeSelector{}

	i := p.skipBlank(open + 1)
	if i >= len(p.tokens) {
		return i, unclosed()
	}
	if p.tokens[i].Type != Ident {
		return i, p.errorAt(parseErrors.CodeAttributeName, p.tokens[i].Start, p.tokens[i].End)
	}
	attr.Name = p.valueAt(p.tokens[i])

	i = p.skipBlank(i + 1)
	if i >= len(p.tokens) {
		return i, unclosed()
	}

	if p.tokens[i].Type != RightBracket {
		op := p.tokens[i]
		switch {
		case op.IsDelim(p.src, '='), op.Type == IncludeMatch, op.Type == DashMatch,
			op.Type == PrefixMatch, op.Type == SuffixMatch, op.Type == SubstringMatch:
			v := p.valueAt(op)
			attr.Operator = &v
		default:
			return i, p.errorAt(parseErrors.CodeAttributeOperator, op.Start, op.End, op.Text(p.src))
		}

		i = p.skipBlank(i + 1)
		if i >= len(p.tokens) {
			return i, unclosed()
		}
		val := p.tokens[i]
		switch val.Type {
		case Ident:
			v := p.valueAt(val)
			attr.Value = &v
		case String:
			v := ast.Value{Base: ast.Base{Loc: p.loc(val.Start, val.End)}, Value: p.src[val.Start+1 : val.End-1]}
			attr.Value = &v
		case BadString:
			return i, p.errorAt(parseErrors.CodeUnterminatedString, val.Start, val.End)
		default:
			return i, p.errorAt(parseErrors.CodeAttributeValue, val.Start, val.End)
		}

		i = p.skipBlank(i + 1)
		if i >= len(p.tokens) {
			return i, unclosed()
		}
		if p.tokens[i].Type == Ident {
			flag := p.tokens[i]
			f := strings.ToLower(flag.Text(p.src))
			if f != "i" && f != "s" {
				return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, flag.Start, flag.End, flag.Text(p.src))
			}
			v := p.valueAt(flag)
			attr.Flag = &v
			i = p.skipBlank(i + 1)
			if i >= len(p.tokens) {
				return i, unclosed()
			}
		}
	}

	closeTok := p.tokens[i]
	if closeTok.Type != RightBracket {
		return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, closeTok.Start, closeTok.End, closeTok.Text(p.src))
	}

	attr.Loc = p.loc(openTok.Start, closeTok.End)
	p.addSimple(attr, openTok.Start, closeTok.End)
	return i, nil
}

func (p *selectorParser) parsePseudo(colon int) (int, error) {
	start := p.tokens[colon].Start
	i := colon + 1
	element := false
	if i < len(p.tokens) && p.tokens[i].Type == Colon {
		element = true
		i++
	}
	if i >= len(p.tokens) {
		return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, start, len(p.src), p.src[start:])
	}

	nameTok := p.tokens[i]
	var name ast.Value
	var arg *ast.Value
	end := nameTok.End

	switch nameTok.Type {
	case Ident:
		name = p.valueAt(nameTok)
	case Function:
		name = ast.Value{Base: ast.Base{Loc: p.loc(nameTok.Start, nameTok.End-1)}, Value: p.src[nameTok.Start : nameTok.End-1]}
		closeIdx, ok := MatchingParen(p.tokens, i, p.opts.MaxNestingDepth)
		if !ok {
			return i, p.errorAt(parseErrors.CodeNestingTooDeep, p.tokens[closeIdx].Start, p.tokens[closeIdx].End, p.opts.MaxNestingDepth)
		}
		if closeIdx < 0 {
			return i, p.errorAt(parseErrors.CodeUnclosedParenthesis, nameTok.Start, len(p.src))
		}
		argStart, argEnd := scanner.TrimmedBounds(p.src, nameTok.End, p.tokens[closeIdx].Start)
		arg = &ast.Value{Base: ast.Base{Loc: p.loc(argStart, argEnd)}, Value: p.src[argStart:argEnd]}
		end = p.tokens[closeIdx].End
		i = closeIdx
	default:
		return i, p.errorAt(parseErrors.CodeSelectorUnexpectedToken, nameTok.Start, nameTok.End, nameTok.Text(p.src))
	}

	if element {
		p.addSimple(&ast.PseudoElementSelector{Base: ast.Base{Loc: p.loc(start, end)}, Name: name, Argument: arg}, start, end)
	} else {
		p.addSimple(&ast.PseudoClassSelector{Base: ast.Base{Loc: p.loc(start, end)}, Name: name, Argument: arg}, start, end)
	}
	return i, nil
}
