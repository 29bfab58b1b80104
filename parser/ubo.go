package parser

import (
	"strings"

	"agtree/ast"
	"agtree/css"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

// uBO pseudo-classes that carry rule options instead of matching elements.
const (
	uboStyle        = "style"
	uboRemove       = "remove"
	uboMatchesMedia = "matches-media"
	uboMatchesPath  = "matches-path"
	cssNot          = "not"
)

// Modifier names used for uBO options folded out of the selector.
const (
	ModifierMatchesPath  = uboMatchesPath
	ModifierMatchesMedia = uboMatchesMedia
)

func isUboPseudo(name string) bool {
	switch name {
	case uboStyle, uboRemove, uboMatchesMedia, uboMatchesPath:
		return true
	}
	return false
}

// uboSelector is a `##` body split into its plain selector and the uBO
// options found in it.
type uboSelector struct {
	selector string
	// bounds of the remaining selector in the raw rule
	start int
	end   int

	path      *ast.Modifier
	media     *ast.Modifier
	style     *ast.Value
	remove    bool
	injection bool

	// first uBO-specific pseudo-class, in raw rule offsets
	first *scanner.Span
}

func (u *uboSelector) detected() bool {
	return u.first != nil
}

func (u *uboSelector) elementHidingModifiers() *ast.ModifierList {
	var mods []*ast.Modifier
	if u.path != nil {
		mods = append(mods, u.path)
	}
	if u.media != nil {
		mods = append(mods, u.media)
	}
	if mods == nil {
		return nil
	}

	list := &ast.ModifierList{Children: mods}
	// spans every folded option, whatever their order in the selector
	for _, m := range mods {
		if m.Loc == nil {
			continue
		}
		if list.Loc == nil {
			list.Loc = &ast.Location{Start: m.Loc.Start, End: m.Loc.End}
			continue
		}
		list.Loc.Start = min(list.Loc.Start, m.Loc.Start)
		list.Loc.End = max(list.Loc.End, m.Loc.End)
	}
	return list
}

type uboSplitter struct {
	p      *parser
	src    string
	offset int
	tokens []css.Token
	u      *uboSelector
}

// splitUboSelector extracts `:style()`, `:remove()`, `:matches-media()` and
// `:matches-path()`, including `:not(...)` chains around `:matches-path()`,
// from the selector in raw[start:end].
func (p *parser) splitUboSelector(start, end int) (*uboSelector, error) {
	src := p.raw[start:end]
	tokens, err := css.Tokenize(src)
	if err != nil {
		return nil, p.errorAt(parseErrors.CodeUnknown, start, end, err.Error())
	}

	s := &uboSplitter{p: p, src: src, offset: start, tokens: tokens, u: &uboSelector{}}
	cuts, err := s.split()
	if err != nil {
		return nil, err
	}

	s.u.selector, s.u.start, s.u.end = remainder(src, cuts)
	s.u.start += start
	s.u.end += start
	return s.u, nil
}

func (s *uboSplitter) errorAt(code parseErrors.Code, start, end int, args ...any) error {
	return s.p.errorAt(code, s.offset+start, s.offset+end, args...)
}

func (s *uboSplitter) value(start, end int) ast.Value {
	return s.p.value(s.offset+start, s.offset+end)
}

func (s *uboSplitter) mark(start, end int) {
	if s.u.first == nil {
		s.u.first = &scanner.Span{Start: s.offset + start, End: s.offset + end}
	}
}

// pseudoAt returns the function token index and the closing parenthesis
// index of a `:name(...)` pseudo-class whose colon is at i.
func (s *uboSplitter) pseudoAt(i int) (fn, closeIdx int, err error) {
	if s.tokens[i].Type != css.Colon || i+1 >= len(s.tokens) || s.tokens[i+1].Type != css.Function {
		return -1, -1, nil
	}
	fn = i + 1
	closeIdx, ok := css.MatchingParen(s.tokens, fn, s.p.opts.depth())
	if !ok {
		t := s.tokens[closeIdx]
		return -1, -1, s.errorAt(parseErrors.CodeNestingTooDeep, t.Start, t.End, s.p.opts.depth())
	}
	if closeIdx < 0 {
		return -1, -1, s.errorAt(parseErrors.CodeUnclosedParenthesis, s.tokens[fn].Start, len(s.src))
	}
	return fn, closeIdx, nil
}

// argument returns the trimmed bounds of the text between a function token
// and its closing parenthesis.
func (s *uboSplitter) argument(fn, closeIdx int) (int, int) {
	return scanner.TrimmedBounds(s.src, s.tokens[fn].End, s.tokens[closeIdx].Start)
}

func (s *uboSplitter) split() ([]scanner.Span, error) {
	var cuts []scanner.Span

	for i := 0; i < len(s.tokens); i++ {
		fn, closeIdx, err := s.pseudoAt(i)
		if err != nil {
			return nil, err
		}
		if fn < 0 {
			continue
		}

		name := s.tokens[fn].FunctionName(s.src)
		span := scanner.Span{Start: s.tokens[i].Start, End: s.tokens[closeIdx].End}

		switch name {
		case uboStyle, uboRemove:
			if err := s.injection(name, fn, closeIdx, span); err != nil {
				return nil, err
			}

		case uboMatchesMedia, uboMatchesPath:
			target := &s.u.media
			if name == uboMatchesPath {
				target = &s.u.path
			}
			if *target != nil {
				return nil, s.errorAt(parseErrors.CodeUboDuplicatePseudo, span.Start, span.End, name)
			}
			m, err := s.modifier(name, fn, closeIdx, span)
			if err != nil {
				return nil, err
			}
			*target = m

		case cssNot:
			negations, pathFn, pathClose, err := s.foldNegation(fn, closeIdx, 1)
			if err != nil {
				return nil, err
			}
			if pathFn < 0 {
				i = closeIdx
				continue
			}
			if s.u.path != nil {
				return nil, s.errorAt(parseErrors.CodeUboDuplicatePseudo, span.Start, span.End, uboMatchesPath)
			}
			m, err := s.modifier(uboMatchesPath, pathFn, pathClose, span)
			if err != nil {
				return nil, err
			}
			m.Exception = negations%2 == 1
			s.u.path = m

		default:
			if inner, innerName := s.findUboPseudo(fn+1, closeIdx); inner >= 0 {
				t := s.tokens[inner]
				return nil, s.errorAt(parseErrors.CodeUboInvalidNesting, t.Start, t.End, innerName, name)
			}
			i = closeIdx
			continue
		}

		s.mark(span.Start, span.End)
		cuts = append(cuts, span)
		i = closeIdx
	}
	return cuts, nil
}

func (s *uboSplitter) injection(name string, fn, closeIdx int, span scanner.Span) error {
	if s.u.injection {
		return s.errorAt(parseErrors.CodeUboDuplicatePseudo, span.Start, span.End, name)
	}
	for _, t := range s.tokens[closeIdx+1:] {
		if !t.IsBlank() {
			return s.errorAt(parseErrors.CodeUboStyleNotLast, span.Start, span.End, name)
		}
	}

	as, ae := s.argument(fn, closeIdx)
	if name == uboRemove {
		if as != ae {
			return s.errorAt(parseErrors.CodeUboUnexpectedArgument, as, ae, name)
		}
		s.u.remove = true
	} else {
		if as == ae {
			return s.errorAt(parseErrors.CodeUboEmptyArgument, span.Start, span.End, name)
		}
		v := s.value(as, ae)
		s.u.style = &v
	}
	s.u.injection = true
	return nil
}

func (s *uboSplitter) modifier(name string, fn, closeIdx int, span scanner.Span) (*ast.Modifier, error) {
	as, ae := s.argument(fn, closeIdx)
	if as == ae {
		return nil, s.errorAt(parseErrors.CodeUboEmptyArgument, span.Start, span.End, name)
	}
	fnTok := s.tokens[fn]
	v := s.value(as, ae)
	return &ast.Modifier{
		Base:  ast.Base{Loc: s.p.loc(s.offset+span.Start, s.offset+span.End)},
		Name:  ast.Value{Base: ast.Base{Loc: s.p.loc(s.offset+fnTok.Start, s.offset+fnTok.End-1)}, Value: name},
		Value: &v,
	}, nil
}

// foldNegation inspects the `:not(...)` whose function token is fn. When the
// argument is a chain of `:not()` ending in `:matches-path()`, it returns the
// number of negations and the token indices of the `:matches-path()` call.
// A plain `:not()` yields pathFn < 0.
func (s *uboSplitter) foldNegation(fn, closeIdx, negations int) (int, int, int, error) {
	inner, innerName := s.findUboPseudo(fn+1, closeIdx)
	if inner < 0 {
		return 0, -1, -1, nil
	}

	// trim blank tokens around the argument
	a, b := fn+1, closeIdx
	for a < b && s.tokens[a].IsBlank() {
		a++
	}
	for b > a && s.tokens[b-1].IsBlank() {
		b--
	}

	innerFn, innerClose, err := s.pseudoAt(a)
	if err != nil {
		return 0, -1, -1, err
	}
	if innerFn < 0 || innerClose != b-1 {
		t := s.tokens[inner]
		if innerName == uboMatchesPath {
			return 0, -1, -1, s.errorAt(parseErrors.CodeUboMatchesPathSibling, t.Start, t.End)
		}
		return 0, -1, -1, s.errorAt(parseErrors.CodeUboInvalidNesting, t.Start, t.End, innerName, cssNot)
	}

	name := s.tokens[innerFn].FunctionName(s.src)
	switch name {
	case cssNot:
		if negations >= s.p.opts.depth() {
			t := s.tokens[innerFn]
			return 0, -1, -1, s.errorAt(parseErrors.CodeNestingTooDeep, t.Start, t.End, s.p.opts.depth())
		}
		return s.foldNegation(innerFn, innerClose, negations+1)
	case uboMatchesPath:
		return negations, innerFn, innerClose, nil
	}

	t := s.tokens[inner]
	outer := name
	if isUboPseudo(name) {
		outer = cssNot
	}
	return 0, -1, -1, s.errorAt(parseErrors.CodeUboInvalidNesting, t.Start, t.End, innerName, outer)
}

// findUboPseudo returns the index and name of the first uBO option
// pseudo-class function in tokens[from:to], or -1.
func (s *uboSplitter) findUboPseudo(from, to int) (int, string) {
	for i := from; i < to; i++ {
		if name := s.tokens[i].FunctionName(s.src); isUboPseudo(name) {
			return i, name
		}
	}
	return -1, ""
}

// remainder removes cuts from src and returns the trimmed text with its
// bounds in src.
func remainder(src string, cuts []scanner.Span) (string, int, int) {
	if len(cuts) == 0 {
		s, e := scanner.TrimmedBounds(src, 0, len(src))
		return src[s:e], s, e
	}

	var b strings.Builder
	prev := 0
	start, end := -1, 0
	for _, c := range append(cuts, scanner.Span{Start: len(src), End: len(src)}) {
		piece := src[prev:c.Start]
		b.WriteString(piece)
		if ps, pe := scanner.TrimmedBounds(src, prev, c.Start); ps < pe {
			if start < 0 {
				start = ps
			}
			end = pe
		}
		prev = c.End
	}
	if start < 0 {
		return "", 0, 0
	}
	return strings.TrimSpace(b.String()), start, end
}
