package parser

import (
	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/scanner"
)

// exprParser is a recursive-descent parser for `!#if` conditions.
// Precedence, highest first: `!`, `&&`, `||`.
type exprParser struct {
	p     *parser
	pos   int
	end   int
	depth int
}

func (p *parser) parseExpression(start, end int) (ast.Expression, error) {
	e := &exprParser{p: p, pos: start, end: end}
	expr, _, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	e.skipWS()
	if e.pos < e.end {
		return nil, e.fail(e.pos, e.pos+1, "unexpected "+quoteByte(p.raw[e.pos]))
	}
	return expr, nil
}

func quoteByte(c byte) string {
	return "'" + string(c) + "'"
}

func (e *exprParser) fail(start, end int, detail string) error {
	return e.p.errorAt(parseErrors.CodeInvalidExpression, start, end, detail)
}

func (e *exprParser) skipWS() {
	e.pos = scanner.SkipWS(e.p.raw[:e.end], e.pos)
}

func (e *exprParser) peek(op string) bool {
	e.skipWS()
	return hasPrefixAt(e.p.raw[:e.end], e.pos, op)
}

// Each parse method returns the node and its start offset; the end offset is
// e.pos after the call.

func (e *exprParser) parseOr() (ast.Expression, int, error) {
	left, start, err := e.parseAnd()
	if err != nil {
		return nil, 0, err
	}
	for e.peek(ast.OperatorOr) {
		e.pos += len(ast.OperatorOr)
		right, _, err := e.parseAnd()
		if err != nil {
			return nil, 0, err
		}
		left = &ast.ExpressionOperator{
			Base:     ast.Base{Loc: e.p.loc(start, e.pos)},
			Operator: ast.OperatorOr,
			Left:     left,
			Right:    right,
		}
	}
	return left, start, nil
}

func (e *exprParser) parseAnd() (ast.Expression, int, error) {
	left, start, err := e.parseNot()
	if err != nil {
		return nil, 0, err
	}
	for e.peek(ast.OperatorAnd) {
		e.pos += len(ast.OperatorAnd)
		right, _, err := e.parseNot()
		if err != nil {
			return nil, 0, err
		}
		left = &ast.ExpressionOperator{
			Base:     ast.Base{Loc: e.p.loc(start, e.pos)},
			Operator: ast.OperatorAnd,
			Left:     left,
			Right:    right,
		}
	}
	return left, start, nil
}

func (e *exprParser) parseNot() (ast.Expression, int, error) {
	if !e.peek(ast.OperatorNot) {
		return e.parsePrimary()
	}
	start := e.pos
	e.pos++
	if err := e.enter(start); err != nil {
		return nil, 0, err
	}
	operand, _, err := e.parseNot()
	e.depth--
	if err != nil {
		return nil, 0, err
	}
	return &ast.ExpressionOperator{
		Base:     ast.Base{Loc: e.p.loc(start, e.pos)},
		Operator: ast.OperatorNot,
		Left:     operand,
	}, start, nil
}

func (e *exprParser) enter(at int) error {
	e.depth++
	if e.depth > e.p.opts.depth() {
		return e.p.errorAt(parseErrors.CodeNestingTooDeep, at, at+1, e.p.opts.depth())
	}
	return nil
}

func (e *exprParser) parsePrimary() (ast.Expression, int, error) {
	e.skipWS()
	if e.pos >= e.end {
		return nil, 0, e.fail(e.end, e.end, "missing operand")
	}

	start := e.pos
	raw := e.p.raw

	if raw[start] == '(' {
		if err := e.enter(start); err != nil {
			return nil, 0, err
		}
		e.pos++
		inner, _, err := e.parseOr()
		if err != nil {
			return nil, 0, err
		}
		e.skipWS()
		if e.pos >= e.end || raw[e.pos] != ')' {
			return nil, 0, e.p.errorAt(parseErrors.CodeUnclosedParenthesis, start, e.end)
		}
		e.pos++
		e.depth--
		return &ast.ExpressionParenthesis{
			Base:       ast.Base{Loc: e.p.loc(start, e.pos)},
			Expression: inner,
		}, start, nil
	}

	end := e.p.scanIdent(start, e.end)
	if end == start {
		return nil, 0, e.fail(start, start+1, "unexpected "+quoteByte(raw[start]))
	}
	e.pos = end
	return &ast.ExpressionVariable{
		Base: ast.Base{Loc: e.p.loc(start, end)},
		Name: raw[start:end],
	}, start, nil
}
