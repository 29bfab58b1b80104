// Package css adapts the tdewolff CSS lexer to offset-carrying tokens and
// implements the CSS selector parser used by cosmetic rule bodies.
package css

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	tcss "github.com/tdewolff/parse/v2/css"
)

// TokenType is the lexer token kind.
type TokenType = tcss.TokenType

// Token kinds used by the parsers.
const (
	Ident          = tcss.IdentToken
	Function       = tcss.FunctionToken
	AtKeyword      = tcss.AtKeywordToken
	Hash           = tcss.HashToken
	String         = tcss.StringToken
	BadString      = tcss.BadStringToken
	URL            = tcss.URLToken
	BadURL         = tcss.BadURLToken
	Delim          = tcss.DelimToken
	Number         = tcss.NumberToken
	Percentage     = tcss.PercentageToken
	Dimension      = tcss.DimensionToken
	IncludeMatch   = tcss.IncludeMatchToken
	DashMatch      = tcss.DashMatchToken
	PrefixMatch    = tcss.PrefixMatchToken
	SuffixMatch    = tcss.SuffixMatchToken
	SubstringMatch = tcss.SubstringMatchToken
	Column         = tcss.ColumnToken
	Whitespace     = tcss.WhitespaceToken
	Colon          = tcss.ColonToken
	Semicolon      = tcss.SemicolonToken
	Comma          = tcss.CommaToken
	LeftBracket    = tcss.LeftBracketToken
	RightBracket   = tcss.RightBracketToken
	LeftParen      = tcss.LeftParenthesisToken
	RightParen     = tcss.RightParenthesisToken
	LeftBrace      = tcss.LeftBraceToken
	RightBrace     = tcss.RightBraceToken
	Comment        = tcss.CommentToken
)

// Token is a lexer token with its [Start, End) offsets in the source.
type Token struct {
	Type  TokenType
	Start int
	End   int
}

// Text returns the token text in src.
func (t Token) Text(src string) string {
	return src[t.Start:t.End]
}

// IsDelim reports whether t is the delimiter c.
func (t Token) IsDelim(src string, c byte) bool {
	return t.Type == Delim && t.End-t.Start == 1 && src[t.Start] == c
}

// FunctionName returns the lower-cased name of a function token without the
// opening parenthesis.
func (t Token) FunctionName(src string) string {
	if t.Type != Function {
		return ""
	}
	return strings.ToLower(src[t.Start : t.End-1])
}

// IsBlank reports whether t is whitespace or a comment.
func (t Token) IsBlank() bool {
	return t.Type == Whitespace || t.Type == Comment
}

// Tokenize splits src into tokens. The tokens cover src without gaps.
func Tokenize(src string) ([]Token, error) {
	l := tcss.NewLexer(parse.NewInputString(src))

	var tokens []Token
	pos := 0
	for {
		tt, data := l.Next()
		if tt == tcss.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("tokenizing css: %w", err)
			}
			break
		}
		tokens = append(tokens, Token{Type: tt, Start: pos, End: pos + len(data)})
		pos += len(data)
	}

	if pos != len(src) {
		return nil, fmt.Errorf("tokenizing css: stopped at offset %d of %d", pos, len(src))
	}
	return tokens, nil
}

// MatchingParen returns the index of the token closing the function or
// parenthesis token at open, or -1. Nested functions deeper than maxDepth
// produce ok=false.
func MatchingParen(tokens []Token, open, maxDepth int) (closeIdx int, ok bool) {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Type {
		case Function, LeftParen:
			depth++
			if maxDepth > 0 && depth > maxDepth {
				return i, false
			}
		case RightParen:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, true
}
