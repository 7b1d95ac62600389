package expr

import (
	"fmt"
	"unicode/utf8"
)

// tokenType classifies a lexed token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIllegal
	tokenNumber
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of input"
	case tokenIllegal:
		return "illegal character"
	case tokenNumber:
		return "number"
	case tokenIdent:
		return "identifier"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenSlash:
		return "'/'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("tokenType(%d)", int(t))
	}
}

// token is a lexeme together with its byte offset in the source text.
type token struct {
	typ     tokenType
	literal string
	offset  int
}

// describe renders a token for error messages.
func (t token) describe() string {
	switch t.typ {
	case tokenEOF:
		return "end of input"
	case tokenNumber, tokenIdent, tokenIllegal:
		return fmt.Sprintf("%s %q", t.typ, t.literal)
	default:
		return t.typ.String()
	}
}

// lexer splits expression text into tokens. It works on bytes; any rune
// outside the expression alphabet becomes an illegal token.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// tokenize lexes the whole input, always ending with an EOF token.
func (l *lexer) tokenize() []token {
	var toks []token
	for {
		tok := l.next()
		toks = append(toks, tok)
		if tok.typ == tokenEOF {
			return toks
		}
	}
}

func (l *lexer) peekByte(ahead int) byte {
	if l.pos+ahead >= len(l.input) {
		return 0
	}
	return l.input[l.pos+ahead]
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) next() token {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, offset: start}
	}

	single := func(typ tokenType) token {
		l.pos++
		return token{typ: typ, literal: l.input[start:l.pos], offset: start}
	}

	c := l.input[l.pos]
	switch {
	case c == '+':
		return single(tokenPlus)
	case c == '-':
		return single(tokenMinus)
	case c == '*':
		return single(tokenStar)
	case c == '/':
		return single(tokenSlash)
	case c == '(':
		return single(tokenLParen)
	case c == ')':
		return single(tokenRParen)
	case isDigit(c):
		return l.readNumber()
	case isIdentStart(c):
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		return token{typ: tokenIdent, literal: l.input[start:l.pos], offset: start}
	}
	_, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return token{typ: tokenIllegal, literal: l.input[start:l.pos], offset: start}
}

// readNumber consumes digits [. digits] [(e|E) [+|-] digits]. An exponent
// marker without digits is left for the parser to reject as an identifier
// following a number.
func (l *lexer) readNumber() token {
	start := l.pos
	for isDigit(l.peekByte(0)) {
		l.pos++
	}
	if l.peekByte(0) == '.' {
		l.pos++
		for isDigit(l.peekByte(0)) {
			l.pos++
		}
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		digits := 1
		if s := l.peekByte(1); s == '+' || s == '-' {
			digits = 2
		}
		if isDigit(l.peekByte(digits)) {
			l.pos += digits
			for isDigit(l.peekByte(0)) {
				l.pos++
			}
		}
	}
	return token{typ: tokenNumber, literal: l.input[start:l.pos], offset: start}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
