package expr

import (
	"fmt"
	"strconv"
)

// SyntaxError reports malformed expression text. Offset is the byte offset of
// the offending token; Token is its text (empty at end of input).
type SyntaxError struct {
	Offset int
	Token  string
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at column %d: %s", e.Offset+1, e.Msg)
}

// Parse turns infix expression text into an AST. Parsing is a pure function of
// the text, so it is safe to call on every keystroke. On failure the returned
// error is a *SyntaxError and no partial tree is returned.
//
// The grammar has two precedence tiers. A primary is a parenthesised
// expression, a number, an identifier, or a unary + or - applied to a
// primary. Operators fold to the left, except that when an additive operator
// is followed by a multiplicative one, the right operand first absorbs the
// whole multiplicative run.
func Parse(text string) (Expr, error) {
	p := &parser{toks: newLexer(text).tokenize()}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); tok.typ {
	case tokenEOF:
		return e, nil
	case tokenRParen:
		return nil, p.errorf(tok, "unmatched ')'")
	default:
		return nil, p.errorf(tok, "unexpected %s", tok.describe())
	}
}

// MustParse is like Parse but panics on error. It is meant for fixed
// expressions in tests and defaults.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("expr: MustParse(%q): %v", text, err))
	}
	return e
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

// atEnd reports whether the current (sub-)expression is finished: either the
// input is exhausted or a closing parenthesis follows.
func (p *parser) atEnd() bool {
	typ := p.peek().typ
	return typ == tokenEOF || typ == tokenRParen
}

func (p *parser) errorf(tok token, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Offset: tok.offset,
		Token:  tok.literal,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// parseExpr parses a primary followed by any binary tail.
func (p *parser) parseExpr() (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.atEnd() {
		return lhs, nil
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	return p.parseBinary(lhs, op)
}

// parseBinary parses the right operand of op and then either closes the node
// or keeps going with the next operator.
func (p *parser) parseBinary(lhs Expr, op BinaryOp) (Expr, error) {
	rhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.atEnd() {
		return &Binary{Op: op, Left: lhs, Right: rhs}, nil
	}
	next, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	if op.additive() && !next.additive() {
		// The multiplicative run binds tighter: fold it into rhs before
		// closing the additive node.
		if rhs, err = p.parseProduct(rhs, next); err != nil {
			return nil, err
		}
		if p.atEnd() {
			return &Binary{Op: op, Left: lhs, Right: rhs}, nil
		}
		if next, err = p.parseOperator(); err != nil {
			return nil, err
		}
	}

	return p.parseBinary(&Binary{Op: op, Left: lhs, Right: rhs}, next)
}

// parseProduct folds a run of * and / to the left, starting from lhs and the
// already consumed operator op. It stops before the first additive operator.
func (p *parser) parseProduct(lhs Expr, op BinaryOp) (Expr, error) {
	for {
		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		lhs = &Binary{Op: op, Left: lhs, Right: rhs}

		if typ := p.peek().typ; typ != tokenStar && typ != tokenSlash {
			return lhs, nil
		}
		if op, err = p.parseOperator(); err != nil {
			return nil, err
		}
	}
}

// parseOperator consumes a binary operator.
func (p *parser) parseOperator() (BinaryOp, error) {
	tok := p.peek()
	var op BinaryOp
	switch tok.typ {
	case tokenPlus:
		op = OpAdd
	case tokenMinus:
		op = OpSubtract
	case tokenStar:
		op = OpMultiply
	case tokenSlash:
		op = OpDivide
	default:
		return 0, p.errorf(tok, "expected operator, found %s", tok.describe())
	}
	p.advance()
	return op, nil
}

// parsePrimary parses a parenthesised expression, a number, an identifier or
// a unary operator applied to a primary.
func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.typ {
	case tokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.typ != tokenRParen {
			return nil, p.errorf(closing, "expected ')' to close '(' at column %d, found %s",
				tok.offset+1, closing.describe())
		}
		p.advance()
		return inner, nil

	case tokenNumber:
		p.advance()
		value, err := strconv.ParseFloat(tok.literal, 64)
		if err != nil {
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				return nil, p.errorf(tok, "number %q out of range", tok.literal)
			}
			return nil, p.errorf(tok, "malformed number %q", tok.literal)
		}
		return &Literal{Value: value}, nil

	case tokenIdent:
		p.advance()
		return &Variable{Name: tok.literal}, nil

	case tokenPlus, tokenMinus:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		op := OpIdentity
		if tok.typ == tokenMinus {
			op = OpNegate
		}
		return &Unary{Op: op, Operand: operand}, nil

	case tokenEOF:
		return nil, p.errorf(tok, "unexpected end of input, expected operand")
	}
	return nil, p.errorf(tok, "unexpected %s, expected operand", tok.describe())
}
