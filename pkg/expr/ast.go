// Package expr parses and evaluates the small arithmetic expressions carried
// by expression nodes. An expression is built from numeric literals, free
// variables, unary +/- and the four binary operators + - * /.
package expr

import (
	"fmt"
	"strconv"
)

// UnaryOp enumerates the prefix operators.
type UnaryOp int

const (
	OpIdentity UnaryOp = iota // +x
	OpNegate                  // -x
)

func (op UnaryOp) String() string {
	switch op {
	case OpIdentity:
		return "+"
	case OpNegate:
		return "-"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

// BinaryOp enumerates the infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}
}

// additive reports whether op sits on the lower precedence tier.
func (op BinaryOp) additive() bool {
	return op == OpAdd || op == OpSubtract
}

// Precedence orders how tightly a node holds together when printed.
type Precedence int

const (
	PrecSum Precedence = iota
	PrecProduct
	PrecUnary
	PrecAtomic
)

func (op BinaryOp) precedence() Precedence {
	if op.additive() {
		return PrecSum
	}
	return PrecProduct
}

// Expr is an immutable expression tree. The set of implementations is closed:
// Variable, Literal, Unary and Binary.
type Expr interface {
	fmt.Stringer

	// Precedence returns the loosest binding operator at the top of the
	// expression, used to decide where parentheses are needed.
	Precedence() Precedence

	expr() // marker method restricting implementations to this package
}

// Variable is a reference to a free variable.
type Variable struct {
	Name string
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// Unary applies a prefix operator to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Binary applies an infix operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*Variable) expr() {}
func (*Literal) expr()  {}
func (*Unary) expr()    {}
func (*Binary) expr()   {}

// Precedence returns PrecAtomic.
func (*Variable) Precedence() Precedence { return PrecAtomic }

// Precedence returns PrecAtomic.
func (*Literal) Precedence() Precedence { return PrecAtomic }

// Precedence returns PrecUnary.
func (*Unary) Precedence() Precedence { return PrecUnary }

// Precedence returns the tier of the operator.
func (b *Binary) Precedence() Precedence { return b.Op.precedence() }

func (v *Variable) String() string {
	return v.Name
}

// String prints the shortest decimal form that reads back as the same value.
// Negative constants never come out of the parser, but a hand-built one is
// printed with a leading minus, which parses back as a negation.
func (l *Literal) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

func (u *Unary) String() string {
	operand := u.Operand.String()
	if u.Operand.Precedence() < PrecUnary {
		operand = "(" + operand + ")"
	}
	return u.Op.String() + operand
}

// String prints the expression in infix form. The left operand is wrapped
// only when it binds looser than the operator; the right operand also when it
// binds equally, since every operator here associates to the left.
func (b *Binary) String() string {
	left := b.Left.String()
	right := b.Right.String()
	if b.Left.Precedence() < b.Precedence() {
		left = "(" + left + ")"
	}
	if b.Right.Precedence() <= b.Precedence() {
		right = "(" + right + ")"
	}
	return left + " " + b.Op.String() + " " + right
}

// Walk visits e depth first, parent before children, left before right. It
// stops descending into a node when fn returns false.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Unary:
		Walk(n.Operand, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	}
}
