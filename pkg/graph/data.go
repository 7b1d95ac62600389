package graph

import (
	"github.com/chazu/exprgraph/pkg/expr"
)

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	// Kind returns the node kind this payload belongs to.
	Kind() NodeKind

	clone() NodeData
}

// ---------------------------------------------------------------------------
// Sources and sinks
// ---------------------------------------------------------------------------

// SinkData is the payload of a sink. A sink only displays its input.
type SinkData struct{}

// IntegerData is an editable integer value.
type IntegerData struct {
	Value int64 `json:"value"`
}

// StringData is an editable string value.
type StringData struct {
	Value string `json:"value"`
}

// ShowData holds the URI of the image to show. When a string source is wired
// to the input, its value replaces the URI.
type ShowData struct {
	URI string `json:"uri"`
}

func (*SinkData) Kind() NodeKind    { return NodeSink }
func (*IntegerData) Kind() NodeKind { return NodeIntegerSource }
func (*StringData) Kind() NodeKind  { return NodeStringSource }
func (*ShowData) Kind() NodeKind    { return NodeImageShow }

func (d *SinkData) clone() NodeData {
	c := *d
	return &c
}

func (d *IntegerData) clone() NodeData {
	c := *d
	return &c
}

func (d *StringData) clone() NodeData {
	c := *d
	return &c
}

func (d *ShowData) clone() NodeData {
	c := *d
	return &c
}

// ---------------------------------------------------------------------------
// Expression
// ---------------------------------------------------------------------------

// ExprData is the payload of an expression node. Bindings is the ordered list
// of distinct variables of AST and defines the input pins; Values holds the
// last known value of each pin. len(Bindings) == len(Values) at all times.
//
// Text is the raw editor text and may be out of sync with AST while the user
// is mid-edit: a failed parse keeps the last good AST.
type ExprData struct {
	Text     string    `json:"text"`
	AST      expr.Expr `json:"-"`
	Bindings []string  `json:"bindings"`
	Values   []float64 `json:"values"`
}

// NewExprData returns the payload of a fresh expression node: the constant 0.
func NewExprData() *ExprData {
	return &ExprData{
		Text:     "0",
		AST:      &expr.Literal{Value: 0},
		Bindings: []string{},
		Values:   []float64{},
	}
}

// ParseExprData builds a payload from text with every input at zero.
func ParseExprData(text string) (*ExprData, error) {
	ast, err := expr.Parse(text)
	if err != nil {
		return nil, err
	}
	b := expr.Bind(ast)
	return &ExprData{
		Text:     text,
		AST:      b.Expr,
		Bindings: b.Names,
		Values:   make([]float64, len(b.Names)),
	}, nil
}

func (*ExprData) Kind() NodeKind { return NodeExpression }

// Eval evaluates the expression with the stored input values.
func (d *ExprData) Eval() float64 {
	return expr.Eval(d.AST, d.Bindings, d.Values)
}

// Slot returns the input index of the named variable, or -1.
func (d *ExprData) Slot(name string) int {
	for i, b := range d.Bindings {
		if b == name {
			return i
		}
	}
	return -1
}

func (d *ExprData) clone() NodeData {
	c := *d
	c.Bindings = append([]string{}, d.Bindings...)
	c.Values = append([]float64{}, d.Values...)
	return &c // the AST is immutable and can be shared
}
