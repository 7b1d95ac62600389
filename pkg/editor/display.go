package editor

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/chazu/exprgraph/pkg/graph"
)

// Display is what the presentation layer renders next to a pin.
type Display struct {
	Label     string  `json:"label,omitempty"` // variable name of an expression input
	Text      string  `json:"text"`
	Value     float64 `json:"value,omitempty"`
	HasValue  bool    `json:"has_value"`  // Value is meaningful
	NonFinite bool    `json:"non_finite"` // Value is ±Inf or NaN, e.g. after x / 0
}

// MarshalJSON leaves out a non-finite Value, which JSON cannot encode. Text
// still carries it.
func (d Display) MarshalJSON() ([]byte, error) {
	type plain Display
	p := plain(d)
	if p.NonFinite {
		p.Value = 0
	}
	return json.Marshal(p)
}

// Text shown for pins without a value.
const (
	TextNone    = "None"    // unwired sink
	TextRemoved = "Removed" // expression input past the binding list
)

func (obj *Editor) precision() int {
	if obj.Precision == 0 {
		return DefaultPrecision
	}
	return obj.Precision
}

// number formats an expression value.
func (obj *Editor) number(v float64) Display {
	prec := obj.precision()
	format := byte('f')
	if prec < 0 {
		format, prec = 'g', -1
	}
	return Display{
		Text:      strconv.FormatFloat(v, format, prec, 64),
		Value:     v,
		HasValue:  true,
		NonFinite: math.IsInf(v, 0) || math.IsNaN(v),
	}
}

func integer(v int64) Display {
	return Display{Text: strconv.FormatInt(v, 10), Value: float64(v), HasValue: true}
}

// Output returns the display of an output pin.
func (obj *Editor) Output(g *graph.Graph, out graph.OutPinID) Display {
	n := g.Get(out.Node)
	if n == nil || out.Output < 0 || out.Output >= n.Outputs() {
		return Display{Text: TextNone}
	}
	switch d := n.Data.(type) {
	case *graph.IntegerData:
		return integer(d.Value)
	case *graph.StringData:
		return Display{Text: strconv.Quote(d.Value)}
	case *graph.ShowData:
		return Display{Text: showURI(g, n, d)}
	case *graph.ExprData:
		return obj.number(d.Eval())
	}
	return Display{Text: TextNone}
}

// Input returns the display of an input pin. A wired input shows its remote;
// an unwired expression input shows its stored value.
func (obj *Editor) Input(g *graph.Graph, in graph.InPinID) Display {
	n := g.Get(in.Node)
	if n == nil {
		return Display{Text: TextNone}
	}
	remote, wired := g.Remote(in)

	switch d := n.Data.(type) {
	case *graph.SinkData:
		if !wired {
			return Display{Text: TextNone}
		}
		// a sink shows expression values unrounded
		if src := g.Get(remote.Node); src != nil && src.Kind == graph.NodeExpression {
			full := Editor{Precision: -1}
			return full.Output(g, remote)
		}
		return obj.Output(g, remote)

	case *graph.ShowData:
		return Display{Text: showURI(g, n, d)}

	case *graph.ExprData:
		if in.Input < 0 || in.Input >= len(d.Bindings) {
			return Display{Text: TextRemoved}
		}
		disp := obj.number(d.Values[in.Input])
		if wired {
			disp = obj.Output(g, remote)
		}
		disp.Label = d.Bindings[in.Input]
		return disp
	}
	return Display{Text: TextNone}
}

// showURI is the URI an image-show node displays: the value of a wired
// string source, else its own URI.
func showURI(g *graph.Graph, n *graph.Node, d *graph.ShowData) string {
	if remote, ok := g.Remote(n.In(0)); ok {
		if src := g.Get(remote.Node); src != nil {
			if s, ok := src.Data.(*graph.StringData); ok {
				return s.Value
			}
		}
	}
	return d.URI
}

// PinDisplay is one row of a full graph display.
type PinDisplay struct {
	Node    string  `json:"node"`
	Pin     string  `json:"pin"` // "in0", "out0", ...
	Display Display `json:"display"`
}

// DisplayAll lists every pin of g in node order, inputs before outputs.
func (obj *Editor) DisplayAll(g *graph.Graph) []PinDisplay {
	var rows []PinDisplay
	for _, n := range g.Nodes() {
		for i := 0; i < n.Inputs(); i++ {
			rows = append(rows, PinDisplay{
				Node:    n.Label(),
				Pin:     "in" + strconv.Itoa(i),
				Display: obj.Input(g, n.In(i)),
			})
		}
		for i := 0; i < n.Outputs(); i++ {
			rows = append(rows, PinDisplay{
				Node:    n.Label(),
				Pin:     "out" + strconv.Itoa(i),
				Display: obj.Output(g, n.Out(i)),
			})
		}
	}
	return rows
}
