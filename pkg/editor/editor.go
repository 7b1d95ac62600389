// Package editor runs the edit cycle of an expression graph.
//
// A presentation layer owns a *graph.Graph. Each time the user types into an
// expression node it calls Edit with the raw text, gets back the new payload
// and the commands that keep the wiring consistent, and applies them with
// Result.Commit. Manual wiring goes through Connect, which enforces the
// legality rules and replaces an existing wire in one transaction.
package editor

import (
	"fmt"
	"slices"

	"github.com/chazu/exprgraph/pkg/errwrap"
	"github.com/chazu/exprgraph/pkg/graph"
	"github.com/chazu/exprgraph/pkg/metrics"
	"github.com/chazu/exprgraph/pkg/rebind"
)

// DefaultPrecision is the number of decimals shown for expression values.
const DefaultPrecision = 2

// Editor performs edit cycles. The zero value is ready to use: it logs
// nothing, records no metrics and shows DefaultPrecision decimals.
type Editor struct {
	// Logf is used for debug logging. Nil disables it.
	Logf func(format string, v ...interface{})

	// Metrics receives edit, command and rejection counts. May be nil.
	Metrics *metrics.Metrics

	// Precision is the number of decimals for expression values. Zero means
	// DefaultPrecision; a negative value prints the shortest exact form.
	Precision int
}

func (obj *Editor) logf(format string, v ...interface{}) {
	if obj.Logf != nil {
		obj.Logf(format, v...)
	}
}

// Result is the outcome of one edit cycle. Nothing is applied to the graph
// until Commit is called.
type Result struct {
	// Node is the edited expression node.
	Node graph.NodeID

	// Data is the payload the node gets on commit. After a syntax error it
	// keeps the previous tree, bindings and values and only the text
	// changes.
	Data *graph.ExprData

	// Commands rebinds the node's wires. Empty unless the binding list
	// changed.
	Commands []graph.Command

	// SyntaxErr is the *expr.SyntaxError of a failed parse, or nil.
	SyntaxErr error

	// Rebound is true when the binding list changed.
	Rebound bool

	ed *Editor
}

// Value evaluates the resulting expression with its stored inputs.
func (obj *Result) Value() float64 {
	return obj.Data.Eval()
}

// Edit parses text for the expression node id and plans the update against
// the current state of g. It returns an error only if id is not an expression
// node of g; malformed text is reported in Result.SyntaxErr.
func (obj *Editor) Edit(g *graph.Graph, id graph.NodeID, text string) (*Result, error) {
	n := g.Get(id)
	if n == nil {
		return nil, fmt.Errorf("no node %s", id.Short())
	}
	old := n.Expr()
	if old == nil {
		return nil, fmt.Errorf("node %s is a %s, not an expression", n.Label(), n.Kind)
	}

	next, err := graph.ParseExprData(text)
	if err != nil {
		obj.logf("edit %s: %v", n.Label(), err)
		return &Result{
			Node: id,
			Data: &graph.ExprData{
				Text:     text,
				AST:      old.AST,
				Bindings: append([]string{}, old.Bindings...),
				Values:   append([]float64{}, old.Values...),
			},
			SyntaxErr: err,
			ed:        obj,
		}, nil
	}

	data, cmds := rebind.Rebind(g, id, next)
	r := &Result{
		Node:     id,
		Data:     data,
		Commands: cmds,
		Rebound:  !slices.Equal(old.Bindings, data.Bindings),
		ed:       obj,
	}
	if r.Rebound {
		obj.logf("edit %s: bindings %q -> %q, %d commands", n.Label(), old.Bindings, data.Bindings, len(cmds))
	}
	return r, nil
}

// Commit stores the new payload and replays the rebind commands on g as one
// transaction. On failure g is unchanged.
func (obj *Result) Commit(g *graph.Graph) error {
	cmds := append([]graph.Command{graph.SetData{Node: obj.Node, Data: obj.Data}}, obj.Commands...)
	if err := obj.ed.apply(g, cmds...); err != nil {
		obj.ed.Metrics.EditCycle(metrics.OutcomeFailed)
		return errwrap.Wrapf(err, "commit edit of %s", obj.Node.Short())
	}
	switch {
	case obj.SyntaxErr != nil:
		obj.ed.Metrics.EditCycle(metrics.OutcomeSyntax)
	case obj.Rebound:
		obj.ed.Metrics.EditCycle(metrics.OutcomeRebound)
	default:
		obj.ed.Metrics.EditCycle(metrics.OutcomeUnchanged)
	}
	return nil
}

// Update runs Edit and commits the result.
func (obj *Editor) Update(g *graph.Graph, id graph.NodeID, text string) (*Result, error) {
	r, err := obj.Edit(g, id, text)
	if err != nil {
		return nil, err
	}
	if err := r.Commit(g); err != nil {
		return nil, err
	}
	return r, nil
}

// Connect wires from to to. The node kinds must pass the legality check, in
// which case the graph is not touched. A wire already on the input is
// replaced in the same transaction, so observers see either the old wire or
// the new one.
func (obj *Editor) Connect(g *graph.Graph, from graph.OutPinID, to graph.InPinID) error {
	src, dst := g.Get(from.Node), g.Get(to.Node)
	if src == nil || dst == nil {
		return fmt.Errorf("connect %s -> %s: no such node", from, to)
	}
	if err := graph.CheckConnection(src.Kind, dst.Kind); err != nil {
		obj.Metrics.IllegalConnection(src.Kind.String(), dst.Kind.String())
		obj.logf("connect %s -> %s rejected: %v", src.Label(), dst.Label(), err)
		return err
	}

	var cmds []graph.Command
	if existing, ok := g.Remote(to); ok {
		if existing == from {
			return nil
		}
		cmds = append(cmds, graph.Disconnect{From: existing, To: to})
	}
	cmds = append(cmds, graph.Connect{From: from, To: to})
	return obj.apply(g, cmds...)
}

// Disconnect removes the wire from -> to.
func (obj *Editor) Disconnect(g *graph.Graph, from graph.OutPinID, to graph.InPinID) error {
	return obj.apply(g, graph.Disconnect{From: from, To: to})
}

// DropInput removes the wire into in, if there is one.
func (obj *Editor) DropInput(g *graph.Graph, in graph.InPinID) error {
	from, ok := g.Remote(in)
	if !ok {
		return nil
	}
	return obj.Disconnect(g, from, in)
}

// RemoveNode deletes a node and every wire touching it.
func (obj *Editor) RemoveNode(g *graph.Graph, id graph.NodeID) error {
	return obj.apply(g, graph.Remove{Node: id})
}

// SetInput stores the value of an unwired expression input, as when the user
// drags its number. A wired input takes its value from the remote instead.
func (obj *Editor) SetInput(g *graph.Graph, in graph.InPinID, value float64) error {
	if from, ok := g.Remote(in); ok {
		return fmt.Errorf("input %s is fed by %s", in, from)
	}
	return obj.apply(g, graph.SetValue{To: in, Value: value})
}

// apply commits cmds as one transaction and counts them.
func (obj *Editor) apply(g *graph.Graph, cmds ...graph.Command) error {
	if err := g.Apply(cmds...); err != nil {
		return err
	}
	for _, cmd := range cmds {
		obj.Metrics.Command(opName(cmd))
	}
	return nil
}

func opName(cmd graph.Command) string {
	switch cmd.(type) {
	case graph.Connect:
		return "Connect"
	case graph.Disconnect:
		return "Disconnect"
	case graph.SetValue:
		return "SetValue"
	case graph.SetData:
		return "SetData"
	case graph.Remove:
		return "Remove"
	}
	return fmt.Sprintf("%T", cmd)
}
