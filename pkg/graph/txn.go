package graph

import (
	"fmt"
	"sync"

	"github.com/chazu/exprgraph/pkg/errwrap"
)

// Command is one discrete mutation of the graph. Commands address pins by
// stable (node, index) identity, so a list of them can be computed against a
// snapshot and replayed later.
type Command interface {
	fmt.Stringer

	// apply performs the mutation and returns the function that reverts it.
	apply(g *Graph) (undo func(), err error)
}

// Connect adds a wire. The input must be free.
type Connect struct {
	From OutPinID
	To   InPinID
}

func (c Connect) String() string {
	return fmt.Sprintf("Connect(%s -> %s)", c.From, c.To)
}

func (c Connect) apply(g *Graph) (func(), error) {
	w := Wire{From: c.From, To: c.To}
	if err := g.link(w); err != nil {
		return nil, err
	}
	return func() { delete(g.wires, w.To) }, nil
}

// Disconnect removes an existing wire.
type Disconnect struct {
	From OutPinID
	To   InPinID
}

func (c Disconnect) String() string {
	return fmt.Sprintf("Disconnect(%s -> %s)", c.From, c.To)
}

func (c Disconnect) apply(g *Graph) (func(), error) {
	w := Wire{From: c.From, To: c.To}
	if err := g.unlink(w); err != nil {
		return nil, err
	}
	return func() { g.wires[w.To] = w.From }, nil
}

// SetValue stores the value of one expression input.
type SetValue struct {
	To    InPinID
	Value float64
}

func (c SetValue) String() string {
	return fmt.Sprintf("SetValue(%s = %g)", c.To, c.Value)
}

func (c SetValue) apply(g *Graph) (func(), error) {
	n := g.nodes[c.To.Node]
	if n == nil {
		return nil, fmt.Errorf("no node %s", c.To.Node.Short())
	}
	d := n.Expr()
	if d == nil {
		return nil, fmt.Errorf("node %s is a %s, not an expression", n.Label(), n.Kind)
	}
	if c.To.Input < 0 || c.To.Input >= len(d.Values) {
		return nil, fmt.Errorf("node %s has no input %d", n.Label(), c.To.Input)
	}
	old := d.Values[c.To.Input]
	d.Values[c.To.Input] = c.Value
	return func() { d.Values[c.To.Input] = old }, nil
}

// SetData replaces the payload of a node. The payload kind must match.
type SetData struct {
	Node NodeID
	Data NodeData
}

func (c SetData) String() string {
	return fmt.Sprintf("SetData(%s, %s)", c.Node.Short(), describeData(c.Data))
}

func (c SetData) apply(g *Graph) (func(), error) {
	n := g.nodes[c.Node]
	if n == nil {
		return nil, fmt.Errorf("no node %s", c.Node.Short())
	}
	if c.Data == nil || c.Data.Kind() != n.Kind {
		return nil, fmt.Errorf("node %s: cannot store %s on a %s node", n.Label(), describeData(c.Data), n.Kind)
	}
	old := n.Data
	n.Data = c.Data
	return func() { n.Data = old }, nil
}

// Remove deletes a node and every wire touching it.
type Remove struct {
	Node NodeID
}

func (c Remove) String() string {
	return fmt.Sprintf("Remove(%s)", c.Node.Short())
}

func (c Remove) apply(g *Graph) (func(), error) {
	n := g.nodes[c.Node]
	if n == nil {
		return nil, fmt.Errorf("no node %s", c.Node.Short())
	}
	at := -1
	for i, id := range g.order {
		if id == c.Node {
			at = i
			break
		}
	}

	removed := make(map[InPinID]OutPinID)
	for in, out := range g.wires {
		if in.Node == c.Node || out.Node == c.Node {
			removed[in] = out
			delete(g.wires, in)
		}
	}
	delete(g.nodes, c.Node)
	if n.Name != "" {
		delete(g.names, n.Name)
	}
	g.order = append(g.order[:at], g.order[at+1:]...)

	return func() {
		g.insert(n, at)
		for in, out := range removed {
			g.wires[in] = out
		}
	}, nil
}

func describeData(d NodeData) string {
	if d == nil {
		return "no data"
	}
	if e, ok := d.(*ExprData); ok {
		return fmt.Sprintf("expression %q", e.Text)
	}
	return d.Kind().String() + " data"
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Txn queues commands and applies them to a graph as one unit. If any command
// fails, the ones already applied are reverted in reverse order and the graph
// is left exactly as it was. The chainable methods return the Txn so that a
// transaction can be built in one expression.
type Txn struct {
	// Graph is the graph the transaction mutates.
	Graph *Graph

	// ops is the pending command queue.
	ops []Command

	// mutex guards ops
	mutex sync.Mutex
}

// NewTxn returns an empty transaction on g.
func NewTxn(g *Graph) *Txn {
	return &Txn{Graph: g}
}

// Add queues commands.
func (obj *Txn) Add(cmds ...Command) *Txn {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	obj.ops = append(obj.ops, cmds...)
	return obj // return self so it can be called in a chain
}

// Connect queues a Connect.
func (obj *Txn) Connect(from OutPinID, to InPinID) *Txn {
	return obj.Add(Connect{From: from, To: to})
}

// Disconnect queues a Disconnect.
func (obj *Txn) Disconnect(from OutPinID, to InPinID) *Txn {
	return obj.Add(Disconnect{From: from, To: to})
}

// Pending returns a copy of the queued commands.
func (obj *Txn) Pending() []Command {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	return append([]Command(nil), obj.ops...)
}

// Clear erases any pending commands that weren't committed yet.
func (obj *Txn) Clear() {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	obj.ops = nil
}

// Commit applies the pending commands in order and empties the queue. After
// the last command the wires of every touched node must still fit its pins;
// an expression payload swapped by SetData may not strand a wire.
func (obj *Txn) Commit() error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	ops := obj.ops
	obj.ops = nil
	if len(ops) == 0 { // nothing to do
		return nil
	}

	var undo []func()
	rollback := func(reterr error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return reterr
	}

	touched := make(map[NodeID]bool)
	for i, op := range ops {
		fn, err := op.apply(obj.Graph)
		if err != nil {
			return rollback(errwrap.Wrapf(err, "txn op %d of %d (%s) failed", i+1, len(ops), op))
		}
		undo = append(undo, fn)
		if sd, ok := op.(SetData); ok {
			touched[sd.Node] = true
		}
	}

	var reterr error
	for in := range obj.Graph.wires {
		if !touched[in.Node] {
			continue
		}
		n := obj.Graph.nodes[in.Node]
		if n != nil && in.Input >= n.Inputs() {
			reterr = errwrap.Append(reterr, fmt.Errorf("wire into %s left on missing input %d", n.Label(), in.Input))
		}
	}
	if reterr != nil {
		return rollback(errwrap.Wrapf(reterr, "txn left stranded wires"))
	}
	return nil
}

// Apply commits cmds to g as a single transaction.
func (g *Graph) Apply(cmds ...Command) error {
	return NewTxn(g).Add(cmds...).Commit()
}
