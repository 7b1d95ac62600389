package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInputOccupied is returned when wiring an input pin that already has a
// wire. An input has at most one incoming wire.
var ErrInputOccupied = errors.New("input already connected")

// Graph is the persisted node graph. It owns every node and wire. Wires are
// keyed by their input pin, which enforces a fan-in of at most one; an output
// may feed any number of inputs.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
	names map[string]NodeID
	wires map[InPinID]OutPinID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		names: make(map[string]NodeID),
		wires: make(map[InPinID]OutPinID),
	}
}

// AddNode adds n to the graph. Ids and non-empty names must be unique, and the
// payload must match the node kind.
func (g *Graph) AddNode(n *Node) error {
	if n.ID.IsZero() {
		return fmt.Errorf("node has no id")
	}
	if n.Data == nil {
		return fmt.Errorf("node %s has no data", n.Label())
	}
	if k := n.Data.Kind(); k != n.Kind {
		return fmt.Errorf("node %s: %s data on a %s node", n.Label(), k, n.Kind)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("node %s already exists", n.ID.Short())
	}
	if n.Name != "" {
		if _, exists := g.names[n.Name]; exists {
			return fmt.Errorf("node name %q already in use", n.Name)
		}
	}
	g.insert(n, len(g.order))
	return nil
}

// Add builds a node for data with NewNode and adds it.
func (g *Graph) Add(name string, data NodeData) (*Node, error) {
	n := NewNode(name, data)
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// insert places n at position at of the node order.
func (g *Graph) insert(n *Node, at int) {
	g.nodes[n.ID] = n
	g.order = append(g.order, ZeroID)
	copy(g.order[at+1:], g.order[at:])
	g.order[at] = n.ID
	if n.Name != "" {
		g.names[n.Name] = n.ID
	}
}

// RemoveNode deletes a node together with every wire touching its pins.
func (g *Graph) RemoveNode(id NodeID) error {
	_, err := (Remove{Node: id}).apply(g)
	return err
}

// Get returns the node with the given id, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	id, ok := g.names[name]
	if !ok {
		return nil
	}
	return g.nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Remote returns the output pin wired into in, if any.
func (g *Graph) Remote(in InPinID) (OutPinID, bool) {
	out, ok := g.wires[in]
	return out, ok
}

// Remotes returns every input pin fed by out, ordered by node then pin.
func (g *Graph) Remotes(out OutPinID) []InPinID {
	var ins []InPinID
	for in, from := range g.wires {
		if from == out {
			ins = append(ins, in)
		}
	}
	g.sortInputs(ins)
	return ins
}

// InputRemotes returns a snapshot of the wired inputs of a node, keyed by
// input index.
func (g *Graph) InputRemotes(id NodeID) map[int]OutPinID {
	remotes := make(map[int]OutPinID)
	for in, from := range g.wires {
		if in.Node == id {
			remotes[in.Input] = from
		}
	}
	return remotes
}

// Wires returns every wire, ordered by destination node then input index.
func (g *Graph) Wires() []Wire {
	ins := make([]InPinID, 0, len(g.wires))
	for in := range g.wires {
		ins = append(ins, in)
	}
	g.sortInputs(ins)
	wires := make([]Wire, len(ins))
	for i, in := range ins {
		wires[i] = Wire{From: g.wires[in], To: in}
	}
	return wires
}

// WireCount returns the number of wires.
func (g *Graph) WireCount() int {
	return len(g.wires)
}

// sortInputs orders pins by the insertion position of their node, then by
// index. Pins of unknown nodes sort last, by id.
func (g *Graph) sortInputs(ins []InPinID) {
	position := make(map[NodeID]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
	}
	rank := func(id NodeID) int {
		if p, ok := position[id]; ok {
			return p
		}
		return len(g.order)
	}
	sort.Slice(ins, func(i, j int) bool {
		a, b := ins[i], ins[j]
		if ra, rb := rank(a.Node), rank(b.Node); ra != rb {
			return ra < rb
		}
		if a.Node != b.Node {
			return a.Node.String() < b.Node.String()
		}
		return a.Input < b.Input
	})
}

// Clone returns a deep copy of the graph. Expression trees are immutable and
// shared.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, id := range g.order {
		c.insert(g.nodes[id].clone(), len(c.order))
	}
	for in, out := range g.wires {
		c.wires[in] = out
	}
	return c
}

// link adds a wire after checking that both pins exist, that the kinds may be
// wired together and that the input is free.
func (g *Graph) link(w Wire) error {
	from := g.nodes[w.From.Node]
	if from == nil {
		return fmt.Errorf("wire %s: no source node %s", w, w.From.Node.Short())
	}
	to := g.nodes[w.To.Node]
	if to == nil {
		return fmt.Errorf("wire %s: no destination node %s", w, w.To.Node.Short())
	}
	if err := CheckConnection(from.Kind, to.Kind); err != nil {
		return err
	}
	if w.From.Output < 0 || w.From.Output >= from.Outputs() {
		return fmt.Errorf("wire %s: %s has no output %d", w, from.Label(), w.From.Output)
	}
	if w.To.Input < 0 || w.To.Input >= to.Inputs() {
		return fmt.Errorf("wire %s: %s has no input %d", w, to.Label(), w.To.Input)
	}
	if existing, ok := g.wires[w.To]; ok {
		return fmt.Errorf("wire %s: %w (from %s)", w, ErrInputOccupied, existing)
	}
	g.wires[w.To] = w.From
	return nil
}

// unlink removes an existing wire.
func (g *Graph) unlink(w Wire) error {
	if from, ok := g.wires[w.To]; !ok || from != w.From {
		return fmt.Errorf("no wire %s", w)
	}
	delete(g.wires, w.To)
	return nil
}

// TopologicalOrder returns the nodes so that every node comes after the nodes
// wired into it, breaking ties by insertion order. Nodes on a feedback loop
// cannot be ordered; they are appended in insertion order and ok is false.
func (g *Graph) TopologicalOrder() (nodes []*Node, ok bool) {
	indegree := make(map[NodeID]int, len(g.nodes))
	for in, out := range g.wires {
		if _, exists := g.nodes[out.Node]; exists {
			indegree[in.Node]++
		}
	}

	done := make(map[NodeID]bool, len(g.nodes))
	for len(nodes) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || indegree[id] > 0 {
				continue
			}
			done[id] = true
			progressed = true
			nodes = append(nodes, g.nodes[id])
			for in, out := range g.wires {
				if out.Node == id {
					indegree[in.Node]--
				}
			}
		}
		if !progressed {
			break
		}
	}
	if len(nodes) == len(g.order) {
		return nodes, true
	}
	for _, id := range g.order {
		if !done[id] {
			nodes = append(nodes, g.nodes[id])
		}
	}
	return nodes, false
}
