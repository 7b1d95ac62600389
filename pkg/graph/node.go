package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeKind enumerates the kinds of nodes in the graph.
type NodeKind int

const (
	NodeSink           NodeKind = iota // displays its single input
	NodeIntegerSource                  // editable integer, one output
	NodeStringSource                   // editable string, one output
	NodeImageShow                      // shows the image at a URI
	NodeExpression                     // arithmetic expression, one input per variable
)

// Kinds lists every node kind in declaration order.
var Kinds = []NodeKind{NodeSink, NodeIntegerSource, NodeStringSource, NodeImageShow, NodeExpression}

func (k NodeKind) String() string {
	switch k {
	case NodeSink:
		return "sink"
	case NodeIntegerSource:
		return "integer-source"
	case NodeStringSource:
		return "string-source"
	case NodeImageShow:
		return "image-show"
	case NodeExpression:
		return "expression"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// NodeID identifies a node. It is a UUID so that ids survive copies of the
// graph and never collide across scripts.
type NodeID uuid.UUID

// ZeroID is the unset node id.
var ZeroID NodeID

// idSpace is the namespace for path derived node ids.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/exprgraph/node"))

// NewNodeID derives a deterministic id from a path such as "expression/sum".
// The same path always yields the same id.
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(idSpace, []byte(path)))
}

// RandomNodeID returns a fresh random id for anonymous nodes.
func RandomNodeID() NodeID {
	return NodeID(uuid.New())
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first eight hex digits, for messages.
func (id NodeID) Short() string {
	return id.String()[:8]
}

// Node is a single vertex of the graph.
type Node struct {
	ID   NodeID   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name,omitempty"`
	Data NodeData `json:"data"`
}

// NewNode builds a node for data. Named nodes get an id derived from their
// kind and name; unnamed nodes get a random id.
func NewNode(name string, data NodeData) *Node {
	kind := data.Kind()
	id := RandomNodeID()
	if name != "" {
		id = NewNodeID(kind.String() + "/" + name)
	}
	return &Node{ID: id, Kind: kind, Name: name, Data: data}
}

// Label returns the node name, or its kind and short id when unnamed.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Kind.String() + ":" + n.ID.Short()
}

// Inputs returns the number of input pins of n. For an expression node this
// is the length of its binding list.
func (n *Node) Inputs() int {
	switch n.Kind {
	case NodeSink, NodeImageShow:
		return 1
	case NodeExpression:
		if d, ok := n.Data.(*ExprData); ok {
			return len(d.Bindings)
		}
	}
	return 0
}

// Outputs returns the number of output pins of n.
func (n *Node) Outputs() int {
	switch n.Kind {
	case NodeIntegerSource, NodeStringSource, NodeImageShow, NodeExpression:
		return 1
	}
	return 0
}

// Expr returns the expression payload of n, or nil for other kinds.
func (n *Node) Expr() *ExprData {
	d, _ := n.Data.(*ExprData)
	return d
}

// clone copies the node and its payload.
func (n *Node) clone() *Node {
	c := *n
	if n.Data != nil {
		c.Data = n.Data.clone()
	}
	return &c
}
