package graph

import "fmt"

// OutPinID identifies an output pin.
type OutPinID struct {
	Node   NodeID `json:"node"`
	Output int    `json:"output"`
}

// InPinID identifies an input pin. For an expression node the index is only
// meaningful relative to the node's current binding list.
type InPinID struct {
	Node  NodeID `json:"node"`
	Input int    `json:"input"`
}

func (p OutPinID) String() string {
	return fmt.Sprintf("%s.out%d", p.Node.Short(), p.Output)
}

func (p InPinID) String() string {
	return fmt.Sprintf("%s.in%d", p.Node.Short(), p.Input)
}

// Out returns output pin i of n.
func (n *Node) Out(i int) OutPinID {
	return OutPinID{Node: n.ID, Output: i}
}

// In returns input pin i of n.
func (n *Node) In(i int) InPinID {
	return InPinID{Node: n.ID, Input: i}
}

// Wire connects an output pin to an input pin.
type Wire struct {
	From OutPinID `json:"from"`
	To   InPinID  `json:"to"`
}

func (w Wire) String() string {
	return w.From.String() + " -> " + w.To.String()
}
