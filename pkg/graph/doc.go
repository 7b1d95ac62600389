// Package graph defines the node graph edited by the user: nodes of a few
// fixed kinds, the wires between their pins, the rules deciding which kinds
// may be wired together, and the transactions used to mutate the graph.
//
// The graph exclusively owns all node and wire data. Callers compute a list
// of commands against a snapshot and replay it with a Txn, which applies
// every command or none of them.
package graph
