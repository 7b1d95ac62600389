// Package rebind reconciles the wires of an expression node with its binding
// list after the expression text changes.
//
// Input slots of an expression node are numbered by the first-occurrence
// order of its variables. When an edit reorders, adds or drops variables,
// a wire on an old slot follows its variable by name: it is moved to the
// variable's new slot, or dropped when the variable is gone.
package rebind

import (
	"slices"

	"github.com/samber/lo"

	"github.com/chazu/exprgraph/pkg/graph"
)

// Plan returns the commands that carry the wires of node from oldBindings to
// newBindings. remotes maps each wired old slot to the output feeding it, as
// returned by graph.InputRemotes.
//
// For every wired old slot i with variable name n:
//   - n is not in newBindings: the wire is disconnected.
//   - n is at new index j != i: the wire is disconnected from i and
//     connected to j.
//   - n is still at index i: nothing is emitted.
//
// All disconnects come before all connects. A moved wire may target a slot
// that another moved wire is leaving, so replaying the list in order never
// puts two wires on one input. Variables new to the list start unwired.
// Plan never fails and returns nil when nothing needs to change.
func Plan(node graph.NodeID, oldBindings []string, remotes map[int]graph.OutPinID, newBindings []string) []graph.Command {
	if slices.Equal(oldBindings, newBindings) {
		return nil
	}

	var disconnects, connects []graph.Command
	for i, name := range oldBindings {
		remote, wired := remotes[i]
		if !wired {
			continue
		}
		j := lo.IndexOf(newBindings, name)
		if j == i {
			continue
		}
		from := graph.InPinID{Node: node, Input: i}
		disconnects = append(disconnects, graph.Disconnect{From: remote, To: from})
		if j >= 0 {
			to := graph.InPinID{Node: node, Input: j}
			connects = append(connects, graph.Connect{From: remote, To: to})
		}
	}
	return append(disconnects, connects...)
}

// Values rebuilds the stored input values for newBindings. A variable keeps
// the value it had under oldBindings; a new variable starts at zero.
func Values(oldBindings []string, oldValues []float64, newBindings []string) []float64 {
	byName := make(map[string]float64, len(oldBindings))
	for i, name := range oldBindings {
		if i < len(oldValues) {
			byName[name] = oldValues[i]
		}
	}
	return lo.Map(newBindings, func(name string, _ int) float64 {
		return byName[name] // zero when absent
	})
}

// Rebind applies the new variable list to a copy of an expression payload:
// it returns the payload for the new tree, with carried values, and the
// commands to replay against g. The node must be an expression in g.
func Rebind(g *graph.Graph, node graph.NodeID, next *graph.ExprData) (*graph.ExprData, []graph.Command) {
	n := g.Get(node)
	old := n.Expr()
	data := &graph.ExprData{
		Text:     next.Text,
		AST:      next.AST,
		Bindings: next.Bindings,
		Values:   Values(old.Bindings, old.Values, next.Bindings),
	}
	return data, Plan(node, old.Bindings, g.InputRemotes(node), next.Bindings)
}
