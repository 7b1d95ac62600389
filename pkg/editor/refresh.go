package editor

import (
	"math"

	"github.com/chazu/exprgraph/pkg/graph"
)

// Refresh computes the commands that bring stored values up to date with the
// wires: every wired expression input takes the current output of its
// remote, and every wired image-show takes the URI of its string source.
// Nodes are visited in topological order, so one pass settles a chain of
// expressions. Expressions on a feedback loop are visited last and see the
// values of the previous pass.
func (obj *Editor) Refresh(g *graph.Graph) []graph.Command {
	nodes, acyclic := g.TopologicalOrder()
	if !acyclic {
		obj.logf("refresh: graph has a feedback loop")
	}

	// outputs computed during this pass, by node
	outputs := make(map[graph.NodeID]float64)
	output := func(id graph.NodeID) (float64, bool) {
		if v, ok := outputs[id]; ok {
			return v, true
		}
		n := g.Get(id)
		if n == nil {
			return 0, false
		}
		switch d := n.Data.(type) {
		case *graph.IntegerData:
			return float64(d.Value), true
		case *graph.ExprData:
			return d.Eval(), true
		}
		return 0, false
	}

	var cmds []graph.Command
	for _, n := range nodes {
		switch d := n.Data.(type) {
		case *graph.ExprData:
			values := append([]float64{}, d.Values...)
			for i := range d.Bindings {
				remote, ok := g.Remote(n.In(i))
				if !ok {
					continue
				}
				v, ok := output(remote.Node)
				if !ok || sameValue(v, values[i]) {
					continue
				}
				values[i] = v
				cmds = append(cmds, graph.SetValue{To: n.In(i), Value: v})
			}
			outputs[n.ID] = (&graph.ExprData{AST: d.AST, Bindings: d.Bindings, Values: values}).Eval()

		case *graph.ShowData:
			if uri := showURI(g, n, d); uri != d.URI {
				cmds = append(cmds, graph.SetData{Node: n.ID, Data: &graph.ShowData{URI: uri}})
			}
		}
	}
	return cmds
}

// Propagate applies Refresh to g.
func (obj *Editor) Propagate(g *graph.Graph) error {
	cmds := obj.Refresh(g)
	if len(cmds) == 0 {
		return nil
	}
	return obj.apply(g, cmds...)
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
