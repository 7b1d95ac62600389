package graph

import (
	"fmt"
	"slices"

	"github.com/chazu/exprgraph/pkg/errwrap"
	"github.com/chazu/exprgraph/pkg/expr"
)

// ValidationSeverity indicates whether a validation finding is a broken
// invariant or merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken invariant
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Validate runs every structural check on g and returns the findings. An
// empty slice means the graph is consistent. Validate never mutates g.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateWires(g)...)
	errs = append(errs, validateExpressions(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateCycles(g)...)
	return errs
}

// ValidateErr folds the error-severity findings of Validate into one error,
// or returns nil. Warnings are ignored.
func ValidateErr(g *Graph) error {
	var reterr error
	for _, e := range Validate(g) {
		if e.Severity == SeverityError {
			reterr = errwrap.Append(reterr, e)
		}
	}
	return reterr
}

// validateWires checks that every wire joins two existing pins of kinds that
// may be connected.
func validateWires(g *Graph) []ValidationError {
	var errs []ValidationError

	for _, w := range g.Wires() {
		from, to := g.nodes[w.From.Node], g.nodes[w.To.Node]
		if from == nil || to == nil {
			errs = append(errs, ValidationError{
				NodeID:   w.To.Node,
				Message:  fmt.Sprintf("wire %s references a missing node", w),
				Severity: SeverityError,
			})
			continue
		}
		if !MayConnect(from.Kind, to.Kind) {
			errs = append(errs, ValidationError{
				NodeID:   to.ID,
				Message:  fmt.Sprintf("wire %s joins %s to %s", w, from.Kind, to.Kind),
				Severity: SeverityError,
			})
		}
		if w.From.Output < 0 || w.From.Output >= from.Outputs() {
			errs = append(errs, ValidationError{
				NodeID:   from.ID,
				Message:  fmt.Sprintf("wire %s leaves missing output %d", w, w.From.Output),
				Severity: SeverityError,
			})
		}
		if w.To.Input < 0 || w.To.Input >= to.Inputs() {
			errs = append(errs, ValidationError{
				NodeID:   to.ID,
				Message:  fmt.Sprintf("wire %s enters missing input %d", w, w.To.Input),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateExpressions checks the expression payload invariant: the binding
// list is the variable list of the tree and has one value per entry.
func validateExpressions(g *Graph) []ValidationError {
	var errs []ValidationError

	for _, n := range g.Nodes() {
		d := n.Expr()
		if d == nil {
			continue
		}
		if d.AST == nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "expression has no parsed tree",
				Severity: SeverityError,
			})
			continue
		}
		if vars := expr.Variables(d.AST); !slices.Equal(vars, d.Bindings) {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("bindings %q do not match variables %q", d.Bindings, vars),
				Severity: SeverityError,
			})
		}
		if len(d.Values) != len(d.Bindings) {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("%d values for %d bindings", len(d.Values), len(d.Bindings)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateNames checks that the name index agrees with the node names.
func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError

	for name, id := range g.names {
		n, ok := g.nodes[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Name != name {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("name %q indexes a node named %q", name, n.Name),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateCycles looks for feedback loops between expressions using DFS with
// 3-color marking. A loop is legal wiring but has no stable value, so it is a
// warning.
func validateCycles(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	// downstream adjacency: node -> nodes its output feeds
	next := make(map[NodeID][]NodeID)
	for _, w := range g.Wires() {
		next[w.From.Node] = append(next[w.From.Node], w.To.Node)
	}

	color := make(map[NodeID]int) // default zero = white
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s feeds itself", id.Short()),
				Severity: SeverityWarning,
			})
			return true
		}

		color[id] = gray
		for _, child := range next[id] {
			if visit(child) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white {
			if visit(id) {
				// One cycle finding is sufficient; stop early.
				break
			}
		}
	}

	return errs
}
