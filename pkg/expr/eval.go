package expr

import "fmt"

// BindingConsistencyViolation is the panic value raised when an expression
// references a variable that is missing from the binding list it is evaluated
// against. Binding lists are derived from the same tree, so this is a broken
// invariant and not a user error.
type BindingConsistencyViolation struct {
	Name     string
	Bindings []string
}

func (v *BindingConsistencyViolation) Error() string {
	return fmt.Sprintf("expr: variable %q not in bindings %q", v.Name, v.Bindings)
}

// Eval computes the value of e. Each variable resolves to the value at the
// same index in values as its name has in bindings. Division is plain
// floating point division, so dividing by zero yields ±Inf or NaN.
//
// Eval panics with a *BindingConsistencyViolation if a variable is absent from
// bindings or has no value.
func Eval(e Expr, bindings []string, values []float64) float64 {
	switch n := e.(type) {
	case *Variable:
		for i, name := range bindings {
			if name == n.Name && i < len(values) {
				return values[i]
			}
		}
		panic(&BindingConsistencyViolation{Name: n.Name, Bindings: bindings})

	case *Literal:
		return n.Value

	case *Unary:
		v := Eval(n.Operand, bindings, values)
		if n.Op == OpNegate {
			return -v
		}
		return v

	case *Binary:
		l := Eval(n.Left, bindings, values)
		r := Eval(n.Right, bindings, values)
		switch n.Op {
		case OpAdd:
			return l + r
		case OpSubtract:
			return l - r
		case OpMultiply:
			return l * r
		case OpDivide:
			return l / r
		}
		panic(fmt.Sprintf("expr: unknown binary operator %v", n.Op))
	}
	panic(fmt.Sprintf("expr: unknown node %T", e))
}

// Variables returns the distinct free variable names of e in first-occurrence
// order of a depth-first, left-to-right walk. This order defines the input
// slots of an expression node.
func Variables(e Expr) []string {
	names := []string{}
	seen := make(map[string]bool)
	Walk(e, func(n Expr) bool {
		if v, ok := n.(*Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
		return true
	})
	return names
}

// Binding pairs an expression with its derived binding list.
type Binding struct {
	Expr  Expr
	Names []string
}

// Bind derives the binding list of e.
func Bind(e Expr) *Binding {
	return &Binding{Expr: e, Names: Variables(e)}
}

// Eval evaluates the bound expression with one value per name.
func (b *Binding) Eval(values []float64) float64 {
	return Eval(b.Expr, b.Names, values)
}
