package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/iancoleman/strcase"

	"github.com/chazu/exprgraph/pkg/editor"
	"github.com/chazu/exprgraph/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scenario source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: integer-source -> integer_source
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(node %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

func nodeRef(n *graph.Node) *sexpNodeRef {
	return &sexpNodeRef{id: n.ID, name: n.Name}
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value; treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// name returns the :name keyword, or "".
func (a kwArgs) name() (string, error) {
	v, ok := a.kw["name"]
	if !ok {
		return "", nil
	}
	return toString(v)
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt64 extracts an integer from a SexpInt.
func toInt64(s zygo.Sexp) (int64, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNode resolves a node reference, or a node name, to a node of g.
func toNode(g *graph.Graph, s zygo.Sexp) (*graph.Node, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		if n := g.Get(v.id); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("node %s was removed", v.SexpString(nil))
	case *zygo.SexpStr:
		if n := g.Lookup(v.S); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("no node named %q", v.S)
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toSlot resolves an input index, or the variable name of an expression
// input, to an input pin of n.
func toSlot(n *graph.Node, s zygo.Sexp) (graph.InPinID, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return n.In(int(v.Val)), nil
	case *zygo.SexpStr:
		d := n.Expr()
		if d == nil {
			return graph.InPinID{}, fmt.Errorf("%s has no variable inputs", n.Label())
		}
		i := d.Slot(v.S)
		if i < 0 {
			return graph.InPinID{}, fmt.Errorf("%s has no variable %q", n.Label(), v.S)
		}
		return n.In(i), nil
	}
	return graph.InPinID{}, fmt.Errorf("expected slot index or variable name, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinName is the zygomys name of a node constructor: the snake_case
// form of the kind. Scripts write the kebab-case kind, which
// preprocessSource rewrites to match.
func builtinName(kind graph.NodeKind) string {
	return strcase.ToSnake(kind.String())
}

// constructor builds the payload of a node from the positional arguments of
// its builtin.
type constructor func(args []zygo.Sexp) (graph.NodeData, error)

var constructors = map[graph.NodeKind]constructor{
	// (sink :name "out")
	graph.NodeSink: func(args []zygo.Sexp) (graph.NodeData, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("takes no positional arguments")
		}
		return &graph.SinkData{}, nil
	},

	// (integer-source 42 :name "a")
	graph.NodeIntegerSource: func(args []zygo.Sexp) (graph.NodeData, error) {
		d := &graph.IntegerData{}
		if len(args) > 0 {
			v, err := toInt64(args[0])
			if err != nil {
				return nil, err
			}
			d.Value = v
		}
		return d, nil
	},

	// (string-source "hello" :name "s")
	graph.NodeStringSource: func(args []zygo.Sexp) (graph.NodeData, error) {
		d := &graph.StringData{}
		if len(args) > 0 {
			v, err := toString(args[0])
			if err != nil {
				return nil, err
			}
			d.Value = v
		}
		return d, nil
	},

	// (image-show "https://example.com/cat.png" :name "img")
	graph.NodeImageShow: func(args []zygo.Sexp) (graph.NodeData, error) {
		d := &graph.ShowData{}
		if len(args) > 0 {
			v, err := toString(args[0])
			if err != nil {
				return nil, err
			}
			d.URI = v
		}
		return d, nil
	},

	// (expression "x * 2 + y" :name "e")
	graph.NodeExpression: func(args []zygo.Sexp) (graph.NodeData, error) {
		if len(args) == 0 {
			return graph.NewExprData(), nil
		}
		text, err := toString(args[0])
		if err != nil {
			return nil, err
		}
		return graph.ParseExprData(text)
	},
}

// registerBuiltins installs the scenario DSL into a zygomys environment.
// The builtins mutate g through ed during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, g *graph.Graph, ed *editor.Editor) {

	// -----------------------------------------------------------------------
	// One constructor per node kind: (sink), (integer-source 42), ...
	// -----------------------------------------------------------------------
	for _, kind := range graph.Kinds {
		kind, build := kind, constructors[kind]
		env.AddFunction(builtinName(kind), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			nodeName, err := pa.name()
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", kind, err)
			}
			data, err := build(pa.positional)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
			}
			n, err := g.Add(nodeName, data)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
			}
			return nodeRef(n), nil
		})
	}

	// -----------------------------------------------------------------------
	// (node "name")
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a name argument")
		}
		nodeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
		}
		n := g.Lookup(nodeName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("node: no node named %q", nodeName)
		}
		return nodeRef(n), nil
	})

	// -----------------------------------------------------------------------
	// (connect src dst :slot 0) or (connect src dst :slot "x")
	// -----------------------------------------------------------------------
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("connect requires a source and a destination")
		}
		src, err := toNode(g, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: source: %w", err)
		}
		dst, err := toNode(g, pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: destination: %w", err)
		}
		to := dst.In(0)
		if v, ok := pa.kw["slot"]; ok {
			if to, err = toSlot(dst, v); err != nil {
				return zygo.SexpNull, fmt.Errorf("connect: slot: %w", err)
			}
		}
		if err := ed.Connect(g, src.Out(0), to); err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		return nodeRef(dst), nil
	})

	// -----------------------------------------------------------------------
	// (disconnect dst :slot 0)
	// -----------------------------------------------------------------------
	env.AddFunction("disconnect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("disconnect requires a destination")
		}
		dst, err := toNode(g, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("disconnect: %w", err)
		}
		in := dst.In(0)
		if v, ok := pa.kw["slot"]; ok {
			if in, err = toSlot(dst, v); err != nil {
				return zygo.SexpNull, fmt.Errorf("disconnect: slot: %w", err)
			}
		}
		if err := ed.DropInput(g, in); err != nil {
			return zygo.SexpNull, fmt.Errorf("disconnect: %w", err)
		}
		return nodeRef(dst), nil
	})

	// -----------------------------------------------------------------------
	// (edit e "x + y"); a syntax error keeps the previous expression
	// -----------------------------------------------------------------------
	env.AddFunction("edit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("edit requires a node and the new text")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edit: %w", err)
		}
		text, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edit: text: %w", err)
		}
		r, err := ed.Update(g, n.ID, text)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edit: %w", err)
		}
		if r.SyntaxErr != nil {
			return &zygo.SexpStr{S: r.SyntaxErr.Error()}, nil
		}
		return nodeRef(n), nil
	})

	// -----------------------------------------------------------------------
	// (set-value e "x" 3.5) or (set-value e 0 3.5)
	// -----------------------------------------------------------------------
	env.AddFunction("set_value", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("set-value requires a node, a slot and a value")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: %w", err)
		}
		in, err := toSlot(n, args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: slot: %w", err)
		}
		v, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: value: %w", err)
		}
		if err := ed.SetInput(g, in, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-value: %w", err)
		}
		return nodeRef(n), nil
	})

	// -----------------------------------------------------------------------
	// (update src 7): new value for an integer, string or image-show node
	// -----------------------------------------------------------------------
	env.AddFunction("update", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("update requires a node and a value")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("update: %w", err)
		}
		var data graph.NodeData
		switch n.Kind {
		case graph.NodeIntegerSource:
			v, err := toInt64(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("update: %w", err)
			}
			data = &graph.IntegerData{Value: v}
		case graph.NodeStringSource, graph.NodeImageShow:
			v, err := toString(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("update: %w", err)
			}
			data = &graph.StringData{Value: v}
			if n.Kind == graph.NodeImageShow {
				data = &graph.ShowData{URI: v}
			}
		default:
			return zygo.SexpNull, fmt.Errorf("update: %s has no value to set", n.Label())
		}
		if err := g.Apply(graph.SetData{Node: n.ID, Data: data}); err != nil {
			return zygo.SexpNull, fmt.Errorf("update: %w", err)
		}
		if err := ed.Propagate(g); err != nil {
			return zygo.SexpNull, fmt.Errorf("update: %w", err)
		}
		return nodeRef(n), nil
	})

	// -----------------------------------------------------------------------
	// (remove e)
	// -----------------------------------------------------------------------
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove requires a node")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		if err := ed.RemoveNode(g, n.ID); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (value e): the current output of an expression or integer source
	// -----------------------------------------------------------------------
	env.AddFunction("value", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("value requires a node")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("value: %w", err)
		}
		if err := ed.Propagate(g); err != nil {
			return zygo.SexpNull, fmt.Errorf("value: %w", err)
		}
		switch d := n.Data.(type) {
		case *graph.IntegerData:
			return &zygo.SexpInt{Val: d.Value}, nil
		case *graph.ExprData:
			return &zygo.SexpFloat{Val: d.Eval()}, nil
		case *graph.StringData:
			return &zygo.SexpStr{S: d.Value}, nil
		}
		return zygo.SexpNull, fmt.Errorf("value: %s has no value", n.Label())
	})
}
