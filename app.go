package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/chazu/exprgraph/pkg/config"
	"github.com/chazu/exprgraph/pkg/editor"
	"github.com/chazu/exprgraph/pkg/engine"
	"github.com/chazu/exprgraph/pkg/errwrap"
	"github.com/chazu/exprgraph/pkg/graph"
	"github.com/chazu/exprgraph/pkg/metrics"
)

// App holds one editing session: the graph built by the last successful
// script and the editor that mutates it. Every method is safe for concurrent
// use.
type App struct {
	engine *engine.Engine
	editor *editor.Editor

	mu    sync.Mutex
	graph *graph.Graph
}

// NodeView is the JSON-serializable summary of one node.
type NodeView struct {
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"` // expression source
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of running a script.
type EvalResult struct {
	Nodes    []NodeView          `json:"nodes"`
	Pins     []editor.PinDisplay `json:"pins"`
	Errors   []EvalErrorData     `json:"errors"`
	Warnings []EvalErrorData     `json:"warnings"`
}

// EditResult is the outcome of editing one expression node.
type EditResult struct {
	SyntaxError string              `json:"syntaxError,omitempty"`
	Rebound     bool                `json:"rebound"`
	Commands    []string            `json:"commands"`
	Pins        []editor.PinDisplay `json:"pins"`
}

// NewApp creates an App from a configuration. m may be nil.
func NewApp(cfg *config.Config, m *metrics.Metrics) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	ed := &editor.Editor{
		Logf:    log.Printf,
		Metrics: m,
	}
	if cfg.Precision != nil {
		ed.Precision = *cfg.Precision
	}
	eng := engine.NewEngine()
	eng.Editor = ed
	eng.Timeout = cfg.Timeout()
	eng.Logf = log.Printf

	return &App{
		engine: eng,
		editor: ed,
		graph:  graph.New(),
	}
}

// Graph returns the current graph. Callers must not mutate it.
func (a *App) Graph() *graph.Graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.graph
}

// Evaluate runs a scenario script. On success the resulting graph replaces
// the session graph; on failure the previous graph is kept.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Nodes:    []NodeView{},
		Pins:     []editor.PinDisplay{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a graph.
	g, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the result format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Check the graph; feedback loops are only warnings.
	for _, v := range graph.Validate(g) {
		item := EvalErrorData{Message: v.Error()}
		if v.Severity == graph.SeverityWarning {
			result.Warnings = append(result.Warnings, item)
			continue
		}
		result.Errors = append(result.Errors, item)
	}
	if len(result.Errors) > 0 {
		return result
	}

	a.mu.Lock()
	a.graph = g
	a.mu.Unlock()

	result.Nodes = nodeViews(g)
	result.Pins = a.editor.DisplayAll(g)
	return result
}

// Edit replaces the text of the named expression node and commits the
// rebinding. A syntax error is reported in the result, not as an error. An
// error means the edit was not applied; once it is committed, a failure to
// refresh downstream values is only logged.
func (a *App) Edit(name, text string) (EditResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.graph.Lookup(name)
	if n == nil {
		return EditResult{}, fmt.Errorf("no node named %q", name)
	}
	r, err := a.editor.Update(a.graph, n.ID, text)
	if err != nil {
		return EditResult{}, err
	}
	if err := a.editor.Propagate(a.graph); err != nil {
		log.Printf("Edit %s: refresh failed: %v", name, err)
	}

	result := EditResult{
		SyntaxError: errwrap.String(r.SyntaxErr),
		Rebound:     r.Rebound,
		Commands:    []string{},
		Pins:        a.editor.DisplayAll(a.graph),
	}
	for _, cmd := range r.Commands {
		result.Commands = append(result.Commands, cmd.String())
	}
	return result, nil
}

// Connect wires output 0 of the node named from into input slot of the node
// named to, replacing whatever fed that input. As with Edit, an error means
// nothing was wired.
func (a *App) Connect(from, to string, slot int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	src, dst := a.graph.Lookup(from), a.graph.Lookup(to)
	if src == nil || dst == nil {
		return fmt.Errorf("connect %q -> %q: no such node", from, to)
	}
	if err := a.editor.Connect(a.graph, src.Out(0), dst.In(slot)); err != nil {
		return err
	}
	if err := a.editor.Propagate(a.graph); err != nil {
		log.Printf("Connect %s -> %s: refresh failed: %v", from, to, err)
	}
	return nil
}

// Display returns every pin display of the session graph.
func (a *App) Display() []editor.PinDisplay {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.editor.DisplayAll(a.graph)
}

func nodeViews(g *graph.Graph) []NodeView {
	views := make([]NodeView, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		v := NodeView{
			Label:   n.Label(),
			Kind:    n.Kind.String(),
			Inputs:  n.Inputs(),
			Outputs: n.Outputs(),
		}
		if d := n.Expr(); d != nil {
			v.Text = d.Text
		}
		views = append(views, v)
	}
	return views
}
