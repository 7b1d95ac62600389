package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"

	"github.com/chazu/exprgraph/pkg/editor"
	"github.com/chazu/exprgraph/pkg/graph"
)

// chainScript builds a source feeding two expressions and a sink.
const chainScript = `
(def count0 (integer-source 5 :name "n"))
(def square0 (expression "x * x" :name "sq"))
(connect count0 square0)
(def shift0 (expression "s - k" :name "off"))
(connect square0 shift0 :slot "s")
(set-value shift0 "k" 0.5)
(connect shift0 (sink :name "out"))
`

// mustEvaluate runs source and fails the test on any error.
func mustEvaluate(t *testing.T, eng *Engine, source string) *graph.Graph {
	t.Helper()
	g, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
	return g
}

// evalFailure runs source, expects a non-fatal eval error and returns it.
func evalFailure(t *testing.T, source string) EvalError {
	t.Helper()
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil graph, got %d nodes", g.NodeCount())
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	return evalErrs[0]
}

// ---------------------------------------------------------------------------
// Graph building
// ---------------------------------------------------------------------------

func TestEvaluateBlankScriptsBuildEmptyGraph(t *testing.T) {
	for _, source := range []string{"", "   \n\t  \n  ", ";; nothing here\n"} {
		g := mustEvaluate(t, NewEngine(), source)
		if g.NodeCount() != 0 || g.WireCount() != 0 {
			t.Errorf("%q built %d nodes, %d wires", source, g.NodeCount(), g.WireCount())
		}
	}
}

func TestEvaluatePlainLispBuildsNothing(t *testing.T) {
	g := mustEvaluate(t, NewEngine(), "(def w 3) (+ w 2)")
	if g.NodeCount() != 0 {
		t.Errorf("arithmetic built %d nodes", g.NodeCount())
	}
}

func TestEvaluateDefBoundNodes(t *testing.T) {
	g := mustEvaluate(t, NewEngine(), chainScript)

	var labels []string
	for _, n := range g.Nodes() {
		labels = append(labels, n.Label())
	}
	if diff := pretty.Compare(labels, []string{"n", "sq", "off", "out"}); diff != "" {
		t.Errorf("nodes mismatch:\n%s", diff)
	}

	sq, off := g.MustLookup("sq"), g.MustLookup("off")
	if from, ok := g.Remote(off.In(0)); !ok || from != sq.Out(0) {
		t.Errorf("off.s should be fed by sq, wires: %v", g.Wires())
	}
	if got := off.Expr().Eval(); got != 24.5 {
		t.Errorf("off = %v, want 24.5 after the final refresh", got)
	}
}

// The same script yields the same displays on every run, even though node
// ids are random.
func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	ed := &editor.Editor{}

	first := ed.DisplayAll(mustEvaluate(t, eng, chainScript))
	if len(first) == 0 {
		t.Fatal("no displays")
	}
	for i := 0; i < 4; i++ {
		got := ed.DisplayAll(mustEvaluate(t, eng, chainScript))
		if diff := pretty.Compare(got, first); diff != "" {
			t.Errorf("iteration %d: displays differ:\n%s", i, diff)
		}
	}
}

func TestEvaluateUsesEngineEditor(t *testing.T) {
	var logged []string
	eng := NewEngine()
	eng.Editor = &editor.Editor{Logf: func(format string, v ...interface{}) {
		logged = append(logged, format)
	}}

	_, evalErrs, err := eng.Evaluate(`(connect (sink) (sink))`)
	if err != nil {
		t.Fatalf("fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("sink to sink should be refused")
	}
	if len(logged) == 0 {
		t.Error("the refused connection was not logged through the engine editor")
	}
}

// ---------------------------------------------------------------------------
// Script errors
// ---------------------------------------------------------------------------

func TestEvaluateUnclosedForm(t *testing.T) {
	e := evalFailure(t, `(sink :name "a") (connect (node "a")`)
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateMissingNode(t *testing.T) {
	e := evalFailure(t, `(edit (node "missing") "x")`)
	if !strings.Contains(e.Message, `no node named "missing"`) {
		t.Errorf("message %q does not name the missing node", e.Message)
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	evalFailure(t, `(connect undefined-source (sink))`)
}

func TestEvaluateErrorHasLineInfo(t *testing.T) {
	// the failing call is on line 3
	e := evalFailure(t, "(sink :name \"a\")\n(sink :name \"b\")\n(connect (node \"a\") (node \"b\"))")
	if !strings.Contains(e.Message, "illegal connection") {
		t.Errorf("message = %q", e.Message)
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 3, Message: "connect: illegal connection"}
	if got, want := e.Error(), "line 3: connect: illegal connection"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	e.Line = 0
	if got := e.Error(); got != "connect: illegal connection" {
		t.Errorf("Error() without a line = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Timeout and generations
// ---------------------------------------------------------------------------

func TestWaitWithTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out after 50ms") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	// Test that a stale generation is detected.
	var mu sync.Mutex
	gen := uint64(2) // Current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{graph: nil, errors: nil, err: nil}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, EvalTimeout)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "builtin failure with line",
			msg:      "Error on line 3: connect: destination: no node named \"b\"\n",
			wantLine: 3,
			wantMsg:  `no node named "b"`,
		},
		{
			name:     "no line info",
			msg:      "set-value: slot: e has no variable \"q\"",
			wantLine: 0,
			wantMsg:  `has no variable "q"`,
		},
		{
			name:     "short line format",
			msg:      "line 12: edit: syntax error at column 4: unexpected end of input",
			wantLine: 12,
			wantMsg:  "syntax error at column 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
