package main

import (
	"os"
	"testing"

	"github.com/chazu/exprgraph/pkg/config"
	"github.com/chazu/exprgraph/pkg/editor"
	"github.com/chazu/exprgraph/pkg/expr"
)

// pinText returns the display text of one pin in rows, failing the test when
// the pin is missing.
func pinText(t *testing.T, rows []editor.PinDisplay, node, pin string) string {
	t.Helper()
	for _, r := range rows {
		if r.Node == node && r.Pin == pin {
			return r.Display.Text
		}
	}
	t.Fatalf("no pin %s.%s in %v", node, pin, rows)
	return ""
}

// evalFile runs an example script and fails on any error.
func evalFile(t *testing.T, app *App, path string) EvalResult {
	t.Helper()
	source, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	return result
}

// TestE2EChainExample exercises the full pipeline: script -> engine -> graph
// -> displays, the same path the run subcommand takes.
func TestE2EChainExample(t *testing.T) {
	result := evalFile(t, NewApp(nil, nil), "examples/chain.exprg")

	if len(result.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d: %v", len(result.Nodes), result.Nodes)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	for _, tt := range []struct{ node, pin, want string }{
		{"width", "out0", "6"},
		{"area", "in0", "2.50"}, // h
		{"area", "in1", "6.00"}, // w, moved by the edit
		{"area", "in2", "1.00"}, // pad
		{"area", "out0", "16.00"},
		{"half", "out0", "8.00"},
		{"out", "in0", "8"},
	} {
		if got := pinText(t, result.Pins, tt.node, tt.pin); got != tt.want {
			t.Errorf("%s.%s = %q, want %q", tt.node, tt.pin, got, tt.want)
		}
	}
}

func TestE2EImagesExample(t *testing.T) {
	result := evalFile(t, NewApp(nil, nil), "examples/images.exprg")

	want := "https://example.com/dog.png"
	if got := pinText(t, result.Pins, "img", "in0"); got != want {
		t.Errorf("img input = %q, want %q", got, want)
	}
	if got := pinText(t, result.Pins, "url", "out0"); got != `"`+want+`"` {
		t.Errorf("url output = %q", got)
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp(nil, nil)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Nodes) != 0 || len(result.Pins) != 0 {
		t.Errorf("expected an empty graph, got %v", result.Nodes)
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp(nil, nil)
	result := app.Evaluate(`(expression "x"`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Nodes) != 0 {
		t.Errorf("expected 0 nodes on error, got %d", len(result.Nodes))
	}
}

// TestE2EEditSession evaluates a script, then edits an expression through
// the App the way an interactive frontend would.
func TestE2EEditSession(t *testing.T) {
	app := NewApp(nil, nil)
	evalFile(t, app, "examples/chain.exprg")

	r, err := app.Edit("area", "w - h")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !r.Rebound || r.SyntaxError != "" {
		t.Errorf("edit result = %+v", r)
	}
	// w moves from slot 1 back to slot 0
	want := []string{"Disconnect(", "Connect("}
	if len(r.Commands) != len(want) {
		t.Fatalf("commands = %v", r.Commands)
	}
	if got := pinText(t, r.Pins, "area", "in0"); got != "6.00" {
		t.Errorf("area.in0 = %q, want the wired width", got)
	}
	if got := pinText(t, r.Pins, "out", "in0"); got != "1.75" {
		t.Errorf("out = %q, want (6 - 2.5) / 2", got)
	}

	// a typo keeps the last good expression in effect
	r, err = app.Edit("area", "w - ")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if r.SyntaxError == "" || r.Rebound || len(r.Commands) != 0 {
		t.Errorf("typo result = %+v", r)
	}
	if got := pinText(t, app.Display(), "area", "out0"); got != "3.50" {
		t.Errorf("area after typo = %q, want 3.50", got)
	}

	if _, err := app.Edit("ghost", "1"); err == nil {
		t.Error("editing a missing node should fail")
	}
	if _, err := app.Edit("width", "1"); err == nil {
		t.Error("editing a source node should fail")
	}
}

// An Edit error means nothing was applied; a nil error means the new text is
// in the graph, whether or not it parsed.
func TestE2EEditErrorMeansUnapplied(t *testing.T) {
	app := NewApp(nil, nil)
	evalFile(t, app, "examples/chain.exprg")
	before := app.Graph().MustLookup("width").Data

	if _, err := app.Edit("width", "w * 3"); err == nil {
		t.Fatal("editing a source node should fail")
	}
	if app.Graph().MustLookup("width").Data != before {
		t.Error("failed edit changed the node")
	}

	r, err := app.Edit("half", "a / (2")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	_, perr := expr.Parse("a / (2")
	if r.SyntaxError != perr.Error() {
		t.Errorf("syntax error = %q, want %q", r.SyntaxError, perr)
	}
	if got := app.Graph().MustLookup("half").Expr().Text; got != "a / (2" {
		t.Errorf("committed text = %q", got)
	}

	r, err = app.Edit("half", "a / 4")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if r.SyntaxError != "" {
		t.Errorf("clean edit reported %q", r.SyntaxError)
	}
	if got := pinText(t, r.Pins, "out", "in0"); got != "4" {
		t.Errorf("out = %q, want the refreshed 16 / 4", got)
	}
}

func TestE2EConnect(t *testing.T) {
	app := NewApp(nil, nil)
	evalFile(t, app, "examples/chain.exprg")

	// replaces the area -> half wire
	if err := app.Connect("width", "half", 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := pinText(t, app.Display(), "half", "out0"); got != "3.00" {
		t.Errorf("half = %q, want 3.00", got)
	}
	if err := app.Connect("width", "out", 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := pinText(t, app.Display(), "out", "in0"); got != "6" {
		t.Errorf("out = %q, want the integer", got)
	}

	if err := app.Connect("out", "half", 0); err == nil {
		t.Error("a sink has no output to connect")
	}
	if err := app.Connect("width", "nope", 0); err == nil {
		t.Error("connecting to a missing node should fail")
	}
}

func TestE2EPrecisionFromConfig(t *testing.T) {
	cfg := config.Default()
	p := -1
	cfg.Precision = &p

	app := NewApp(cfg, nil)
	result := app.Evaluate(`(expression "1 / 3" :name "third")`)
	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if got := pinText(t, result.Pins, "third", "out0"); got != "0.3333333333333333" {
		t.Errorf("third = %q", got)
	}
}
