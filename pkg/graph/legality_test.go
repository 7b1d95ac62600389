package graph

import (
	"errors"
	"testing"
)

func TestMayConnectMatrix(t *testing.T) {
	// rows are sources, columns destinations, both in Kinds order:
	// sink, integer-source, string-source, image-show, expression
	want := [][]bool{
		{false, false, false, false, false}, // sink has no output
		{true, false, false, false, true},   // integer-source
		{true, false, false, true, false},   // string-source
		{true, false, false, false, false},  // image-show
		{true, false, false, false, true},   // expression
	}
	for i, src := range Kinds {
		for j, dst := range Kinds {
			if got := MayConnect(src, dst); got != want[i][j] {
				t.Errorf("MayConnect(%s, %s) = %v, want %v", src, dst, got, want[i][j])
			}
		}
	}
}

func TestCheckConnection(t *testing.T) {
	err := CheckConnection(NodeIntegerSource, NodeImageShow)
	if err == nil {
		t.Fatal("integer-source -> image-show should be rejected")
	}
	if !errors.Is(err, ErrIllegalConnection) {
		t.Errorf("error %v does not match ErrIllegalConnection", err)
	}
	var ice *IllegalConnectionError
	if !errors.As(err, &ice) {
		t.Fatalf("expected *IllegalConnectionError, got %T", err)
	}
	if ice.Source != NodeIntegerSource || ice.Destination != NodeImageShow {
		t.Errorf("error carries %s -> %s", ice.Source, ice.Destination)
	}

	if err := CheckConnection(NodeStringSource, NodeImageShow); err != nil {
		t.Errorf("string-source -> image-show rejected: %v", err)
	}
}

func TestIllegalConnectLeavesGraphUntouched(t *testing.T) {
	g := New()
	n := mustAdd(t, g, "n", &IntegerData{Value: 3})
	str := mustAdd(t, g, "str", &StringData{Value: "cat.png"})
	show := mustAdd(t, g, "show", &ShowData{URI: "default.png"})

	err := g.Apply(Connect{From: n.Out(0), To: show.In(0)})
	if !errors.Is(err, ErrIllegalConnection) {
		t.Fatalf("expected illegal connection, got %v", err)
	}
	if g.WireCount() != 0 {
		t.Fatalf("illegal connect mutated the graph: %v", g.Wires())
	}

	if err := g.Apply(Connect{From: str.Out(0), To: show.In(0)}); err != nil {
		t.Fatalf("string-source -> image-show: %v", err)
	}
	if out, ok := g.Remote(show.In(0)); !ok || out != str.Out(0) {
		t.Errorf("image-show input not wired to the string source")
	}
}
