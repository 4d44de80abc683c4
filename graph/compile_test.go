package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func noop() Node[State] {
	return NodeFunc[State](func(ctx context.Context, s State) NodeResult[State] {
		return Partial(State{})
	})
}

func compileErrors(err error) []*CompileError {
	var out []*CompileError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var ce *CompileError
			if errors.As(e, &ce) {
				out = append(out, ce)
			}
		}
	}
	return out
}

func hasKind(errs []*CompileError, kind, node string) bool {
	for _, e := range errs {
		if e.Kind == kind && e.Node == node {
			return true
		}
	}
	return false
}

func TestGraph_Builder(t *testing.T) {
	t.Run("rejects duplicate node", func(t *testing.T) {
		g := NewGraph(Merge)
		if err := g.AddNode("a", noop()); err != nil {
			t.Fatal(err)
		}
		err := g.AddNode("a", noop())
		var engErr *EngineError
		if !errors.As(err, &engErr) || engErr.Code != "DUPLICATE_NODE" {
			t.Errorf("AddNode duplicate = %v, want DUPLICATE_NODE", err)
		}
	})

	t.Run("rejects reserved and empty names", func(t *testing.T) {
		g := NewGraph(Merge)
		if err := g.AddNode(End, noop()); err == nil {
			t.Error("AddNode(End) succeeded")
		}
		if err := g.AddNode("", noop()); err == nil {
			t.Error("AddNode(\"\") succeeded")
		}
		if err := g.AddNode("nil", nil); err == nil {
			t.Error("AddNode(nil) succeeded")
		}
		if err := g.SetEntry(""); err == nil {
			t.Error("SetEntry(\"\") succeeded")
		}
		if err := g.AddEdge("", "a"); err == nil {
			t.Error("AddEdge with empty source succeeded")
		}
	})

	t.Run("rejects branch without decide", func(t *testing.T) {
		g := NewGraph(Merge)
		err := g.AddConditionalEdge("a", Branch[State]{Name: "b"}, map[string]string{"x": End})
		if err == nil {
			t.Error("AddConditionalEdge without Decide succeeded")
		}
	})
}

func TestCompile(t *testing.T) {
	t.Run("valid linear graph", func(t *testing.T) {
		g := NewGraph(Merge)
		_ = g.AddNode("a", noop())
		_ = g.AddNode("b", noop())
		_ = g.SetEntry("a")
		_ = g.AddEdge("a", "b")
		_ = g.AddEdge("b", End)

		c, err := g.Compile()
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if c.Entry() != "a" {
			t.Errorf("Entry = %q", c.Entry())
		}
		if got := c.Nodes(); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Errorf("Nodes = %v", got)
		}
		if got := c.Successors("a"); !reflect.DeepEqual(got, []string{"b"}) {
			t.Errorf("Successors(a) = %v", got)
		}
		if c.IsConditional("a") {
			t.Error("IsConditional(a) = true")
		}
	})

	t.Run("valid branching graph", func(t *testing.T) {
		g := NewGraph(Merge)
		_ = g.AddNode("classify", noop())
		_ = g.AddNode("yes", noop())
		_ = g.AddNode("no", noop())
		_ = g.SetEntry("classify")
		branch := NewBranch("answer", func(s State) string { return s.String("answer") }, "y", "n")
		_ = g.AddConditionalEdge("classify", branch, map[string]string{"y": "yes", "n": "no"})
		_ = g.AddEdge("yes", End)
		_ = g.AddEdge("no", End)

		c, err := g.Compile()
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if !c.IsConditional("classify") {
			t.Error("IsConditional(classify) = false")
		}
		if got := c.Successors("classify"); !reflect.DeepEqual(got, []string{"no", "yes"}) {
			t.Errorf("Successors(classify) = %v", got)
		}
	})

	// A node whose outgoing edge targets a node that does not exist.
	t.Run("dangling edge target", func(t *testing.T) {
		g := NewGraph(Merge)
		_ = g.AddNode("fetch", noop())
		_ = g.SetEntry("fetch")
		_ = g.AddEdge("fetch", "summarize")

		c, err := g.Compile()
		if c != nil {
			t.Error("Compile returned a plan for an invalid graph")
		}
		if !errors.Is(err, ErrCompile) {
			t.Fatalf("err = %v, want ErrCompile", err)
		}
		var ce *CompileError
		if !errors.As(err, &ce) || ce.Kind != "dangling_edge" || ce.Node != "fetch" {
			t.Errorf("CompileError = %+v, want dangling_edge on fetch", ce)
		}
		if !strings.Contains(err.Error(), `"summarize"`) {
			t.Errorf("error %q does not name the missing target", err)
		}
	})

	tests := []struct {
		name  string
		build func(g *Graph[State])
		kind  string
		node  string
	}{
		{
			name:  "missing entry",
			build: func(g *Graph[State]) { _ = g.AddNode("a", noop()); _ = g.AddEdge("a", End) },
			kind:  "missing_entry",
		},
		{
			name: "unregistered entry",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.AddEdge("a", End)
				_ = g.SetEntry("ghost")
			},
			kind: "missing_entry",
			node: "ghost",
		},
		{
			name: "edge from unknown node",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.SetEntry("a")
				_ = g.AddEdge("a", End)
				_ = g.AddEdge("ghost", "a")
			},
			kind: "unknown_node",
			node: "ghost",
		},
		{
			name: "node without outgoing edge",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.AddNode("b", noop())
				_ = g.SetEntry("a")
				_ = g.AddEdge("a", "b")
			},
			kind: "missing_edge",
			node: "b",
		},
		{
			name: "two outgoing edges",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.AddNode("b", noop())
				_ = g.SetEntry("a")
				_ = g.AddEdge("a", "b")
				_ = g.AddEdge("a", End)
				_ = g.AddEdge("b", End)
			},
			kind: "duplicate_edge",
			node: "a",
		},
		{
			name: "unreachable node",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.AddNode("orphan", noop())
				_ = g.SetEntry("a")
				_ = g.AddEdge("a", End)
				_ = g.AddEdge("orphan", End)
			},
			kind: "unreachable",
			node: "orphan",
		},
		{
			name: "conditional target unknown",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.SetEntry("a")
				_ = g.AddConditionalEdge("a", NewBranch("b", func(State) string { return "x" }), map[string]string{"x": "ghost"})
			},
			kind: "dangling_edge",
			node: "a",
		},
		{
			name: "declared branch key not mapped",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.SetEntry("a")
				_ = g.AddConditionalEdge("a", NewBranch("b", func(State) string { return "x" }, "x", "y"), map[string]string{"x": End})
			},
			kind: "uncovered_branch",
			node: "a",
		},
		{
			name: "branch with no targets",
			build: func(g *Graph[State]) {
				_ = g.AddNode("a", noop())
				_ = g.SetEntry("a")
				_ = g.AddConditionalEdge("a", NewBranch("b", func(State) string { return "x" }), nil)
			},
			kind: "invalid_branch",
			node: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(Merge)
			tt.build(g)
			_, err := g.Compile()
			if !errors.Is(err, ErrCompile) {
				t.Fatalf("err = %v, want ErrCompile", err)
			}
			if errs := compileErrors(err); !hasKind(errs, tt.kind, tt.node) {
				t.Errorf("errors %v lack kind %q on node %q", err, tt.kind, tt.node)
			}
		})
	}

	t.Run("missing reducer", func(t *testing.T) {
		g := NewGraph[State](nil)
		_ = g.AddNode("a", noop())
		_ = g.SetEntry("a")
		_ = g.AddEdge("a", End)
		_, err := g.Compile()
		if !hasKind(compileErrors(err), "missing_reducer", "") {
			t.Errorf("err = %v, want missing_reducer", err)
		}
	})

	t.Run("reports every defect in stable order", func(t *testing.T) {
		build := func() error {
			g := NewGraph(Merge)
			_ = g.AddNode("a", noop())
			_ = g.AddNode("b", noop())
			_ = g.AddNode("c", noop())
			_ = g.SetEntry("a")
			_ = g.AddEdge("a", "missing")
			_, err := g.Compile()
			return err
		}
		first := build()
		if got := len(compileErrors(first)); got < 4 {
			t.Errorf("got %d defects, want at least 4: %v", got, first)
		}
		if second := build(); first.Error() != second.Error() {
			t.Errorf("unstable output:\n%v\n%v", first, second)
		}
	})

	t.Run("compiled plan is isolated from later builder changes", func(t *testing.T) {
		g := NewGraph(Merge)
		_ = g.AddNode("a", noop(), Writes("x"))
		_ = g.SetEntry("a")
		_ = g.AddEdge("a", End)
		c, err := g.Compile()
		if err != nil {
			t.Fatal(err)
		}
		_ = g.AddNode("b", noop())
		if len(c.Nodes()) != 1 {
			t.Errorf("plan changed after compile: %v", c.Nodes())
		}
		if p, ok := c.Policy("a"); !ok || !reflect.DeepEqual(p.Writes, []string{"x"}) {
			t.Errorf("Policy(a) = %+v", p)
		}
	})
}
