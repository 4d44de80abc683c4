package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
)

func askNode(a *Agent, opts ...NodeOption[graph.State]) graph.Node[graph.State] {
	return Node(a,
		func(s graph.State) []model.Message { return []model.Message{model.User(s.String("question"))} },
		func(s graph.State, r Result) graph.State { return graph.State{"answer": r.Text} },
		opts...,
	)
}

func runAsk(t *testing.T, node graph.Node[graph.State]) (graph.State, error) {
	t.Helper()
	g := graph.NewGraph(graph.Merge)
	if err := g.AddNode("agent", node, graph.Reads("question"), graph.Writes("answer")); err != nil {
		t.Fatal(err)
	}
	_ = g.SetEntry("agent")
	_ = g.AddEdge("agent", graph.End)
	compiled, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	engine, err := graph.New(compiled)
	if err != nil {
		t.Fatal(err)
	}
	return engine.Run(context.Background(), "", graph.State{"question": "echo hi"})
}

// A node delegating to echo(x) -> x ends with the echoed value in its
// partial state.
func TestNode_EchoToolCall(t *testing.T) {
	reg, echo := echoRegistry(t)
	a, _ := New(echoModel("hi"), reg)

	final, err := runAsk(t, askNode(a))
	if err != nil {
		t.Fatal(err)
	}
	if final.String("answer") != "hi" {
		t.Errorf("answer = %q, want hi", final.String("answer"))
	}
	if echo.CallCount() != 1 {
		t.Errorf("echo called %d times", echo.CallCount())
	}
}

func TestNode_Degrade(t *testing.T) {
	down := &model.MockChatModel{Err: errors.New("connection refused")}
	a, _ := New(down, nil)

	fallback := Degrade(func(s graph.State, err error) graph.State {
		return graph.State{"answer": "Error: " + err.Error()}
	})

	final, err := runAsk(t, askNode(a, fallback))
	if err != nil {
		t.Fatal(err)
	}
	if final.String("answer") != "Error: chat: connection refused" {
		t.Errorf("answer = %q", final.String("answer"))
	}

	if _, err := runAsk(t, askNode(a)); err == nil {
		t.Error("collaborator failure without Degrade did not fail the run")
	}
}

func TestNode_ToolLoopNeverDegraded(t *testing.T) {
	reg, _ := echoRegistry(t)
	loop := &model.MockChatModel{Responses: []model.ChatOut{
		{ToolCalls: []model.ToolCall{{ID: "c", Name: "echo"}}},
	}}
	a, _ := New(loop, reg, WithMaxRounds(2))

	degraded := false
	node := askNode(a, Degrade(func(s graph.State, err error) graph.State {
		degraded = true
		return graph.State{"answer": ""}
	}))

	_, err := runAsk(t, node)
	var nodeErr *graph.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.NodeID != "agent" || !errors.Is(err, ErrToolLoopExceeded) {
		t.Errorf("err = %v, want NodeError wrapping ErrToolLoopExceeded", err)
	}
	if degraded {
		t.Error("tool loop overrun was degraded")
	}
}
