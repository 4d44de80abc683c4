package agent

import (
	"context"
	"errors"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
)

// NodeOption configures a node built by Node.
type NodeOption[S any] func(*agentNode[S])

// Degrade turns collaborator failures into a partial state instead of a
// failed node. Tool-loop overruns and cancellation still fail the node.
func Degrade[S any](fallback func(state S, err error) S) NodeOption[S] {
	return func(n *agentNode[S]) {
		n.degrade = fallback
	}
}

type agentNode[S any] struct {
	agent   *Agent
	prompt  func(S) []model.Message
	fold    func(S, Result) S
	degrade func(S, error) S
}

// Node adapts a to a graph node. prompt builds the conversation from the
// current state; fold turns the agent's result into the node's partial
// state.
//
//	g.AddNode("agent", agent.Node(a,
//	    func(s graph.State) []model.Message { return []model.Message{model.User(s.String("question"))} },
//	    func(s graph.State, r agent.Result) graph.State { return graph.State{"answer": r.Text} },
//	), graph.Reads("question"), graph.Writes("answer"))
func Node[S any](a *Agent, prompt func(S) []model.Message, fold func(S, Result) S, opts ...NodeOption[S]) graph.Node[S] {
	n := &agentNode[S]{agent: a, prompt: prompt, fold: fold}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *agentNode[S]) Run(ctx context.Context, state S) graph.NodeResult[S] {
	res, err := n.agent.Run(ctx, n.prompt(state))
	if err != nil {
		var ce *model.CollaboratorError
		if n.degrade != nil && errors.As(err, &ce) && ctx.Err() == nil {
			return graph.Partial(n.degrade(state, err))
		}
		return graph.Fail[S](err)
	}
	return graph.Partial(n.fold(state, res))
}
