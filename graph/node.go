package graph

import (
	"context"
	"strconv"
	"time"
)

// End is the terminal marker. Routing to End finishes the run. It is a
// sentinel name, never a registered node.
const End = "__end__"

// Node represents a processing unit in the workflow graph.
// It receives the full accumulated state and returns only the fields it
// changes.
//
// Nodes are registered by name at build time and are immutable afterwards.
// Routing is owned by the edge table, not by the node: a node computes, the
// compiled graph decides where to go next.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult represents the output of a node execution.
type NodeResult[S any] struct {
	// Delta is the partial state produced by this node.
	// It will be merged with the current state using the configured reducer.
	Delta S

	// Err halts the run. Expected failures of external collaborators should
	// instead be folded into Delta as a descriptive field so downstream nodes
	// can react to them.
	Err error
}

// Partial wraps delta in a successful NodeResult.
func Partial[S any](delta S) NodeResult[S] {
	return NodeResult[S]{Delta: delta}
}

// Fail returns a NodeResult that halts the run with err.
func Fail[S any](err error) NodeResult[S] {
	return NodeResult[S]{Err: err}
}

// NodeFunc is a function adapter that implements the Node interface.
//
// Example:
//
//	summarize := graph.NodeFunc[graph.State](func(ctx context.Context, s graph.State) graph.NodeResult[graph.State] {
//	    return graph.Partial(graph.State{"summary": strings.ToUpper(s.String("headlines"))})
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// NodePolicy holds the per-node contract declared at registration.
type NodePolicy struct {
	// Timeout bounds a single execution of the node. Zero falls back to the
	// engine default.
	Timeout time.Duration

	// Reads lists the state fields the node consumes.
	Reads []string

	// Writes lists the state fields the node may return. Empty means the
	// node's writes are not checked.
	Writes []string
}

// NodeOption configures a NodePolicy.
type NodeOption func(*NodePolicy)

// Reads declares the fields a node reads.
func Reads(fields ...string) NodeOption {
	return func(p *NodePolicy) {
		p.Reads = append(p.Reads, fields...)
	}
}

// Writes declares the fields a node may write.
func Writes(fields ...string) NodeOption {
	return func(p *NodePolicy) {
		p.Writes = append(p.Writes, fields...)
	}
}

// WithTimeout sets a per-node timeout overriding the engine default.
func WithTimeout(d time.Duration) NodeOption {
	return func(p *NodePolicy) {
		p.Timeout = d
	}
}

// NodeError is the structured failure returned by Run and Stream. It names
// the failing node, the step it failed on, and the error kind.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code, one of the Code constants.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Step is the 1-indexed transition the run failed on.
	Step int

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.NodeID != "" {
		msg = "node " + e.NodeID + " (step " + strconv.Itoa(e.Step) + "): " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
