package graph

import "context"

// RunInfo identifies the node execution a context belongs to.
type RunInfo struct {
	RunID  string
	NodeID string
	Step   int
}

type runInfoKey struct{}

// RunInfoFromContext returns the RunInfo the engine attached to a node's
// context. ok is false outside a run.
func RunInfoFromContext(ctx context.Context) (info RunInfo, ok bool) {
	info, ok = ctx.Value(runInfoKey{}).(RunInfo)
	return info, ok
}

// WithRunInfo attaches info to ctx. The engine does this for every node; it
// is exported for running nodes outside an engine, e.g. in tests.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}
