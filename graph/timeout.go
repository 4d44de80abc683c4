package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// nodeTimeout determines the timeout for a node based on precedence:
// the node's own policy first, then the engine default, else none.
func nodeTimeout(policy NodePolicy, defaultTimeout time.Duration) time.Duration {
	if policy.Timeout > 0 {
		return policy.Timeout
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return 0
}

// runNode executes node under its timeout and converts a panic into an
// error result. A node that returns after its deadline passed fails with
// NODE_TIMEOUT even if it reported success.
func runNode[S any](ctx context.Context, node Node[S], nodeID string, state S, timeout time.Duration) (result NodeResult[S], code string) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = Fail[S](fmt.Errorf("panic: %v", r))
			code = CodeNodePanic
		}
	}()

	result = node.Run(ctx, state)

	if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cause := result.Err
		if cause == nil {
			cause = context.DeadlineExceeded
		}
		return Fail[S](fmt.Errorf("node %s exceeded timeout of %v: %w", nodeID, timeout, cause)), CodeNodeTimeout
	}
	if result.Err != nil {
		return result, CodeNodeFailed
	}
	return result, ""
}
