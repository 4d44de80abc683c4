package graph

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/dshills/stategraph/graph/emit"
)

// Stream executes the graph like Run but yields the full state after every
// successful transition. The sequence is lazy: the next node runs only when
// the consumer asks for the next element. It is finite and ends with the
// step whose Next is End, whose State equals what Run would return.
//
// On failure the sequence yields a single (zero Step, error) pair and ends.
// Breaking out of the loop abandons the run before the next node starts.
//
// The returned sequence is not restartable: ranging over it a second time
// yields ErrStreamConsumed.
//
// Consumers wanting incremental display compute their own deltas against
// the previously yielded state; see package stream.
//
//	for step, err := range engine.Stream(ctx, "", initial) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(step.Node, "->", step.Next)
//	}
func (e *Engine[S]) Stream(ctx context.Context, runID string, initial S) iter.Seq2[Step[S], error] {
	var used atomic.Bool
	return func(yield func(Step[S], error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Step[S]{}, ErrStreamConsumed)
			return
		}

		r := e.start(ctx, runID, initial)
		for !r.done {
			step, err := r.advance()
			if err != nil {
				r.finish(err)
				yield(Step[S]{}, err)
				return
			}
			if !yield(step, nil) {
				if r.done {
					r.finish(nil)
				} else {
					r.abandon()
				}
				return
			}
		}
		r.finish(nil)
	}
}

// abandon closes a run whose consumer stopped iterating.
func (r *execution[S]) abandon() {
	defer r.cancel()
	r.e.metrics.RunFinished("abandoned")
	r.e.logger.Debug("run abandoned", "run_id", r.id, "steps", r.step)
	r.e.emitter.Emit(emit.Event{RunID: r.id, Step: r.step, NodeID: r.current, Msg: emit.MsgRunAbandoned})
}
