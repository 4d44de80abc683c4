package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/stategraph/graph/emit"
)

// Engine executes a compiled graph.
//
// A run starts at the entry node and repeats one transition until it
// reaches End:
//   - invoke the current node on the accumulated state
//   - merge the node's partial state with the reducer
//   - resolve the node's outgoing edge on the merged state
//
// Node execution is strictly sequential within a run. An Engine holds no
// per-run state, so one Engine may serve many concurrent runs as long as
// each run gets its own initial state.
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	g := graph.NewGraph(graph.Merge)
//	_ = g.AddNode("fetch", fetchNode, graph.Writes("headlines"))
//	_ = g.AddNode("summarize", summarizeNode, graph.Reads("headlines"), graph.Writes("summary"))
//	_ = g.SetEntry("fetch")
//	_ = g.AddEdge("fetch", "summarize")
//	_ = g.AddEdge("summarize", graph.End)
//
//	compiled, err := g.Compile()
//	engine, err := graph.New(compiled, graph.WithMaxSteps(10))
//	final, err := engine.Run(ctx, "", graph.State{"topic": "markets"})
type Engine[S any] struct {
	plan    *Compiled[S]
	opts    Options
	emitter emit.Emitter
	metrics *PrometheusMetrics
	logger  *slog.Logger
}

// Step is one successful transition, as produced by Stream.
type Step[S any] struct {
	// Index is the 1-indexed transition number.
	Index int

	// Node is the node that just ran.
	Node string

	// BranchKey is the key returned by a conditional edge's branch, or ""
	// for direct edges.
	BranchKey string

	// Next is the resolved next node, or End.
	Next string

	// State is the full state after merging the node's output.
	State S
}

// New creates an engine for plan.
func New[S any](plan *Compiled[S], options ...Option) (*Engine[S], error) {
	if plan == nil {
		return nil, &EngineError{Message: "compiled graph is required", Code: "MISSING_GRAPH"}
	}

	cfg := &engineConfig{}
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return nil, &EngineError{Message: err.Error(), Code: "INVALID_OPTION"}
		}
	}
	if cfg.opts.MaxSteps == 0 {
		cfg.opts.MaxSteps = DefaultMaxSteps
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Engine[S]{
		plan:    plan,
		opts:    cfg.opts,
		emitter: cfg.emitter,
		metrics: cfg.metrics,
		logger:  cfg.logger,
	}, nil
}

// Graph returns the compiled plan the engine executes.
func (e *Engine[S]) Graph() *Compiled[S] {
	return e.plan
}

// Run executes the graph from initial until End and returns the final
// state. On failure it returns the zero state and a *NodeError naming the
// failing node and error kind; a failed run never returns partial state.
//
// An empty runID is replaced by a generated UUID.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var zero S

	r := e.start(ctx, runID, initial)
	for !r.done {
		if _, err := r.advance(); err != nil {
			r.finish(err)
			return zero, err
		}
	}
	r.finish(nil)
	return r.state, nil
}

// execution is the mutable state of one run.
type execution[S any] struct {
	e       *Engine[S]
	ctx     context.Context
	cancel  context.CancelFunc
	id      string
	state   S
	current string
	step    int
	done    bool
	started time.Time
}

func (e *Engine[S]) start(ctx context.Context, runID string, initial S) *execution[S] {
	if runID == "" {
		runID = uuid.NewString()
	}

	cancel := context.CancelFunc(func() {})
	if e.opts.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
	}

	r := &execution[S]{
		e:       e,
		ctx:     ctx,
		cancel:  cancel,
		id:      runID,
		state:   e.withDefaults(initial),
		current: e.plan.entry,
		started: time.Now(),
	}

	e.metrics.RunStarted()
	e.logger.Debug("run started", "run_id", runID, "entry", r.current)
	e.emitter.Emit(emit.Event{RunID: runID, NodeID: r.current, Msg: emit.MsgRunStart})
	return r
}

// withDefaults fills graph defaults into a State-typed initial value.
func (e *Engine[S]) withDefaults(initial S) S {
	if len(e.plan.defaults) == 0 {
		return initial
	}
	st, ok := any(initial).(State)
	if !ok {
		return initial
	}
	filled := st.Clone()
	for k, v := range e.plan.defaults {
		if !filled.Has(k) {
			filled[k] = v
		}
	}
	return any(filled).(S)
}

// advance performs one transition.
func (r *execution[S]) advance() (Step[S], error) {
	e := r.e
	r.step++
	node := r.current

	if r.step > e.opts.MaxSteps {
		return Step[S]{}, &NodeError{
			Message: fmt.Sprintf("run exceeded %d steps", e.opts.MaxSteps),
			Code:    CodeStepLimitExceeded,
			NodeID:  node,
			Step:    r.step,
			Cause:   ErrStepLimitExceeded,
		}
	}

	if err := r.ctx.Err(); err != nil {
		return Step[S]{}, &NodeError{Message: "run cancelled", Code: CodeCancelled, NodeID: node, Step: r.step, Cause: err}
	}

	policy := e.plan.policies[node]
	if err := checkReads(r.state, policy.Reads); err != nil {
		return Step[S]{}, &NodeError{Message: "missing input", Code: CodeMissingField, NodeID: node, Step: r.step, Cause: err}
	}

	e.emitter.Emit(emit.Event{RunID: r.id, Step: r.step, NodeID: node, Msg: emit.MsgNodeStart})

	begin := time.Now()
	nodeCtx := WithRunInfo(r.ctx, RunInfo{RunID: r.id, NodeID: node, Step: r.step})
	result, code := runNode(nodeCtx, e.plan.nodes[node], node, r.state, nodeTimeout(policy, e.opts.DefaultNodeTimeout))
	latency := time.Since(begin)

	if result.Err != nil {
		e.metrics.RecordStepLatency(node, latency, "error")
		return Step[S]{}, &NodeError{Message: "node failed", Code: code, NodeID: node, Step: r.step, Cause: result.Err}
	}

	if err := checkWrites(result.Delta, policy.Writes); err != nil {
		e.metrics.RecordStepLatency(node, latency, "error")
		return Step[S]{}, &NodeError{Message: "write outside declared set", Code: CodeUndeclaredWrite, NodeID: node, Step: r.step, Cause: err}
	}

	e.metrics.RecordStepLatency(node, latency, "success")
	r.state = e.plan.reducer(r.state, result.Delta)

	e.emitter.Emit(emit.Event{
		RunID:  r.id,
		Step:   r.step,
		NodeID: node,
		Msg:    emit.MsgNodeEnd,
		Meta:   map[string]interface{}{"duration_ms": latency.Milliseconds()},
	})

	edge := e.plan.edges[node]
	next, key, err := edge.resolve(r.state)
	if err != nil {
		return Step[S]{}, &NodeError{
			Message: fmt.Sprintf("branch %q returned key %q", edge.Branch.Name, key),
			Code:    CodeUnmappedBranch,
			NodeID:  node,
			Step:    r.step,
			Cause:   err,
		}
	}

	meta := map[string]interface{}{"to": next}
	if edge.Kind == Conditional {
		meta["branch"] = edge.Branch.Name
		meta["key"] = key
	}
	e.emitter.Emit(emit.Event{RunID: r.id, Step: r.step, NodeID: node, Msg: emit.MsgRoute, Meta: meta})
	e.metrics.RecordRoute(node, next)

	r.current = next
	r.done = next == End
	return Step[S]{Index: r.step, Node: node, BranchKey: key, Next: next, State: snapshot(r.state)}, nil
}

// finish releases the run and reports its outcome.
func (r *execution[S]) finish(err error) {
	defer r.cancel()
	e := r.e
	elapsed := time.Since(r.started).Milliseconds()

	if err == nil {
		e.metrics.RunFinished("success")
		e.logger.Debug("run complete", "run_id", r.id, "steps", r.step)
		e.emitter.Emit(emit.Event{
			RunID: r.id,
			Step:  r.step,
			Msg:   emit.MsgRunComplete,
			Meta:  map[string]interface{}{"steps": r.step, "duration_ms": elapsed},
		})
		return
	}

	meta := map[string]interface{}{"error": err.Error(), "duration_ms": elapsed}
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		meta["code"] = nodeErr.Code
	}
	e.metrics.RunFinished("error")
	e.logger.Warn("run failed", "run_id", r.id, "node", r.current, "err", err)
	e.emitter.Emit(emit.Event{RunID: r.id, Step: r.step, NodeID: r.current, Msg: emit.MsgRunError, Meta: meta})
}

func checkReads[S any](state S, reads []string) error {
	if len(reads) == 0 {
		return nil
	}
	lookup, ok := any(state).(FieldLookup)
	if !ok {
		return nil
	}
	for _, f := range reads {
		if !lookup.Has(f) {
			return fmt.Errorf("%w: %q", ErrMissingField, f)
		}
	}
	return nil
}

func checkWrites[S any](delta S, writes []string) error {
	if len(writes) == 0 {
		return nil
	}
	reporter, ok := any(delta).(FieldReporter)
	if !ok {
		return nil
	}
	for _, f := range reporter.Fields() {
		if !slices.Contains(writes, f) {
			return fmt.Errorf("%w: %q", ErrUndeclaredWrite, f)
		}
	}
	return nil
}

// snapshot detaches a State from the engine's running copy so a stream
// consumer can't mutate it.
func snapshot[S any](state S) S {
	if st, ok := any(state).(State); ok {
		return any(st.Clone()).(S)
	}
	return state
}
