package memory

import (
	"context"
	"log/slog"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
)

// GuardOption configures Guard.
type GuardOption func(*guardConfig)

type guardConfig struct {
	metrics *graph.PrometheusMetrics
	emitter emit.Emitter
	logger  *slog.Logger
}

// WithMetrics counts lookups as hit, miss, or error.
func WithMetrics(m *graph.PrometheusMetrics) GuardOption {
	return func(c *guardConfig) { c.metrics = m }
}

// WithEmitter reports hits as memory_hit events.
func WithEmitter(e emit.Emitter) GuardOption {
	return func(c *guardConfig) { c.emitter = e }
}

// WithLogger logs lookup failures.
func WithLogger(l *slog.Logger) GuardOption {
	return func(c *guardConfig) { c.logger = l }
}

// Guard wraps next with a memory lookup. key derives the query from the
// state; on a hit, hit builds the node's partial state from the remembered
// result and next does not run. A blank key or a failed lookup runs next.
//
//	search := memory.Guard(store,
//	    func(s graph.State) string { return s.String("query") },
//	    func(s graph.State, result string) graph.State {
//	        return graph.State{"results": result, "source": "memory"}
//	    },
//	    searchIndex,
//	)
func Guard[S any](r Reader, key func(S) string, hit func(S, string) S, next graph.Node[S], opts ...GuardOption) graph.Node[S] {
	cfg := guardConfig{
		emitter: emit.NewNullEmitter(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return graph.NodeFunc[S](func(ctx context.Context, state S) graph.NodeResult[S] {
		query := key(state)
		if validate(query) != nil {
			return next.Run(ctx, state)
		}

		result, ok, err := r.Lookup(ctx, query)
		switch {
		case err != nil:
			cfg.metrics.RecordMemoryLookup("error")
			cfg.logger.Warn("memory lookup failed", "query", query, "err", err)
			return next.Run(ctx, state)
		case !ok:
			cfg.metrics.RecordMemoryLookup("miss")
			return next.Run(ctx, state)
		}

		cfg.metrics.RecordMemoryLookup("hit")
		info, _ := graph.RunInfoFromContext(ctx)
		cfg.emitter.Emit(emit.Event{
			RunID:  info.RunID,
			Step:   info.Step,
			NodeID: info.NodeID,
			Msg:    emit.MsgMemoryHit,
			Meta:   map[string]interface{}{"query": query},
		})
		return graph.Partial(hit(state, result))
	})
}
