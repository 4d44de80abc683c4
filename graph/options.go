package graph

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dshills/stategraph/graph/emit"
)

// DefaultMaxSteps is the transition ceiling used when none is configured.
const DefaultMaxSteps = 25

// Options configures engine execution behavior.
type Options struct {
	// MaxSteps bounds the number of node transitions in one run. Exceeding
	// it fails the run with STEP_LIMIT_EXCEEDED. Zero selects
	// DefaultMaxSteps.
	MaxSteps int

	// DefaultNodeTimeout bounds each node execution unless the node was
	// registered WithTimeout. Zero means no timeout.
	DefaultNodeTimeout time.Duration

	// RunTimeout bounds the wall-clock duration of a whole run. Zero means
	// no budget beyond the caller's context.
	RunTimeout time.Duration
}

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine, err := graph.New(compiled,
//	    graph.WithMaxSteps(50),
//	    graph.WithDefaultNodeTimeout(30*time.Second),
//	    graph.WithEmitter(emit.NewLogEmitter(logger)),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	opts    Options
	emitter emit.Emitter
	metrics *PrometheusMetrics
	logger  *slog.Logger
}

// WithOptions replaces the whole Options struct. Later options still apply.
func WithOptions(opts Options) Option {
	return func(cfg *engineConfig) error {
		cfg.opts = opts
		return nil
	}
}

// WithMaxSteps sets the transition ceiling that guards against cyclic
// graphs.
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) error {
		if n < 0 {
			return errors.New("max steps must be >= 0")
		}
		cfg.opts.MaxSteps = n
		return nil
	}
}

// WithDefaultNodeTimeout sets the timeout applied to nodes registered
// without their own.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("node timeout must be >= 0")
		}
		cfg.opts.DefaultNodeTimeout = d
		return nil
	}
}

// WithRunTimeout sets a wall-clock budget for each run.
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("run timeout must be >= 0")
		}
		cfg.opts.RunTimeout = d
		return nil
	}
}

// WithEmitter sends execution events to e.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics records execution metrics to m.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithLogger sets the logger for engine diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		cfg.logger = l
		return nil
	}
}
