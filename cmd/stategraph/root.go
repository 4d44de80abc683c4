package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/agent"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/internal/config"
	"github.com/dshills/stategraph/internal/logging"
)

// Version is reported by the review servers.
const Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "stategraph",
	Short: "Run graph workflows with LLM collaborators",
	Long: `stategraph runs small state-graph workflows: a news summarizer, a code
reviewer, a product search that remembers human approvals, and tool-calling
assistants.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return app.teardown(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "stategraph.yaml", "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("trace", false, "Print OpenTelemetry spans to stderr")
}

// application holds what every command shares.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	emitter  emit.Emitter
	registry *prometheus.Registry
	metrics  *graph.PrometheusMetrics
	shutdown func(context.Context) error
}

var app = &application{}

func (a *application) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	a.cfg = cfg
	a.logger = logging.New(logging.ParseLevel(cfg.LogLevel))
	a.registry = prometheus.NewRegistry()
	a.metrics = graph.NewPrometheusMetrics(a.registry)

	emitters := []emit.Emitter{emit.NewLogEmitter(a.logger).WithLevel(slog.LevelDebug)}
	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		tracer, shutdown, err := setupTracing(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		a.shutdown = shutdown
		emitters = append(emitters, emit.NewOTelEmitter(tracer))
	}
	a.emitter = emit.NewMultiEmitter(emitters...)
	return nil
}

func (a *application) teardown(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}
	return a.shutdown(ctx)
}

func (a *application) engineOptions() []graph.Option {
	opts := []graph.Option{
		graph.WithEmitter(a.emitter),
		graph.WithMetrics(a.metrics),
		graph.WithLogger(a.logger),
	}
	if a.cfg.MaxSteps > 0 {
		opts = append(opts, graph.WithMaxSteps(a.cfg.MaxSteps))
	}
	return opts
}

func (a *application) agentOptions(system string) []agent.Option {
	opts := []agent.Option{
		agent.WithSystemPrompt(system),
		agent.WithEmitter(a.emitter),
		agent.WithMetrics(a.metrics),
		agent.WithLogger(a.logger),
	}
	if a.cfg.MaxToolRounds > 0 {
		opts = append(opts, agent.WithMaxRounds(a.cfg.MaxToolRounds))
	}
	return opts
}
