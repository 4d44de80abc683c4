package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/internal/review"
	"github.com/dshills/stategraph/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the product review API",
	Long: `Serves product search with approve and edit over HTTP, plus Prometheus
metrics at /metrics. Use a persistent memory backend to keep decisions
across restarts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := app.cfg.Serve.Addr
		if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
			addr = flag
		}

		return withProducts(func(svc *workflow.ProductService) error {
			srv := &http.Server{
				Addr: addr,
				Handler: review.NewHandler(svc,
					review.WithMetrics(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})),
					review.WithLogger(app.logger),
				),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverErrors := make(chan error, 1)
			go func() {
				app.logger.Info("review API listening", "addr", addr, "memory", app.cfg.Memory.Backend)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				_ = srv.Close()
				return err
			}
			app.logger.Info("review API stopped")
			return nil
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve product search as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProducts(func(svc *workflow.ProductService) error {
			app.logger.Info("MCP server on stdio", "memory", app.cfg.Memory.Backend)
			return server.ServeStdio(review.NewMCPServer(svc, Version))
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address, overriding serve.addr")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
