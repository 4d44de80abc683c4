package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/memory"
	"github.com/dshills/stategraph/workflow"
)

// productService wires the configured memory backend and catalog into the
// product search. The returned close function releases the store.
func (a *application) productService() (*workflow.ProductService, func() error, error) {
	store, err := openMemory(a.cfg.Memory)
	if err != nil {
		return nil, nil, err
	}
	index, err := loadCatalog(a.cfg.Catalog)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	compiled, err := workflow.ProductGraph(store, index,
		memory.WithMetrics(a.metrics),
		memory.WithEmitter(a.emitter),
		memory.WithLogger(a.logger),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	engine, err := graph.New(compiled, a.engineOptions()...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return workflow.NewProductService(engine, store), store.Close, nil
}

// withProducts runs fn against the product service and closes it after.
func withProducts(fn func(svc *workflow.ProductService) error) error {
	svc, closeStore, err := app.productService()
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(svc)
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search products, reusing approved results",
	Long: `Searches the product catalog. A query whose results were approved or
edited before returns those results unchanged. With --review the results
can be approved or edited right away.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		reviewing, _ := cmd.Flags().GetBool("review")
		return withProducts(func(svc *workflow.ProductService) error {
			st, err := svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.Results)
			if st.Source == workflow.SourceMemory {
				fmt.Fprintln(cmd.ErrOrStderr(), "(from memory)")
			}
			if !reviewing || st.Source != workflow.SourceIndex {
				return nil
			}
			return reviewResults(cmd.Context(), svc, cmd.InOrStdin(), out, query, st.Results)
		})
	},
}

// reviewResults asks whether to approve, edit, or skip the results.
// Edited results are read up to a blank line.
func reviewResults(ctx context.Context, svc *workflow.ProductService, in io.Reader, out io.Writer, query, results string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "[a]pprove, [e]dit, [s]kip? ")
	if !scanner.Scan() {
		return scanner.Err()
	}

	var (
		status string
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "a", "approve":
		status, err = svc.Approve(ctx, query, results)
	case "e", "edit":
		fmt.Fprintln(out, "Enter the corrected results, then an empty line:")
		var lines []string
		for scanner.Scan() && scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
		if len(lines) == 0 {
			fmt.Fprintln(out, "Nothing entered, skipped.")
			return scanner.Err()
		}
		status, err = svc.Edit(ctx, query, strings.Join(lines, "\n"))
	default:
		fmt.Fprintln(out, "Skipped.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, status)
	return nil
}

var approveCmd = &cobra.Command{
	Use:   "approve QUERY RESULTS",
	Short: "Remember results for a query as approved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProducts(func(svc *workflow.ProductService) error {
			status, err := svc.Approve(cmd.Context(), args[0], unescape(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit QUERY RESULTS",
	Short: "Remember corrected results for a query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProducts(func(svc *workflow.ProductService) error {
			status, err := svc.Edit(cmd.Context(), args[0], unescape(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "List remembered query results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProducts(func(svc *workflow.ProductService) error {
			listing, err := svc.Memory(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), listing)
			return nil
		})
	},
}

// unescape turns literal \n sequences typed on the command line into
// newlines.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func init() {
	searchCmd.Flags().Bool("review", false, "Approve or edit fresh results interactively")
	rootCmd.AddCommand(searchCmd, approveCmd, editCmd, memoryCmd)
}
