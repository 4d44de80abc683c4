package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/agent"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
	"github.com/dshills/stategraph/stream"
	"github.com/dshills/stategraph/workflow"
)

const (
	housePrompt  = "You are a real estate assistant. Use the search_house_prices tool to look up listings before quoting prices."
	cryptoPrompt = "Use the MCP tool to fetch cryptocurrency prices when asked."
)

// assistant answers conversation turns with a tool-calling agent graph.
type assistant struct {
	engine  *graph.Engine[workflow.AssistantState]
	history workflow.AssistantState
}

func (a *application) newAssistant(tools *tool.Registry, system string) (*assistant, error) {
	m, err := newChatModel(a.cfg)
	if err != nil {
		return nil, err
	}
	ag, err := agent.New(m, tools, a.agentOptions(system)...)
	if err != nil {
		return nil, err
	}
	compiled, err := workflow.AssistantGraph(ag)
	if err != nil {
		return nil, err
	}
	engine, err := graph.New(compiled, a.engineOptions()...)
	if err != nil {
		return nil, err
	}
	return &assistant{engine: engine}, nil
}

// ask appends question to the conversation and streams the answer to w.
func (as *assistant) ask(ctx context.Context, w io.Writer, question string) error {
	initial := workflow.AppendMessages(as.history, workflow.AssistantState{
		Messages: []model.Message{model.User(question)},
	})

	var final workflow.AssistantState
	var steps iter.Seq2[graph.Step[workflow.AssistantState], error] = func(yield func(graph.Step[workflow.AssistantState], error) bool) {
		for step, err := range as.engine.Stream(ctx, "", initial) {
			if err == nil {
				final = step.State
			}
			if !yield(step, err) {
				return
			}
		}
	}

	for chunk, err := range stream.Deltas(steps, workflow.LastAssistantText) {
		if err != nil {
			return err
		}
		if chunk.Restarted {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, chunk.Text)
	}
	fmt.Fprintln(w)
	as.history = final
	return nil
}

// converse reads questions from in until EOF or "exit".
func (as *assistant) converse(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		fmt.Fprint(out, "Assistant: ")
		if err := as.ask(ctx, out, question); err != nil {
			return err
		}
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat [QUESTION]",
	Short: "Ask the house price assistant",
	Long: `Starts a conversation with an assistant that searches the bundled house
price listings. With a QUESTION it answers once and exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		houses, err := workflow.SampleHouses()
		if err != nil {
			return err
		}
		tools, err := tool.NewRegistry(workflow.HousePriceTool(houses))
		if err != nil {
			return err
		}
		as, err := app.newAssistant(tools, housePrompt)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			return as.ask(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
		}
		return as.converse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var cryptoCmd = &cobra.Command{
	Use:   "crypto [QUESTION]",
	Short: "Ask for cryptocurrency prices through an MCP server",
	Long: `Launches the configured MCP server over stdio, offers its tools to an
assistant, and answers QUESTION (by default the price of bitcoin in INR).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := app.cfg.MCP
		flag, _ := cmd.Flags().GetString("server")
		if fields := strings.Fields(flag); len(fields) > 0 {
			server.Command, server.Args = fields[0], fields[1:]
		}
		if server.Command == "" {
			return fmt.Errorf("no MCP server configured: set mcp.command or pass --server")
		}

		session, err := tool.DialMCP(cmd.Context(), server.Command, server.Environ(), server.Args...)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		mcpTools, err := session.Tools(cmd.Context())
		if err != nil {
			return err
		}
		tools, err := tool.NewRegistry()
		if err != nil {
			return err
		}
		for _, t := range mcpTools {
			if err := tools.Register(t); err != nil {
				return err
			}
		}

		as, err := app.newAssistant(tools, cryptoPrompt)
		if err != nil {
			return err
		}
		question := "Get the price of bitcoin in INR."
		if len(args) > 0 {
			question = strings.Join(args, " ")
		}
		return as.ask(cmd.Context(), cmd.OutOrStdout(), question)
	},
}

func init() {
	cryptoCmd.Flags().String("server", "", "MCP server command line, overriding mcp.command")
	rootCmd.AddCommand(chatCmd, cryptoCmd)
}
