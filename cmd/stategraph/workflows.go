package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/fetch"
	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/workflow"
)

var newsCmd = &cobra.Command{
	Use:   "news TOPIC",
	Short: "Summarize today's headlines on a topic",
	Long: `Fetches headlines from NewsAPI, summarizes them, classifies the
sentiment, and writes an investor or general report depending on it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.cfg.Keys.NewsAPI == "" {
			return fmt.Errorf("NEWS_API_KEY is not set")
		}
		m, err := newChatModel(app.cfg)
		if err != nil {
			return err
		}
		compiled, err := workflow.NewsGraph(&fetch.NewsAPI{APIKey: app.cfg.Keys.NewsAPI}, m)
		if err != nil {
			return err
		}
		engine, err := graph.New(compiled, app.engineOptions()...)
		if err != nil {
			return err
		}

		topic := strings.Join(args, " ")
		var final workflow.NewsState
		for step, err := range engine.Stream(cmd.Context(), "", workflow.NewsState{Topic: topic}) {
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ %s\n", step.Node)
			final = step.State
		}

		return render(cmd.OutOrStdout(), fmt.Sprintf(
			"# News: %s\n\n## Headlines\n\n%s\n\n## Summary\n\n%s\n\n**Sentiment:** %s\n\n## Report\n\n%s\n",
			final.Topic, final.Headlines, final.Summary, final.SentimentLabel, final.FinalReport))
	},
}

var codeReviewCmd = &cobra.Command{
	Use:   "codereview REPO_URL",
	Short: "Review the source files of a GitHub repository",
	Long: `Downloads the repository's files with the configured extension, lists
security issues, suggests improvements, and writes a final review.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newChatModel(app.cfg)
		if err != nil {
			return err
		}
		code := &fetch.GitHubCode{Token: app.cfg.Keys.GitHub, Extension: app.cfg.CodeExtension}
		compiled, err := workflow.CodeReviewGraph(code, m)
		if err != nil {
			return err
		}
		engine, err := graph.New(compiled, app.engineOptions()...)
		if err != nil {
			return err
		}

		final, err := engine.Run(cmd.Context(), "", workflow.CodeReviewState{CodeURL: args[0]})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), fmt.Sprintf(
			"# Code review: %s\n\n## Security issues\n\n%s\n\n## Suggestions\n\n%s\n\n## Final report\n\n%s\n",
			final.CodeURL, final.SecurityIssues, final.Suggestions, final.FinalReport))
	},
}

func init() {
	rootCmd.AddCommand(newsCmd, codeReviewCmd)
}
