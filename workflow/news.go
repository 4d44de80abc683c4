package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stategraph/fetch"
	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
)

// NewsState is the news summarizer's record.
type NewsState struct {
	Topic          string `json:"topic"`
	Headlines      string `json:"headlines"`
	Summary        string `json:"summary"`
	Sentiment      string `json:"sentiment"`
	SentimentLabel string `json:"sentiment_label"`
	FinalReport    string `json:"final_report"`
}

func (s NewsState) fields() fieldSet {
	return fieldSet{
		"topic":           s.Topic != "",
		"headlines":       s.Headlines != "",
		"summary":         s.Summary != "",
		"sentiment":       s.Sentiment != "",
		"sentiment_label": s.SentimentLabel != "",
		"final_report":    s.FinalReport != "",
	}
}

// Fields implements graph.FieldReporter.
func (s NewsState) Fields() []string { return s.fields().list() }

// Has implements graph.FieldLookup.
func (s NewsState) Has(field string) bool { return s.fields()[field] }

// MergeNews is the news summarizer's reducer.
func MergeNews(prev, delta NewsState) NewsState {
	return NewsState{
		Topic:          pick(prev.Topic, delta.Topic),
		Headlines:      pick(prev.Headlines, delta.Headlines),
		Summary:        pick(prev.Summary, delta.Summary),
		Sentiment:      pick(prev.Sentiment, delta.Sentiment),
		SentimentLabel: pick(prev.SentimentLabel, delta.SentimentLabel),
		FinalReport:    pick(prev.FinalReport, delta.FinalReport),
	}
}

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
)

// SentimentBranch routes on the sentiment label.
var SentimentBranch = graph.NewBranch("sentiment_label", func(s NewsState) string {
	if s.SentimentLabel == Positive {
		return Positive
	}
	return Negative
}, Positive, Negative)

// NewsGraph builds
//
//	fetch_news -> summarize -> analyze_sentiment -> {investor_summary | general_summary} -> End
//
// A failed fetch or model call is written into the state as an error
// message and the run continues.
func NewsGraph(news fetch.Fetcher, m model.ChatModel) (*graph.Compiled[NewsState], error) {
	g := graph.NewGraph(MergeNews)

	nodes := []struct {
		name   string
		fn     graph.NodeFunc[NewsState]
		reads  []string
		writes []string
	}{
		{"fetch_news", fetchNews(news), []string{"topic"}, []string{"headlines"}},
		{"summarize", summarize(m), []string{"topic", "headlines"}, []string{"summary"}},
		{"analyze_sentiment", analyzeSentiment(m), []string{"summary"}, []string{"sentiment", "sentiment_label"}},
		{"investor_summary", investorSummary(m), []string{"summary"}, []string{"final_report"}},
		{"general_summary", generalSummary(m), []string{"summary"}, []string{"final_report"}},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, n.fn, graph.Reads(n.reads...), graph.Writes(n.writes...)); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntry("fetch_news"); err != nil {
		return nil, err
	}
	for _, e := range [][2]string{
		{"fetch_news", "summarize"},
		{"summarize", "analyze_sentiment"},
		{"investor_summary", graph.End},
		{"general_summary", graph.End},
	} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	if err := g.AddConditionalEdge("analyze_sentiment", SentimentBranch, map[string]string{
		Positive: "investor_summary",
		Negative: "general_summary",
	}); err != nil {
		return nil, err
	}
	return g.Compile()
}

func fetchNews(news fetch.Fetcher) graph.NodeFunc[NewsState] {
	return func(ctx context.Context, s NewsState) graph.NodeResult[NewsState] {
		headlines, err := news.Fetch(ctx, s.Topic)
		switch {
		case err != nil:
			headlines = "Error fetching news: " + err.Error()
		case strings.TrimSpace(headlines) == "":
			headlines = fmt.Sprintf("No headlines found for %s", s.Topic)
		}
		return graph.Partial(NewsState{Headlines: headlines})
	}
}

func summarize(m model.ChatModel) graph.NodeFunc[NewsState] {
	return func(ctx context.Context, s NewsState) graph.NodeResult[NewsState] {
		prompt := fmt.Sprintf("Summarize the following news headlines about %s in 5 concise bullet points:\n%s",
			s.Topic, s.Headlines)
		return graph.Partial(NewsState{Summary: invokeOr(ctx, m, prompt, "Error summarizing news: ")})
	}
}

func analyzeSentiment(m model.ChatModel) graph.NodeFunc[NewsState] {
	return func(ctx context.Context, s NewsState) graph.NodeResult[NewsState] {
		prompt := "Determine the overall sentiment (Positive, Neutral, or Negative)\nof these summarized news points:\n\n" + s.Summary
		text := strings.ToLower(invokeOr(ctx, m, prompt, "error analyzing sentiment: "))
		return graph.Partial(NewsState{Sentiment: text, SentimentLabel: SentimentLabel(text)})
	}
}

// SentimentLabel maps a model's sentiment answer to Positive or Negative.
// Anything not mentioning "positive" counts as negative.
func SentimentLabel(answer string) string {
	if strings.Contains(strings.ToLower(answer), Positive) {
		return Positive
	}
	return Negative
}

func investorSummary(m model.ChatModel) graph.NodeFunc[NewsState] {
	return func(ctx context.Context, s NewsState) graph.NodeResult[NewsState] {
		prompt := "Based on this summary:\n" + s.Summary + "\n\n" +
			"Write a short investor-oriented insight:\n- Focus on risks and opportunities\n- Predict possible market impact"
		return graph.Partial(NewsState{FinalReport: invokeOr(ctx, m, prompt, "Error writing report: ")})
	}
}

func generalSummary(m model.ChatModel) graph.NodeFunc[NewsState] {
	return func(ctx context.Context, s NewsState) graph.NodeResult[NewsState] {
		prompt := "Based on this summary:\n" + s.Summary + "\n\n" +
			"Write a 5-sentence public news digest in a neutral, friendly tone."
		return graph.Partial(NewsState{FinalReport: invokeOr(ctx, m, prompt, "Error writing report: ")})
	}
}
