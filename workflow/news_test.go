package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stategraph/fetch"
	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
)

// promptModel answers by matching a phrase in the latest user prompt.
func promptModel(answers map[string]string) *model.MockChatModel {
	return &model.MockChatModel{Handler: func(msgs []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
		prompt := msgs[len(msgs)-1].Content
		for phrase, answer := range answers {
			if strings.Contains(prompt, phrase) {
				return model.ChatOut{Text: answer}, nil
			}
		}
		return model.ChatOut{}, errors.New("unexpected prompt: " + prompt)
	}}
}

func runNews(t *testing.T, f fetch.Fetcher, m model.ChatModel) (NewsState, *graph.Engine[NewsState]) {
	t.Helper()
	compiled, err := NewsGraph(f, m)
	if err != nil {
		t.Fatalf("NewsGraph: %v", err)
	}
	e, err := graph.New(compiled)
	if err != nil {
		t.Fatal(err)
	}
	final, err := e.Run(context.Background(), "", NewsState{Topic: "artificial intelligence"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return final, e
}

func TestNewsGraph_Branches(t *testing.T) {
	headlines := fetch.FetcherFunc(func(ctx context.Context, topic string) (string, error) {
		return "H1\nH2", nil
	})

	tests := []struct {
		sentiment string
		label     string
		report    string
	}{
		{"Positive", Positive, "investor insight"},
		{"Negative", Negative, "public digest"},
		{"Neutral", Negative, "public digest"},
	}
	for _, tt := range tests {
		t.Run(tt.sentiment, func(t *testing.T) {
			m := promptModel(map[string]string{
				"Summarize the following":   "- point",
				"overall sentiment":         tt.sentiment,
				"investor-oriented insight": "investor insight",
				"public news digest":        "public digest",
			})
			final, _ := runNews(t, headlines, m)

			if final.Headlines != "H1\nH2" || final.Summary != "- point" {
				t.Errorf("final = %+v", final)
			}
			if final.SentimentLabel != tt.label || final.FinalReport != tt.report {
				t.Errorf("label = %q report = %q, want %q %q", final.SentimentLabel, final.FinalReport, tt.label, tt.report)
			}
			if !strings.Contains(m.Calls[0].Messages[0].Content, "H1\nH2") {
				t.Error("summarize prompt missing headlines")
			}
		})
	}
}

func TestNewsGraph_FetchFailureDegrades(t *testing.T) {
	broken := fetch.FetcherFunc(func(ctx context.Context, topic string) (string, error) {
		return "", &fetch.FetchError{Source: "newsapi", Query: topic, Err: errors.New("dial tcp: refused")}
	})
	m := promptModel(map[string]string{
		"Summarize the following": "nothing to summarize",
		"overall sentiment":       "neutral",
		"public news digest":      "no news today",
	})

	final, _ := runNews(t, broken, m)
	if !strings.HasPrefix(final.Headlines, "Error fetching news: ") {
		t.Errorf("headlines = %q", final.Headlines)
	}
	if final.FinalReport != "no news today" {
		t.Errorf("report = %q", final.FinalReport)
	}
}

func TestNewsGraph_ModelFailureDegrades(t *testing.T) {
	headlines := fetch.FetcherFunc(func(ctx context.Context, topic string) (string, error) { return "", nil })
	m := &model.MockChatModel{Err: errors.New("quota exceeded")}

	final, _ := runNews(t, headlines, m)
	if final.Headlines != "No headlines found for artificial intelligence" {
		t.Errorf("headlines = %q", final.Headlines)
	}
	if !strings.HasPrefix(final.Summary, "Error summarizing news: ") || final.SentimentLabel != Negative {
		t.Errorf("final = %+v", final)
	}
	if !strings.Contains(final.FinalReport, "quota exceeded") {
		t.Errorf("report = %q", final.FinalReport)
	}
}

func TestNewsGraph_BlankReplyDegrades(t *testing.T) {
	headlines := fetch.FetcherFunc(func(ctx context.Context, topic string) (string, error) {
		return "H1", nil
	})

	t.Run("summary", func(t *testing.T) {
		m := promptModel(map[string]string{
			"Summarize the following": " \n",
			"overall sentiment":       "neutral",
			"public news digest":      "digest",
		})
		final, _ := runNews(t, headlines, m)
		if final.Summary != "Error summarizing news: chat: "+model.ErrEmptyResponse.Error() {
			t.Errorf("summary = %q", final.Summary)
		}
		if final.SentimentLabel != Negative || final.FinalReport != "digest" {
			t.Errorf("final = %+v", final)
		}
	})

	t.Run("sentiment", func(t *testing.T) {
		m := promptModel(map[string]string{
			"Summarize the following": "- point",
			"overall sentiment":       "\t",
			"public news digest":      "digest",
		})
		final, _ := runNews(t, headlines, m)
		if !strings.HasPrefix(final.Sentiment, "error analyzing sentiment: ") || final.SentimentLabel != Negative {
			t.Errorf("sentiment = %q label = %q", final.Sentiment, final.SentimentLabel)
		}
		if final.FinalReport != "digest" {
			t.Errorf("report = %q", final.FinalReport)
		}
	})
}

func TestNewsGraph_Shape(t *testing.T) {
	compiled, err := NewsGraph(fetch.FetcherFunc(nil), &model.MockChatModel{})
	if err != nil {
		t.Fatal(err)
	}
	if compiled.Entry() != "fetch_news" || !compiled.IsConditional("analyze_sentiment") {
		t.Error("unexpected graph shape")
	}
	if got := compiled.Successors("analyze_sentiment"); strings.Join(got, ",") != "general_summary,investor_summary" {
		t.Errorf("successors = %v", got)
	}
}

func TestSentimentLabel(t *testing.T) {
	for answer, want := range map[string]string{
		"Positive":                 Positive,
		"overall POSITIVE outlook": Positive,
		"negative":                 Negative,
		"neutral":                  Negative,
		"":                         Negative,
	} {
		if got := SentimentLabel(answer); got != want {
			t.Errorf("SentimentLabel(%q) = %q, want %q", answer, got, want)
		}
	}
}
