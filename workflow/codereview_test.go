package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stategraph/fetch"
	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
)

func TestCodeReviewGraph(t *testing.T) {
	code := fetch.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		if url != "https://github.com/acme/app" {
			return "", errors.New("unexpected url")
		}
		return "// Db.java\nString q = \"SELECT * FROM users WHERE id=\" + id;\n", nil
	})
	m := promptModel(map[string]string{
		"security analyst":          "SQL injection in Db.java (High)",
		"remediation expert":        "Use PreparedStatement",
		"executive security report": "# Report",
	})

	compiled, err := CodeReviewGraph(code, m)
	if err != nil {
		t.Fatal(err)
	}
	buf := emit.NewBufferedEmitter()
	e, err := graph.New(compiled, graph.WithEmitter(buf))
	if err != nil {
		t.Fatal(err)
	}

	final, err := e.Run(context.Background(), "review-1", CodeReviewState{CodeURL: "https://github.com/acme/app"})
	if err != nil {
		t.Fatal(err)
	}
	if final.SecurityIssues != "SQL injection in Db.java (High)" || final.Suggestions != "Use PreparedStatement" || final.FinalReport != "# Report" {
		t.Errorf("final = %+v", final)
	}
	if !strings.Contains(final.CodeContent, "Db.java") {
		t.Errorf("code content = %q", final.CodeContent)
	}

	var order []string
	for _, ev := range buf.Filter("review-1", emit.HistoryFilter{Msg: emit.MsgNodeStart}) {
		order = append(order, ev.NodeID)
	}
	if strings.Join(order, ",") != "review,suggest,finalize" {
		t.Errorf("order = %v", order)
	}

	finalPrompt := m.Calls[2].Messages[0].Content
	for _, want := range []string{"https://github.com/acme/app", "SQL injection", "PreparedStatement"} {
		if !strings.Contains(finalPrompt, want) {
			t.Errorf("finalize prompt missing %q", want)
		}
	}
}

func TestCodeReviewGraph_FetchError(t *testing.T) {
	code := fetch.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		return "", errors.New("404")
	})
	m := promptModel(map[string]string{
		"security analyst":          "nothing to review",
		"remediation expert":        "none",
		"executive security report": "empty report",
	})
	compiled, _ := CodeReviewGraph(code, m)
	e, _ := graph.New(compiled)

	final, err := e.Run(context.Background(), "", CodeReviewState{CodeURL: "https://github.com/acme/app"})
	if err != nil {
		t.Fatal(err)
	}
	if final.CodeContent != "Error fetching code: 404" || final.FinalReport != "empty report" {
		t.Errorf("final = %+v", final)
	}
}

func TestCodeReviewGraph_BlankReplyDegrades(t *testing.T) {
	code := fetch.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		return "package main", nil
	})
	m := promptModel(map[string]string{
		"security analyst":          "  \n\t",
		"remediation expert":        " ",
		"executive security report": "# Report",
	})
	compiled, _ := CodeReviewGraph(code, m)
	e, _ := graph.New(compiled)

	final, err := e.Run(context.Background(), "", CodeReviewState{CodeURL: "https://github.com/acme/app"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(final.SecurityIssues, "Error reviewing code: ") ||
		!strings.HasPrefix(final.Suggestions, "Error generating suggestions: ") {
		t.Errorf("final = %+v", final)
	}
	if final.FinalReport != "# Report" {
		t.Errorf("report = %q", final.FinalReport)
	}
}

func TestCodeReviewGraph_MissingURL(t *testing.T) {
	compiled, _ := CodeReviewGraph(fetch.FetcherFunc(nil), promptModel(nil))
	e, _ := graph.New(compiled)

	_, err := e.Run(context.Background(), "", CodeReviewState{})
	var nodeErr *graph.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.Code != graph.CodeMissingField || nodeErr.NodeID != "review" {
		t.Errorf("err = %v, want MISSING_FIELD at review", err)
	}
}
