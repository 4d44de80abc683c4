package workflow

import (
	"context"
	"fmt"

	"github.com/dshills/stategraph/fetch"
	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/model"
)

// CodeReviewState is the code review record.
type CodeReviewState struct {
	CodeURL        string `json:"code_url"`
	CodeContent    string `json:"code_content"`
	SecurityIssues string `json:"security_issues"`
	Suggestions    string `json:"suggestions"`
	FinalReport    string `json:"final_report"`
}

func (s CodeReviewState) fields() fieldSet {
	return fieldSet{
		"code_url":        s.CodeURL != "",
		"code_content":    s.CodeContent != "",
		"security_issues": s.SecurityIssues != "",
		"suggestions":     s.Suggestions != "",
		"final_report":    s.FinalReport != "",
	}
}

// Fields implements graph.FieldReporter.
func (s CodeReviewState) Fields() []string { return s.fields().list() }

// Has implements graph.FieldLookup.
func (s CodeReviewState) Has(field string) bool { return s.fields()[field] }

// MergeCodeReview is the code review reducer.
func MergeCodeReview(prev, delta CodeReviewState) CodeReviewState {
	return CodeReviewState{
		CodeURL:        pick(prev.CodeURL, delta.CodeURL),
		CodeContent:    pick(prev.CodeContent, delta.CodeContent),
		SecurityIssues: pick(prev.SecurityIssues, delta.SecurityIssues),
		Suggestions:    pick(prev.Suggestions, delta.Suggestions),
		FinalReport:    pick(prev.FinalReport, delta.FinalReport),
	}
}

// CodeReviewGraph builds review -> suggest -> finalize -> End. The review
// node fetches the repository's code with code and asks m for security
// issues; a failed fetch is reviewed as its error message.
func CodeReviewGraph(code fetch.Fetcher, m model.ChatModel) (*graph.Compiled[CodeReviewState], error) {
	g := graph.NewGraph(MergeCodeReview)

	if err := g.AddNode("review", review(code, m),
		graph.Reads("code_url"), graph.Writes("code_content", "security_issues")); err != nil {
		return nil, err
	}
	if err := g.AddNode("suggest", suggest(m),
		graph.Reads("security_issues"), graph.Writes("suggestions")); err != nil {
		return nil, err
	}
	if err := g.AddNode("finalize", finalize(m),
		graph.Reads("code_url", "security_issues", "suggestions"), graph.Writes("final_report")); err != nil {
		return nil, err
	}

	if err := g.SetEntry("review"); err != nil {
		return nil, err
	}
	for _, e := range [][2]string{{"review", "suggest"}, {"suggest", "finalize"}, {"finalize", graph.End}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	return g.Compile()
}

func review(code fetch.Fetcher, m model.ChatModel) graph.NodeFunc[CodeReviewState] {
	return func(ctx context.Context, s CodeReviewState) graph.NodeResult[CodeReviewState] {
		content, err := code.Fetch(ctx, s.CodeURL)
		if err != nil {
			content = "Error fetching code: " + err.Error()
		}
		prompt := "You are a senior application security analyst.\n" +
			"Analyze the following code for security vulnerabilities.\n\n" +
			"Provide:\n" +
			"- The vulnerable code snippet or line\n" +
			"- Type of vulnerability (e.g., SQL Injection, XSS, Insecure Deserialization)\n" +
			"- Severity (High/Medium/Low)\n" +
			"- Why it's a problem\n" +
			"- How to fix it briefly\n\n" +
			"Code to review:\n" + content
		return graph.Partial(CodeReviewState{
			CodeContent:    content,
			SecurityIssues: invokeOr(ctx, m, prompt, "Error reviewing code: "),
		})
	}
}

func suggest(m model.ChatModel) graph.NodeFunc[CodeReviewState] {
	return func(ctx context.Context, s CodeReviewState) graph.NodeResult[CodeReviewState] {
		prompt := "You are a security remediation expert. Based on these security issues, provide specific fixes.\n\n" +
			"Security Issues Found:\n" + s.SecurityIssues + "\n\n" +
			"For each issue, provide:\n- Specific code changes needed\n- Best practices to follow\n- Example of secure code\n\n" +
			"Be practical and specific."
		return graph.Partial(CodeReviewState{Suggestions: invokeOr(ctx, m, prompt, "Error generating suggestions: ")})
	}
}

func finalize(m model.ChatModel) graph.NodeFunc[CodeReviewState] {
	return func(ctx context.Context, s CodeReviewState) graph.NodeResult[CodeReviewState] {
		prompt := fmt.Sprintf("Create a final executive security report.\n\nRepository: %s\n\n"+
			"Security Issues:\n%s\n\nSuggested Fixes:\n%s\n\n"+
			"Create a comprehensive report with:\n1. Executive Summary\n2. Critical Vulnerabilities (prioritized)\n"+
			"3. Recommended Actions\n4. Implementation Roadmap\n\n"+
			"Format as a professional security assessment report.",
			s.CodeURL, s.SecurityIssues, s.Suggestions)
		return graph.Partial(CodeReviewState{FinalReport: invokeOr(ctx, m, prompt, "Error writing report: ")})
	}
}
