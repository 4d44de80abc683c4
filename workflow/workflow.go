// Package workflow assembles the stategraph demo workflows: a branching
// news summarizer, a linear code review, a memory-guarded product search,
// and a tool-calling assistant.
//
// Each workflow uses its own state record. Zero-valued fields of a partial
// state mean "not written", so a node cannot clear a field.
package workflow

import (
	"context"
	"sort"
	"strings"

	"github.com/dshills/stategraph/graph/model"
)

// fieldSet backs FieldReporter and FieldLookup for the workflow records:
// a field is present when its value is non-empty.
type fieldSet map[string]bool

func (f fieldSet) list() []string {
	out := make([]string, 0, len(f))
	for name, set := range f {
		if set {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func pick(prev, delta string) string {
	if delta != "" {
		return delta
	}
	return prev
}

// invokeOr asks m and returns its trimmed reply, or prefix plus the error
// when the model fails or answers blank. The result is never empty, so the
// failure flows into state for downstream nodes.
func invokeOr(ctx context.Context, m model.ChatModel, prompt, prefix string) string {
	text, err := model.Invoke(ctx, m, prompt)
	if err != nil {
		return prefix + err.Error()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return prefix + model.ErrEmptyResponse.Error()
	}
	return text
}
