package workflow

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/agent"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
	"github.com/dshills/stategraph/search"
)

// AssistantState is a conversation.
type AssistantState struct {
	Messages []model.Message `json:"messages"`
}

// Fields implements graph.FieldReporter.
func (s AssistantState) Fields() []string {
	if len(s.Messages) == 0 {
		return nil
	}
	return []string{"messages"}
}

// Has implements graph.FieldLookup.
func (s AssistantState) Has(field string) bool {
	return field == "messages" && len(s.Messages) > 0
}

// AppendMessages is the assistant reducer: deltas are appended.
func AppendMessages(prev, delta AssistantState) AssistantState {
	msgs := make([]model.Message, 0, len(prev.Messages)+len(delta.Messages))
	msgs = append(msgs, prev.Messages...)
	msgs = append(msgs, delta.Messages...)
	return AssistantState{Messages: msgs}
}

// LastAssistantText returns the newest assistant message's text.
func LastAssistantText(s AssistantState) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m.Role == model.RoleAssistant && m.Content != "" {
			return m.Content
		}
	}
	return ""
}

// AssistantGraph builds a single "agent" node that answers the
// conversation with a's tools. Model failures become an apology message
// instead of failing the run.
func AssistantGraph(a *agent.Agent) (*graph.Compiled[AssistantState], error) {
	g := graph.NewGraph(AppendMessages)

	node := agent.Node(a,
		func(s AssistantState) []model.Message { return s.Messages },
		func(s AssistantState, r agent.Result) AssistantState { return AssistantState{Messages: r.Turn} },
		agent.Degrade(func(s AssistantState, err error) AssistantState {
			return AssistantState{Messages: []model.Message{model.Assistant("Sorry, I couldn't reach the model: " + err.Error())}}
		}),
	)
	if err := g.AddNode("agent", node, graph.Reads("messages"), graph.Writes("messages")); err != nil {
		return nil, err
	}
	if err := g.SetEntry("agent"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("agent", graph.End); err != nil {
		return nil, err
	}
	return g.Compile()
}

// HouseSimilarityThreshold drops house-price hits below this similarity.
const HouseSimilarityThreshold = 0.5

// HousePriceTool searches a house price index and reports the relevant
// listings with their similarity.
func HousePriceTool(index search.Searcher) tool.Tool {
	return tool.NewFunc("search_house_prices", "Search house prices database using semantic similarity",
		[]tool.Param{{Name: "query", Description: "What to look for, e.g. 3 bedroom house in Austin", Required: true}},
		func(ctx context.Context, args tool.Arguments) (string, error) {
			hits, err := index.Search(ctx, args["query"], 10)
			if err != nil {
				return "", err
			}
			return search.Format(search.Filter(hits, HouseSimilarityThreshold)), nil
		})
}

//go:embed data/products.yaml
var productsYAML []byte

//go:embed data/houses.yaml
var housesYAML []byte

// SampleProducts returns the bundled product catalog.
func SampleProducts() (*search.Index, error) {
	return search.LoadIndex(bytes.NewReader(productsYAML))
}

// SampleHouses returns the bundled house price listings.
func SampleHouses() (*search.Index, error) {
	return search.LoadIndex(bytes.NewReader(housesYAML))
}
