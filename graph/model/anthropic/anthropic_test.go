package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/dshills/stategraph/graph/model"
)

type mockMessenger struct {
	reply string
	err   error
	sent  []anthropic.MessageNewParams
}

func (m *mockMessenger) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	m.sent = append(m.sent, params)
	if m.err != nil {
		return nil, m.err
	}
	var msg anthropic.Message
	if err := json.Unmarshal([]byte(m.reply), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func newTestModel(m messenger) *ChatModel {
	return &ChatModel{modelName: DefaultModel, maxTokens: 256, client: m}
}

func TestChatModel_Chat(t *testing.T) {
	t.Run("text reply", func(t *testing.T) {
		mock := &mockMessenger{reply: `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"Hello"},{"type":"text","text":"there"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`}

		out, err := newTestModel(mock).Chat(context.Background(), []model.Message{model.System("be kind"), model.User("hi")}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if out.Text != "Hello\nthere" {
			t.Errorf("Text = %q", out.Text)
		}
	})

	t.Run("tool use reply", func(t *testing.T) {
		mock := &mockMessenger{reply: `{"id":"msg_2","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"tool_use","id":"toolu_1","name":"search_house_prices","input":{"query":"Austin","limit":2}}],
			"stop_reason":"tool_use","usage":{"input_tokens":3,"output_tokens":2}}`}

		out, err := newTestModel(mock).Chat(context.Background(), []model.Message{model.User("prices?")}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(out.ToolCalls) != 1 {
			t.Fatalf("ToolCalls = %+v", out.ToolCalls)
		}
		call := out.ToolCalls[0]
		if call.ID != "toolu_1" || call.Arguments["query"] != "Austin" || call.Arguments["limit"] != "2" {
			t.Errorf("call = %+v", call)
		}
	})

	t.Run("api failure", func(t *testing.T) {
		_, err := newTestModel(&mockMessenger{err: errors.New("overloaded")}).Chat(context.Background(), []model.Message{model.User("x")}, nil)
		var collab *model.CollaboratorError
		if !errors.As(err, &collab) || collab.Provider != "anthropic" {
			t.Errorf("err = %v", err)
		}
	})
}

func TestBuildParams(t *testing.T) {
	c1 := model.ToolCall{ID: "toolu_1", Name: "echo", Arguments: map[string]string{"x": "a"}}
	c2 := model.ToolCall{ID: "toolu_2", Name: "echo", Arguments: map[string]string{"x": "b"}}
	messages := []model.Message{
		model.System("first"),
		model.System("second"),
		model.User("echo twice"),
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{c1, c2}},
		model.ToolResult(c1, "a"),
		model.ToolResult(c2, "b"),
	}
	tools := []model.ToolSpec{{Name: "echo", Description: "Echo", Schema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"x": map[string]interface{}{"type": "string"}},
	}}}

	params, err := newTestModel(nil).buildParams(messages, tools)
	if err != nil {
		t.Fatal(err)
	}
	if len(params.System) != 1 || params.System[0].Text != "first\n\nsecond" {
		t.Errorf("System = %+v", params.System)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("got %d messages, want user, assistant, grouped tool results", len(params.Messages))
	}
	if got := len(params.Messages[2].Content); got != 2 {
		t.Errorf("tool result turn has %d blocks, want 2", got)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"tool_use_id":"toolu_2"`, `"type":"tool_use"`, `"name":"echo"`, `"properties":{"x"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("request missing %s:\n%s", want, raw)
		}
	}
}
