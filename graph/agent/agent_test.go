package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
)

func echoRegistry(t *testing.T) (*tool.Registry, *tool.MockTool) {
	t.Helper()
	echo := &tool.MockTool{
		ToolName: "echo",
		Spec:     &model.ToolSpec{Name: "echo", Schema: tool.Schema([]tool.Param{{Name: "x", Required: true}})},
		Handler:  func(args tool.Arguments) (string, error) { return args["x"], nil },
	}
	r, err := tool.NewRegistry(echo)
	if err != nil {
		t.Fatal(err)
	}
	return r, echo
}

// echoModel requests echo(x) once, then answers with the last tool result.
func echoModel(x string) *model.MockChatModel {
	return &model.MockChatModel{
		Handler: func(msgs []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
			last := msgs[len(msgs)-1]
			if last.Role == model.RoleTool {
				return model.ChatOut{Text: last.Content}, nil
			}
			return model.ChatOut{ToolCalls: []model.ToolCall{{ID: "call_1", Name: "echo", Arguments: map[string]string{"x": x}}}}, nil
		},
	}
}

func TestAgent_Run(t *testing.T) {
	reg, echo := echoRegistry(t)
	m := echoModel("hi")
	a, err := New(m, reg, WithSystemPrompt("be brief"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := a.Run(context.Background(), []model.Message{model.User("echo hi")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hi" {
		t.Errorf("Text = %q, want hi", res.Text)
	}
	if echo.CallCount() != 1 || echo.Calls[0]["x"] != "hi" {
		t.Errorf("echo calls = %+v", echo.Calls)
	}
	if len(res.Calls) != 1 || res.Calls[0].Result != "hi" {
		t.Errorf("Calls = %+v", res.Calls)
	}

	// system, user, assistant(tool call), tool, assistant(final)
	roles := make([]string, len(res.Messages))
	for i, msg := range res.Messages {
		roles[i] = msg.Role
	}
	want := []string{model.RoleSystem, model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Errorf("roles = %v, want %v", roles, want)
	}
	if len(res.Turn) != 3 || res.Turn[2].Content != "hi" {
		t.Errorf("Turn = %+v", res.Turn)
	}
	if res.Messages[3].ToolCallID != "call_1" {
		t.Errorf("tool message not linked to call: %+v", res.Messages[3])
	}

	if got := m.Calls[0].Tools; len(got) != 1 || got[0].Name != "echo" {
		t.Errorf("tool specs offered = %+v", got)
	}
}

func TestAgent_NoToolCalls(t *testing.T) {
	m := &model.MockChatModel{Responses: []model.ChatOut{{Text: "direct"}}}
	a, _ := New(m, nil)
	res, err := a.Run(context.Background(), []model.Message{model.User("q")})
	if err != nil || res.Text != "direct" || len(res.Calls) != 0 {
		t.Errorf("Run = %+v, %v", res, err)
	}
}

func TestAgent_ToolLoopExceeded(t *testing.T) {
	reg, echo := echoRegistry(t)
	loop := &model.MockChatModel{Responses: []model.ChatOut{
		{ToolCalls: []model.ToolCall{{ID: "c", Name: "echo", Arguments: map[string]string{"x": "again"}}}},
	}}
	a, _ := New(loop, reg, WithMaxRounds(3))

	_, err := a.Run(context.Background(), []model.Message{model.User("loop")})
	if !errors.Is(err, ErrToolLoopExceeded) {
		t.Fatalf("err = %v, want ErrToolLoopExceeded", err)
	}
	if echo.CallCount() != 3 {
		t.Errorf("tool executed %d times, want 3", echo.CallCount())
	}
	if loop.CallCount() != 4 {
		t.Errorf("model called %d times, want 4", loop.CallCount())
	}
}

func TestAgent_ToolFailuresReachModel(t *testing.T) {
	failing := &tool.MockTool{ToolName: "flaky", Err: errors.New("rate limited")}
	reg, _ := tool.NewRegistry(failing)

	var seen []string
	m := &model.MockChatModel{Handler: func(msgs []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
		last := msgs[len(msgs)-1]
		if last.Role == model.RoleTool {
			seen = append(seen, last.Content)
			if len(seen) == 2 {
				return model.ChatOut{Text: "gave up"}, nil
			}
			return model.ChatOut{ToolCalls: []model.ToolCall{{ID: "2", Name: "missing"}}}, nil
		}
		return model.ChatOut{ToolCalls: []model.ToolCall{{ID: "1", Name: "flaky"}}}, nil
	}}

	buf := emit.NewBufferedEmitter()
	registry := prometheus.NewRegistry()
	metrics := graph.NewPrometheusMetrics(registry)
	a, _ := New(m, reg, WithEmitter(buf), WithMetrics(metrics))

	ctx := graph.WithRunInfo(context.Background(), graph.RunInfo{RunID: "r1", NodeID: "agent", Step: 1})
	res, err := a.Run(ctx, []model.Message{model.User("q")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "gave up" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(seen) != 2 || !strings.Contains(seen[0], "rate limited") || !strings.Contains(seen[1], "unknown tool") {
		t.Errorf("tool results seen by model = %q", seen)
	}

	events := buf.Filter("r1", emit.HistoryFilter{Msg: emit.MsgToolCall})
	if len(events) != 2 || events[0].NodeID != "agent" || events[1].Meta["status"] != "unknown" {
		t.Errorf("tool_call events = %+v", events)
	}
	expected := `
# HELP stategraph_tool_calls_total Tool invocations requested by tool-calling agents
# TYPE stategraph_tool_calls_total counter
stategraph_tool_calls_total{status="error",tool="flaky"} 1
stategraph_tool_calls_total{status="unknown",tool="missing"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "stategraph_tool_calls_total"); err != nil {
		t.Error(err)
	}
}

func TestAgent_ModelFailure(t *testing.T) {
	m := &model.MockChatModel{Err: errors.New("503")}
	a, _ := New(m, nil)
	_, err := a.Run(context.Background(), []model.Message{model.User("q")})
	var ce *model.CollaboratorError
	if !errors.As(err, &ce) {
		t.Errorf("err = %T %v, want CollaboratorError", err, err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("nil model accepted")
	}
	if _, err := New(&model.MockChatModel{}, nil, WithMaxRounds(0)); err == nil {
		t.Error("zero rounds accepted")
	}
}
