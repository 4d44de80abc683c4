// Package agent implements the tool-calling sub-agent: a chat model that may
// answer with tool requests, which are executed against a registry and fed
// back until the model produces a final answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/model"
	"github.com/dshills/stategraph/graph/tool"
)

// DefaultMaxRounds bounds tool-call rounds when no limit is configured.
const DefaultMaxRounds = 10

// ErrToolLoopExceeded is returned when the model keeps requesting tools past
// the round limit.
var ErrToolLoopExceeded = errors.New("tool loop exceeded")

// Agent runs the call-and-resume protocol between a chat model and a tool
// registry. An Agent holds no per-run state and may be shared.
type Agent struct {
	model     model.ChatModel
	tools     *tool.Registry
	maxRounds int
	system    string
	emitter   emit.Emitter
	metrics   *graph.PrometheusMetrics
	logger    *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent) error

// WithMaxRounds sets how many tool-requesting replies the model may give
// before the run fails with ErrToolLoopExceeded.
func WithMaxRounds(n int) Option {
	return func(a *Agent) error {
		if n < 1 {
			return errors.New("max rounds must be >= 1")
		}
		a.maxRounds = n
		return nil
	}
}

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) error {
		a.system = prompt
		return nil
	}
}

// WithEmitter reports each tool call as a tool_call event.
func WithEmitter(e emit.Emitter) Option {
	return func(a *Agent) error {
		a.emitter = e
		return nil
	}
}

// WithMetrics counts tool calls.
func WithMetrics(m *graph.PrometheusMetrics) Option {
	return func(a *Agent) error {
		a.metrics = m
		return nil
	}
}

// WithLogger sets the logger for tool-call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) error {
		a.logger = l
		return nil
	}
}

// New creates an Agent. A nil registry means the model is offered no tools.
func New(m model.ChatModel, tools *tool.Registry, opts ...Option) (*Agent, error) {
	if m == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		tools = &tool.Registry{}
	}
	a := &Agent{
		model:     m,
		tools:     tools,
		maxRounds: DefaultMaxRounds,
		emitter:   emit.NewNullEmitter(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Result is the outcome of a completed protocol run.
type Result struct {
	// Text is the model's final answer.
	Text string

	// Messages is the whole conversation, ending with the final answer.
	Messages []model.Message

	// Turn is the suffix of Messages added during the run: tool requests,
	// tool results, and the final answer.
	Turn []model.Message

	// Calls lists every executed tool call in order.
	Calls []Call
}

// Call is one executed tool call.
type Call struct {
	model.ToolCall
	Result string
	Err    error
}

// Run sends messages and the registry's tool specs to the model, executes
// requested tool calls, appends their results, and repeats until the model
// answers without tool calls.
//
// Unknown tools and tool failures are reported to the model as tool results
// so it can recover. Model failures return a *model.CollaboratorError.
// A model that still requests tools after the round limit fails the run
// with ErrToolLoopExceeded.
func (a *Agent) Run(ctx context.Context, messages []model.Message) (Result, error) {
	conv := make([]model.Message, 0, len(messages)+1)
	if a.system != "" {
		conv = append(conv, model.System(a.system))
	}
	conv = append(conv, messages...)
	start := len(conv)

	specs := a.tools.Specs()
	var res Result

	for round := 0; ; round++ {
		out, err := a.model.Chat(ctx, conv, specs)
		if err != nil {
			return Result{}, collaboratorError(err)
		}

		if len(out.ToolCalls) == 0 {
			conv = append(conv, model.Assistant(out.Text))
			res.Text = out.Text
			res.Messages = conv
			res.Turn = conv[start:]
			return res, nil
		}

		if round >= a.maxRounds {
			return Result{}, fmt.Errorf("%w: model still requesting tools after %d rounds", ErrToolLoopExceeded, a.maxRounds)
		}

		conv = append(conv, model.Message{Role: model.RoleAssistant, Content: out.Text, ToolCalls: out.ToolCalls})
		for _, call := range out.ToolCalls {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			result, callErr := a.tools.Call(ctx, call)
			a.record(ctx, call, callErr)

			content := result
			if callErr != nil {
				content = "Error: " + callErr.Error()
			}
			conv = append(conv, model.ToolResult(call, content))
			res.Calls = append(res.Calls, Call{ToolCall: call, Result: result, Err: callErr})
		}
	}
}

func (a *Agent) record(ctx context.Context, call model.ToolCall, err error) {
	status := "success"
	if errors.Is(err, tool.ErrUnknownTool) {
		status = "unknown"
	} else if err != nil {
		status = "error"
	}
	a.metrics.RecordToolCall(call.Name, status)
	a.logger.Debug("tool call", "tool", call.Name, "status", status)

	info, _ := graph.RunInfoFromContext(ctx)
	meta := map[string]interface{}{"tool": call.Name, "call_id": call.ID, "status": status}
	if err != nil {
		meta["error"] = err.Error()
	}
	a.emitter.Emit(emit.Event{RunID: info.RunID, Step: info.Step, NodeID: info.NodeID, Msg: emit.MsgToolCall, Meta: meta})
}

func collaboratorError(err error) error {
	var ce *model.CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return &model.CollaboratorError{Op: "chat", Err: err}
}
