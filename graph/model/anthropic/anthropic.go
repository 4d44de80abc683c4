// Package anthropic adapts the Anthropic Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/stategraph/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-5"

// DefaultMaxTokens bounds each reply.
const DefaultMaxTokens = 4096

// ChatModel calls the Anthropic Messages API with tool support.
//
// System messages are lifted into the request's system prompt. Consecutive
// tool results are sent together in one user turn, as the API requires.
type ChatModel struct {
	modelName string
	maxTokens int64
	client    messenger
}

// messenger is the slice of the SDK the adapter uses; tests replace it.
type messenger interface {
	send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// NewChatModel creates a ChatModel. An empty modelName selects DefaultModel.
func NewChatModel(apiKey, modelName string, opts ...option.RequestOption) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &ChatModel{
		modelName: modelName,
		maxTokens: DefaultMaxTokens,
		client:    &sdkClient{client: &client},
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	params, err := m.buildParams(messages, tools)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "anthropic", Op: "messages", Err: err}
	}

	msg, err := m.client.send(ctx, params)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "anthropic", Op: "messages", Err: describeError(err)}
	}

	out, err := convertMessage(msg)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "anthropic", Op: "messages", Err: err}
	}
	return out, nil
}

func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemParts []string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		conversation = append(conversation, msg)
	}
	return strings.Join(systemParts, "\n\n"), conversation
}

func (m *ChatModel) buildParams(messages []model.Message, tools []model.ToolSpec) (anthropic.MessageNewParams, error) {
	system, conversation := extractSystemPrompt(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var pendingResults []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(pendingResults) > 0 {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range conversation {
		if msg.Role == model.RoleTool {
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			continue
		}
		flush()

		switch msg.Role {
		case model.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, model.ExpandArguments(call.Arguments), call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		default:
			return params, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	flush()

	for _, tool := range tools {
		tp := &anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: anthropic.ToolInputSchemaParam{Properties: tool.Schema["properties"]},
		}
		if tool.Description != "" {
			tp.Description = anthropic.String(tool.Description)
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: tp})
	}

	return params, nil
}

func convertMessage(msg *anthropic.Message) (model.ChatOut, error) {
	if msg == nil {
		return model.ChatOut{}, errors.New("empty response")
	}

	var out model.ChatOut
	var texts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			var input map[string]interface{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return model.ChatOut{}, fmt.Errorf("tool_use %s input: %w", block.Name, err)
				}
			}
			args, err := model.FlattenArguments(input)
			if err != nil {
				return model.ChatOut{}, err
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}

// describeError keeps the status code of API errors in the message.
func describeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %w", apiErr.StatusCode, err)
	}
	return err
}

type sdkClient struct {
	client *anthropic.Client
}

func (c *sdkClient) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}
