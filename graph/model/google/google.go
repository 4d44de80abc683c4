// Package google adapts the Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/stategraph/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.5-flash"

// ChatModel calls Gemini with function-calling support.
//
// Gemini does not issue tool call IDs; the adapter synthesizes them and
// routes tool results back by function name.
type ChatModel struct {
	modelName string
	client    generator
}

// request is one Gemini call: prior turns in history, the newest turn in
// parts.
type request struct {
	system  *genai.Content
	history []*genai.Content
	parts   []genai.Part
	tools   []*genai.Tool
}

type generator interface {
	generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
}

// NewChatModel creates a ChatModel. An empty modelName selects DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &sdkClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	req, err := buildRequest(messages, tools)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "google", Op: "generate", Err: err}
	}

	resp, err := m.client.generate(ctx, req)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "google", Op: "generate", Err: err}
	}

	out, err := convertResponse(resp)
	if err != nil {
		return model.ChatOut{}, &model.CollaboratorError{Provider: "google", Op: "generate", Err: err}
	}
	return out, nil
}

func buildRequest(messages []model.Message, tools []model.ToolSpec) (request, error) {
	var req request
	var turns []*genai.Content

	appendParts := func(role string, parts ...genai.Part) {
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, parts...)
			return
		}
		turns = append(turns, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if req.system == nil {
				req.system = &genai.Content{}
			}
			req.system.Parts = append(req.system.Parts, genai.Text(msg.Content))
		case model.RoleUser:
			appendParts("user", genai.Text(msg.Content))
		case model.RoleTool:
			appendParts("user", genai.FunctionResponse{
				Name:     msg.Name,
				Response: map[string]any{"result": msg.Content},
			})
		case model.RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: model.ExpandArguments(call.Arguments)})
			}
			if len(parts) > 0 {
				appendParts("model", parts...)
			}
		default:
			return req, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	if len(turns) == 0 {
		return req, errors.New("no messages to send")
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return req, errors.New("conversation must end with a user or tool turn")
	}
	req.history = turns[:len(turns)-1]
	req.parts = last.Parts

	if len(tools) > 0 {
		req.tools = convertTools(tools)
	}
	return req, nil
}

func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			prop := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				prop.Type = convertType(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				prop.Description = desc
			}
			result.Properties[key] = prop
		}
	}

	switch required := schema["required"].(type) {
	case []string:
		result.Required = required
	case []interface{}:
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	return result
}

func convertType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	var out model.ChatOut
	if resp == nil || len(resp.Candidates) == 0 {
		return out, errors.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return out, &SafetyFilterError{category: blockedCategory(candidate)}
	}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			args, err := model.FlattenArguments(p.Args)
			if err != nil {
				return model.ChatOut{}, err
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:        "call_" + strconv.Itoa(len(out.ToolCalls)+1),
				Name:      p.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

func blockedCategory(c *genai.Candidate) string {
	for _, r := range c.SafetyRatings {
		if r.Blocked {
			return r.Category.String()
		}
	}
	return "unknown"
}

// SafetyFilterError reports a reply withheld by Gemini's safety filters.
type SafetyFilterError struct {
	category string
}

func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the harm category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

type sdkClient struct {
	apiKey    string
	modelName string
}

func (c *sdkClient) generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	gm := client.GenerativeModel(c.modelName)
	gm.SystemInstruction = req.system
	gm.Tools = req.tools

	session := gm.StartChat()
	session.History = req.history
	return session.SendMessage(ctx, req.parts...)
}
