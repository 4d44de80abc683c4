// Package model defines the chat-model collaborator contract used by nodes
// and tool-calling agents, plus adapters for hosted providers.
package model

import "context"

// ChatModel is a language model reachable through a chat-style API.
//
// Chat sends the conversation and the tools the model may request. The
// model answers either with text or with one or more tool calls; in the
// latter case the caller executes the tools, appends their results as
// RoleTool messages, and calls Chat again.
//
// Implementations must be safe for concurrent use.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string

	// ToolCalls holds the calls an assistant turn requested.
	ToolCalls []ToolCall

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string

	// Name is the tool name of a RoleTool message.
	Name string
}

// System, User, and Assistant build plain text messages.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToolResult builds the RoleTool message answering call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string

	// Schema is a JSON Schema object describing the arguments.
	Schema map[string]interface{}
}

// ChatOut is a model reply.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider's identifier for the call. Providers that do not
	// issue IDs get one synthesized by the adapter.
	ID string

	Name string

	// Arguments are the call's arguments flattened to strings. Non-string
	// JSON values are kept in their JSON encoding.
	Arguments map[string]string
}
