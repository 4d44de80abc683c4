package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/stategraph/graph/model"
)

// MCPClient is the part of an MCP client session the adapter needs.
// *client.Client satisfies it.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPSession is an initialized connection to an MCP server.
type MCPSession struct {
	client MCPClient
	server string
}

// DialMCP launches command as an MCP server over stdio and initializes the
// session.
//
//	session, err := tool.DialMCP(ctx, "python", nil, "crypto_price_server.py")
//	tools, err := session.Tools(ctx)
func DialMCP(ctx context.Context, command string, env []string, args ...string) (*MCPSession, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start MCP server %s: %w", command, err)
	}
	session, err := NewMCPSession(ctx, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return session, nil
}

// NewMCPSession initializes an already-connected client.
func NewMCPSession(ctx context.Context, c MCPClient) (*MCPSession, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "stategraph", Version: "1.0.0"}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("initialize MCP session: %w", err)
	}
	return &MCPSession{client: c, server: res.ServerInfo.Name}, nil
}

// Tools lists the server's tools as Tool values.
func (s *MCPSession) Tools(ctx context.Context) ([]*MCPTool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list MCP tools: %w", err)
	}
	tools := make([]*MCPTool, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema := map[string]interface{}{"type": "object", "properties": t.InputSchema.Properties}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		tools = append(tools, &MCPTool{
			session: s,
			spec:    model.ToolSpec{Name: t.Name, Description: t.Description, Schema: schema},
		})
	}
	return tools, nil
}

// Close ends the session and stops a stdio server.
func (s *MCPSession) Close() error {
	return s.client.Close()
}

// MCPTool calls one tool on an MCP server.
type MCPTool struct {
	session *MCPSession
	spec    model.ToolSpec
}

// Name implements Tool.
func (t *MCPTool) Name() string { return t.spec.Name }

// Describe implements Describer.
func (t *MCPTool) Describe() model.ToolSpec { return t.spec }

// Call implements Tool. Text content parts are joined with newlines; a
// result flagged as an error becomes a Go error.
func (t *MCPTool) Call(ctx context.Context, args Arguments) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.spec.Name
	req.Params.Arguments = model.ExpandArguments(args)

	res, err := t.session.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call MCP tool %s: %w", t.spec.Name, err)
	}

	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}
