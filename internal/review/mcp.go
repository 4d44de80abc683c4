package review

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/stategraph/memory"
)

// NewMCPServer exposes svc as MCP tools so an agent can search products
// and record approvals or edits:
//
//	search_products(query)
//	approve_products(query, results)
//	edit_products(query, results)
//	show_memory()
func NewMCPServer(svc Service, version string) *server.MCPServer {
	srv := server.NewMCPServer("stategraph-review", version)

	srv.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search the product catalog. Results approved or edited earlier are returned verbatim."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := svc.Search(ctx, req.GetString("query", ""))
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(st.Results), nil
	})

	feedback := func(op func(Service, context.Context, string, string) (string, error)) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			query, err := req.RequireString("query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			results, err := req.RequireString("results")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := op(svc, ctx, query, results)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(status), nil
		}
	}
	srv.AddTool(mcp.NewTool("approve_products",
		mcp.WithDescription("Remember search results as approved for a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The searched query")),
		mcp.WithString("results", mcp.Required(), mcp.Description("The results to remember")),
	), feedback(Service.Approve))
	srv.AddTool(mcp.NewTool("edit_products",
		mcp.WithDescription("Remember corrected search results for a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The searched query")),
		mcp.WithString("results", mcp.Required(), mcp.Description("The corrected results")),
	), feedback(Service.Edit))

	srv.AddTool(mcp.NewTool("show_memory",
		mcp.WithDescription("List remembered query results"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := svc.Entries(ctx)
		if err != nil {
			return nil, fmt.Errorf("list memory: %w", err)
		}
		return mcp.NewToolResultText(memory.Format(entries)), nil
	})

	return srv
}
