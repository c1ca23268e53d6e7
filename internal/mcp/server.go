package mcp

import (
	"context"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/dayplan/internal/assistant"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// NewMCPServer creates an MCP server exposing the task tools of owner.
// If only is non-empty, just the named tools are exposed.
func NewMCPServer(tools *assistant.Toolset, owner string, only ...string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "dayplan",
		Version: Version,
	}, nil)

	for _, tool := range tools.Tools() {
		if !matchesFilter(tool.Spec.Name, only) {
			continue
		}

		// Capture tool in closure
		t := tool
		server.AddTool(toolSpecToMCPTool(t.Spec), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			result, err := t.Run(ctx, owner, string(req.Params.Arguments))
			if err != nil {
				slog.Debug("mcp tool error", "tool", t.Spec.Name, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", t.Spec.Name)
	}

	return server
}

// matchesFilter reports whether a tool passes the filter. An empty filter
// matches every tool.
func matchesFilter(name string, only []string) bool {
	return len(only) == 0 || slices.Contains(only, name)
}
