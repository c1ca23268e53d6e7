// Package mcp provides an MCP server that exposes the task tools.
package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/dayplan/internal/assistant"
)

// toolSpecToMCPTool converts an assistant.ToolSpec to an mcp.Tool with JSON Schema.
func toolSpecToMCPTool(spec assistant.ToolSpec) *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: spec.JSONSchema(),
	}
}
