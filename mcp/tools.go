package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers the coroflat MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	if h == nil {
		h = NewHandlerSet(nil)
	}

	s.AddTool(mcp.NewTool("lower_source",
		mcp.WithDescription("Lower the suspendable functions of a JavaScript snippet into flat state machines"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("JavaScript source code")),
		mcp.WithString("name",
			mcp.Description("File name used in locations (default: source.js)")),
		mcp.WithString("suspend",
			mcp.Description("Comma separated names or glob patterns of functions whose calls suspend")),
		mcp.WithString("function",
			mcp.Description("Only lower functions whose name matches this glob pattern")),
		mcp.WithBoolean("await",
			mcp.Description("Treat await expressions as suspension points (default: from configuration)")),
		mcp.WithBoolean("all_functions",
			mcp.Description("Also report functions without suspension points (default: false)")),
		mcp.WithString("format",
			mcp.Description("Result format: json, yaml, text or dot (default: json)")),
	), h.HandleLowerSource)

	s.AddTool(mcp.NewTool("lower_file",
		mcp.WithDescription("Lower the suspendable functions of JavaScript files into flat state machines"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a JavaScript file or a directory")),
		mcp.WithString("suspend",
			mcp.Description("Comma separated names or glob patterns of functions whose calls suspend")),
		mcp.WithString("function",
			mcp.Description("Only lower functions whose name matches this glob pattern")),
		mcp.WithBoolean("recursive",
			mcp.Description("Recursively walk directories (default: from configuration)")),
		mcp.WithString("format",
			mcp.Description("Result format: json, yaml, text or dot (default: json)")),
	), h.HandleLowerFile)
}
