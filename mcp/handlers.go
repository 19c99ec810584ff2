package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/coroflat/domain"
	"github.com/ludo-technologies/coroflat/service"
)

const defaultSourceName = "source.js"

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "")
	}
	return &HandlerSet{deps: deps}
}

// HandleLowerSource handles the lower_source tool
func (h *HandlerSet) HandleLowerSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	source, ok := args["source"].(string)
	if !ok {
		return mcp.NewToolResultError("source parameter is required and must be a string"), nil
	}
	name := defaultSourceName
	if n, ok := args["name"].(string); ok && n != "" {
		name = n
	}

	req := h.deps.BaseRequest()
	applyCommonArgs(&req, args)
	if await, ok := args["await"].(bool); ok {
		req.AwaitSuspends = await
	}
	if all, ok := args["all_functions"].(bool); ok {
		req.AllFunctions = all
	}

	format, err := parseFormat(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response, err := h.deps.BuildLowerService().LowerSource(ctx, name, []byte(source), req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lowering failed: %v", err)), nil
	}
	return formatResult(response, format)
}

// HandleLowerFile handles the lower_file tool
func (h *HandlerSet) HandleLowerFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	path, ok := args["path"].(string)
	if !ok {
		return mcp.NewToolResultError("path parameter is required and must be a string"), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path)), nil
	}

	req := h.deps.BaseRequest()
	req.Paths = []string{path}
	applyCommonArgs(&req, args)
	if recursive, ok := args["recursive"].(bool); ok {
		req.Recursive = recursive
	}

	format, err := parseFormat(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	useCase, err := h.deps.BuildLowerUseCase()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create lowerer: %v", err)), nil
	}

	response, err := useCase.LowerAndReturn(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lowering failed: %v", err)), nil
	}
	return formatResult(response, format)
}

// applyCommonArgs applies the suspend and function arguments
func applyCommonArgs(req *domain.LowerRequest, args map[string]interface{}) {
	if suspend, ok := args["suspend"].(string); ok && strings.TrimSpace(suspend) != "" {
		req.SuspendFunctions = splitList(suspend)
	}
	if function, ok := args["function"].(string); ok {
		req.FunctionFilter = function
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseFormat(args map[string]interface{}) (domain.OutputFormat, error) {
	name, ok := args["format"].(string)
	if !ok || name == "" {
		return domain.OutputFormatJSON, nil
	}
	return service.ParseOutputFormat(name)
}

func formatResult(response *domain.LowerResponse, format domain.OutputFormat) (*mcp.CallToolResult, error) {
	output, err := service.NewOutputFormatter().Format(response, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(output), nil
}
