// Package mcpserver exposes the editor tools over the Model Context
// Protocol so any MCP client can drive the workbench through stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/tools"
)

const serverName = "ai-code-editor"

// ProjectFunc returns the open project, or nil when none is open.
type ProjectFunc func() fsContracts.IFileSystem

// NewServer registers one MCP tool per editor tool.
func NewServer(exec *tools.Executor, project ProjectFunc, version string) (*server.MCPServer, error) {
	srv := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)
	for _, name := range tools.AllNames {
		schema, err := tools.RawSchema(name)
		if err != nil {
			return nil, err
		}
		srv.AddTool(
			mcp.NewToolWithRawSchema(string(name), tools.Descriptions[name], schema),
			handleTool(exec, project, name),
		)
	}
	return srv, nil
}

// Serve blocks serving srv on stdin and stdout.
func Serve(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func handleTool(exec *tools.Executor, project ProjectFunc, name tools.Name) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var fs fsContracts.IFileSystem
		if project != nil {
			fs = project()
		}
		resp := exec.Execute(ctx, models.ToolCall{Name: string(name), Args: req.GetArguments()}, fs)
		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to encode response of %s: %s", name, err)), nil
		}
		if resp.Failed() {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
