package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapweijun1996/AI-Code-Editor-v13/editor"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/session"
	"github.com/yapweijun1996/AI-Code-Editor-v13/tools"
)

func newExecutor(t *testing.T) *tools.Executor {
	t.Helper()
	wb := editor.NewWorkbench(nil)
	t.Cleanup(wb.Close)
	sessions := session.NewManager(session.NewSession(), wb, nil)
	dispatcher := tools.NewDispatcher(tools.Dependencies{Sessions: sessions, Editor: wb})
	return tools.NewExecutor(dispatcher, nil, nil, tools.DiagnosticsOptions{})
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServerRegistersEveryTool(t *testing.T) {
	srv, err := NewServer(newExecutor(t), nil, "test")
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestHandlerWithoutProjectIsError(t *testing.T) {
	h := handleTool(newExecutor(t), func() fsContracts.IFileSystem { return nil }, tools.ToolReadFile)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: map[string]any{"filename": "a.txt"}}}

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var resp models.ToolResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, "read_file", resp.ToolResponse.Name)
	assert.Equal(t, "No project folder is open", resp.ToolResponse.Response["error"])
}

func TestHandlerReturnsToolResponse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	fs, err := filesystem.NewLocal(dir)
	require.NoError(t, err)

	h := handleTool(newExecutor(t), func() fsContracts.IFileSystem { return fs }, tools.ToolReadFile)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: map[string]any{"filename": "a.txt"}}}

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"toolResponse":{"name":"read_file","response":{"content":"hello"}}}`, resultText(t, res))
}
