package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapweijun1996/AI-Code-Editor-v13/checkpoint"
	"github.com/yapweijun1996/AI-Code-Editor-v13/editor"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network"
	"github.com/yapweijun1996/AI-Code-Editor-v13/session"
	"github.com/yapweijun1996/AI-Code-Editor-v13/store"
)

type memCheckpoints struct {
	mu    sync.Mutex
	saved []models.Checkpoint
}

func (m *memCheckpoints) SaveCheckpoint(_ context.Context, cp models.Checkpoint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, cp)
	return int64(len(m.saved)), nil
}

func (m *memCheckpoints) GetCheckpoint(context.Context, int64) (*models.Checkpoint, error) {
	return nil, store.ErrNotFound
}

func (m *memCheckpoints) ListCheckpoints(context.Context, int) ([]models.Checkpoint, error) {
	return nil, nil
}

func (m *memCheckpoints) DeleteCheckpoint(context.Context, int64) error { return nil }

func (m *memCheckpoints) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type memAudit struct {
	started  []store.AuditEntry
	finished map[string]string
}

func (a *memAudit) StartAudit(_ context.Context, e store.AuditEntry) error {
	a.started = append(a.started, e)
	return nil
}

func (a *memAudit) FinishAudit(_ context.Context, id, status, _ string, _ time.Duration) error {
	if a.finished == nil {
		a.finished = make(map[string]string)
	}
	a.finished[id] = status
	return nil
}

type fakeTerminal struct {
	calls int
	resp  models.ServiceResponse
}

func (f *fakeTerminal) Run(context.Context, string, string) (models.ServiceResponse, error) {
	f.calls++
	return f.resp, nil
}

type fakeSearcher struct{ calls int }

func (f *fakeSearcher) Search(context.Context, string) (models.ServiceResponse, error) {
	f.calls++
	return models.ServiceResponse{Status: network.StatusSuccess, Output: "1. result"}, nil
}

type countingTree struct{ calls int }

func (c *countingTree) RefreshTree(fsContracts.IFileSystem) error {
	c.calls++
	return errors.New("tree widget gone")
}

// spyFS counts every call that reaches the file system.
type spyFS struct {
	fsContracts.IFileSystem
	calls int
}

func (s *spyFS) Resolve(p string, create bool) (fsContracts.IFileHandle, error) {
	s.calls++
	return s.IFileSystem.Resolve(p, create)
}

func (s *spyFS) ReadText(p string) (string, error) {
	s.calls++
	return s.IFileSystem.ReadText(p)
}

type fixture struct {
	exec        *Executor
	fs          fsContracts.IFileSystem
	workbench   *editor.Workbench
	sessions    *session.Manager
	checkpoints *memCheckpoints
	audit       *memAudit
	terminal    *fakeTerminal
	searcher    *fakeSearcher
	tree        *countingTree
	dir         string
}

func newFixture(t *testing.T, files map[string]string, validator editor.Validator) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	fs, err := filesystem.NewLocal(dir)
	require.NoError(t, err)

	wb := editor.NewWorkbench(validator)
	t.Cleanup(wb.Close)
	sessions := session.NewManager(session.NewSession(), wb, nil)
	f := &fixture{
		fs:          fs,
		workbench:   wb,
		sessions:    sessions,
		checkpoints: &memCheckpoints{},
		audit:       &memAudit{},
		terminal:    &fakeTerminal{resp: models.ServiceResponse{Status: network.StatusSuccess, Output: "ok"}},
		searcher:    &fakeSearcher{},
		tree:        &countingTree{},
		dir:         dir,
	}
	dispatcher := NewDispatcher(Dependencies{
		Sessions: sessions,
		Editor:   wb,
		Searcher: f.searcher,
		Terminal: f.terminal,
		Tree:     f.tree,
	})
	interceptor := checkpoint.NewInterceptor(f.checkpoints, sessions, CheckpointTriggers)
	f.exec = NewExecutor(dispatcher, interceptor, f.audit, DiagnosticsOptions{Timeout: 2 * time.Second})
	return f
}

func (f *fixture) call(t *testing.T, name Name, args map[string]any) map[string]any {
	t.Helper()
	resp := f.exec.Execute(context.Background(), models.ToolCall{Name: string(name), Args: args}, f.fs)
	assert.Equal(t, string(name), resp.ToolResponse.Name)
	return resp.ToolResponse.Response
}

func (f *fixture) disk(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestEveryToolIsRegistered(t *testing.T) {
	assert.Len(t, AllNames, 22)
	for _, name := range AllNames {
		assert.True(t, name.Known(), name)
		assert.NotEmpty(t, Descriptions[name], name)
		_, err := RawSchema(name)
		assert.NoError(t, err, name)
	}
}

func TestDecodeConvertsLooseScalars(t *testing.T) {
	op, err := Decode(models.ToolCall{Name: "insert_content", Args: map[string]any{
		"filename": "a.txt", "line_number": "3", "content": "x",
	}})
	require.NoError(t, err)
	assert.Equal(t, &InsertContent{Filename: "a.txt", LineNumber: 3, Content: "x"}, op)

	op, err = Decode(models.ToolCall{Name: "insert_content", Args: map[string]any{"line_number": 2.0}})
	require.NoError(t, err)
	assert.Equal(t, 2, op.(*InsertContent).LineNumber)

	_, err = Decode(models.ToolCall{Name: "launch_rockets"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
	assert.Equal(t, "Unknown tool: launch_rockets", err.Error())
	assert.Equal(t, ErrCodeUnknownTool, GetCode(err))
}

func TestSchemaListsRequiredParameters(t *testing.T) {
	schema, err := Schema(ToolRenameFile)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old_path", "new_path"}, schema.Required)

	schema, err = Schema(ToolCreateFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"filename"}, schema.Required)
}

func TestRootRequiredToolsShortCircuitWithoutProject(t *testing.T) {
	f := newFixture(t, nil, nil)
	for name := range rootRequired {
		resp := f.exec.Execute(context.Background(), models.ToolCall{
			Name: string(name),
			Args: map[string]any{"filename": "a.js", "command": "ls", "content": "x"},
		}, nil)
		assert.Equal(t, map[string]any{"error": "No project folder is open"}, resp.ToolResponse.Response, name)
	}
	assert.Zero(t, f.checkpoints.count())
	assert.Zero(t, f.terminal.calls)
	assert.Zero(t, f.tree.calls)
	assert.Empty(t, f.sessions.Paths())
}

func TestToolsOutsideTheGuardRunWithoutProject(t *testing.T) {
	f := newFixture(t, nil, nil)
	resp := f.exec.Execute(context.Background(), models.ToolCall{
		Name: "duckduckgo_search", Args: map[string]any{"query": "go"},
	}, nil)
	assert.Equal(t, map[string]any{"results": "1. result"}, resp.ToolResponse.Response)
	assert.Equal(t, 1, f.searcher.calls)
}

func TestReadFileTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("a", 30001)
	f := newFixture(t, map[string]string{"long.txt": long, "short.txt": "hello"}, nil)

	resp := f.call(t, ToolReadFile, map[string]any{"filename": "long.txt"})
	want := strings.Repeat("a", 30000) + "\n\n... (file truncated: showing first 30000 of 30001 characters)"
	assert.Equal(t, want, resp["content"])
	text, err := f.sessions.Text("long.txt")
	require.NoError(t, err)
	assert.Equal(t, want, text)

	resp = f.call(t, ToolReadFile, map[string]any{"filename": "short.txt"})
	assert.Equal(t, "hello", resp["content"])
	assert.Equal(t, "short.txt", f.sessions.ActivePath())

	exact := strings.Repeat("b", 30000)
	assert.Equal(t, exact, TruncateContent(exact, 30000))
}

func TestReadFileMissingIsWrappedError(t *testing.T) {
	f := newFixture(t, nil, nil)
	resp := f.call(t, ToolReadFile, map[string]any{"filename": "nope.txt"})
	msg, ok := resp["error"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, "Error executing tool 'read_file': file not found"), msg)
	assert.Equal(t, StatusError, f.audit.finished[f.audit.started[0].ID])
}

func TestUnknownToolIsWrappedError(t *testing.T) {
	f := newFixture(t, nil, nil)
	resp := f.exec.Execute(context.Background(), models.ToolCall{Name: "nope"}, f.fs)
	assert.Equal(t, map[string]any{"error": "Error executing tool 'nope': Unknown tool: nope"}, resp.ToolResponse.Response)
	assert.True(t, resp.Failed())
}

func TestInsertContentClampsLineNumber(t *testing.T) {
	assert.Equal(t, "X\na\nb", InsertLine("a\nb", 1, "X"))
	assert.Equal(t, "X\na\nb", InsertLine("a\nb", 0, "X"))
	assert.Equal(t, "X\na\nb", InsertLine("a\nb", -4, "X"))
	assert.Equal(t, "a\nX\nb", InsertLine("a\nb", 2, "X"))
	assert.Equal(t, "a\nb\nX", InsertLine("a\nb", 99, "X"))

	f := newFixture(t, map[string]string{"f.txt": "a\nb"}, nil)
	f.call(t, ToolReadFile, map[string]any{"filename": "f.txt"})
	resp := f.call(t, ToolInsertContent, map[string]any{"filename": "f.txt", "line_number": 1, "content": "X"})
	assert.Equal(t, "Content inserted into 'f.txt' at line 1.", resp["message"])
	assert.Equal(t, "X\na\nb", f.disk(t, "f.txt"))
	text, err := f.sessions.Text("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "X\na\nb", text)
	assert.Equal(t, 1, f.tree.calls)
}

func TestReplaceSelectedTextNeedsSelection(t *testing.T) {
	f := newFixture(t, map[string]string{"f.txt": "hello world"}, nil)
	f.call(t, ToolReadFile, map[string]any{"filename": "f.txt"})
	doc, ok := f.sessions.Document("f.txt")
	require.True(t, ok)

	resp := f.call(t, ToolReplaceSelectedText, map[string]any{"new_text": "x"})
	assert.Contains(t, resp["error"], ErrNoSelection.Message)

	point := models.Position{Line: 1, Column: 3}
	f.workbench.SetSelection(models.Range{Start: point, End: point})
	resp = f.call(t, ToolReplaceSelectedText, map[string]any{"new_text": "x"})
	assert.Contains(t, resp["error"], ErrNoSelection.Message)
	assert.Empty(t, f.workbench.History(doc.Buffer))

	f.workbench.SetSelection(models.Range{Start: models.Position{Line: 1, Column: 7}, End: models.Position{Line: 1, Column: 12}})
	resp = f.call(t, ToolGetSelectedText, nil)
	assert.Equal(t, "world", resp["selected_text"])

	resp = f.call(t, ToolReplaceSelectedText, map[string]any{"new_text": "gopher"})
	assert.Equal(t, "Selected text replaced successfully.", resp["message"])
	text, err := f.sessions.Text("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello gopher", text)
	history := f.workbench.History(doc.Buffer)
	require.Len(t, history, 1)
	assert.Equal(t, EditActor, history[0].Actor)
}

func TestAnalyzeCodeRejectsOtherExtensionsBeforeReading(t *testing.T) {
	f := newFixture(t, map[string]string{"main.py": "print(1)"}, nil)
	spy := &spyFS{IFileSystem: f.fs}
	resp := f.exec.Execute(context.Background(), models.ToolCall{
		Name: "analyze_code", Args: map[string]any{"filename": "main.py"},
	}, spy)
	assert.Contains(t, resp.ToolResponse.Response["error"], "only supports .js files")
	assert.Zero(t, spy.calls)
}

func TestCheckpointOnlyBeforeTriggersWithOpenDocuments(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "a"}, nil)

	f.call(t, ToolCreateFolder, map[string]any{"folder_path": "empty-session"})
	assert.Zero(t, f.checkpoints.count())

	f.call(t, ToolReadFile, map[string]any{"filename": "a.txt"})
	assert.Zero(t, f.checkpoints.count())

	f.call(t, ToolCreateFolder, map[string]any{"folder_path": "docs"})
	require.Equal(t, 1, f.checkpoints.count())
	assert.True(t, strings.HasPrefix(f.checkpoints.saved[0].Name, "Auto-checkpoint before create_folder @ "))
	assert.Equal(t, "a.txt", f.checkpoints.saved[0].EditorState.OpenFiles[0].Path)

	f.call(t, ToolGetOpenFileContent, nil)
	f.call(t, ToolSearchCode, map[string]any{"search_term": "a"})
	assert.Equal(t, 1, f.checkpoints.count())
}

func TestDiagnosticsWarningIsAppended(t *testing.T) {
	validator := func(_ context.Context, path, text string) ([]models.Marker, error) {
		var markers []models.Marker
		for i, line := range strings.Split(text, "\n") {
			if strings.Contains(line, "oops") {
				markers = append(markers,
					models.Marker{Path: path, Line: i + 1, Severity: models.SeverityError, Message: "unexpected token"},
					models.Marker{Path: path, Line: i + 1, Severity: models.SeverityWarning, Message: "style"},
				)
			}
		}
		return markers, nil
	}
	f := newFixture(t, map[string]string{"app.js": "let a = 1\n"}, validator)
	f.call(t, ToolReadFile, map[string]any{"filename": "app.js"})

	resp := f.call(t, ToolRewriteFile, map[string]any{"filename": "app.js", "content": "let a = 1\noops\n"})
	assert.Equal(t,
		"File 'app.js' rewritten successfully.\n\nWarning: the following errors were found after the change:\n- Line 2: unexpected token",
		resp["message"])
	assert.NotContains(t, resp, "error")

	resp = f.call(t, ToolRewriteFile, map[string]any{"filename": "app.js", "content": "let a = 2\n"})
	assert.Equal(t, "File 'app.js' rewritten successfully.", resp["message"])
}

func TestMutationsAreReflectedInTheSession(t *testing.T) {
	f := newFixture(t, map[string]string{"src/a.txt": "a", "src/b.txt": "b", "c.txt": "c"}, nil)
	for _, name := range []string{"src/a.txt", "src/b.txt", "c.txt"} {
		f.call(t, ToolReadFile, map[string]any{"filename": name})
	}

	resp := f.call(t, ToolRenameFolder, map[string]any{"old_folder_path": "src", "new_folder_path": "lib"})
	assert.Equal(t, "Folder 'src' renamed to 'lib' successfully.", resp["message"])
	assert.Equal(t, []string{"lib/a.txt", "lib/b.txt", "c.txt"}, f.sessions.Paths())
	assert.Equal(t, "c.txt", f.sessions.ActivePath())

	f.call(t, ToolDeleteFile, map[string]any{"filename": "c.txt"})
	assert.Equal(t, []string{"lib/a.txt", "lib/b.txt"}, f.sessions.Paths())
	assert.Equal(t, "lib/a.txt", f.sessions.ActivePath())

	f.call(t, ToolDeleteFolder, map[string]any{"folder_path": "lib"})
	assert.Empty(t, f.sessions.Paths())
	assert.Equal(t, "", f.sessions.ActivePath())

	resp = f.call(t, ToolCreateFile, map[string]any{"filename": "new/file.txt", "content": "fresh"})
	assert.Equal(t, "File 'new/file.txt' created successfully.", resp["message"])
	assert.Equal(t, "fresh", f.disk(t, "new/file.txt"))
	assert.Equal(t, "new/file.txt", f.sessions.ActivePath())

	// tree refresh failures never fail the tool
	assert.Equal(t, 4, f.tree.calls)
}

func TestRunTerminalCommandRefreshesTreeOnSuccess(t *testing.T) {
	f := newFixture(t, nil, nil)
	resp := f.call(t, ToolRunTerminalCommand, map[string]any{"command": "touch x"})
	assert.Equal(t, "ok", resp["output"])
	assert.Equal(t, 1, f.tree.calls)

	f.terminal.resp = models.ServiceResponse{Status: network.StatusError, Message: "command exited with status 1", Output: "boom"}
	resp = f.call(t, ToolRunTerminalCommand, map[string]any{"command": "false"})
	assert.Equal(t, "Error executing tool 'run_terminal_command': command exited with status 1\nboom", resp["error"])
	assert.Equal(t, 1, f.tree.calls)
}

func TestGetOpenFileContentWithoutDocument(t *testing.T) {
	f := newFixture(t, nil, nil)
	resp := f.call(t, ToolGetOpenFileContent, nil)
	assert.Contains(t, resp["error"], ErrNoActiveFile.Message)
}

func TestFormatCode(t *testing.T) {
	f := newFixture(t, map[string]string{
		"data.json": `{"b":1,"a":[1,2]}`,
		"main.go":   "package main\nfunc main(){}\n",
		"notes.txt": "line  \n\n\n",
	}, nil)

	resp := f.call(t, ToolFormatCode, map[string]any{"filename": "data.json"})
	assert.Equal(t, "File 'data.json' formatted successfully.", resp["message"])
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}\n", f.disk(t, "data.json"))

	f.call(t, ToolFormatCode, map[string]any{"filename": "main.go"})
	assert.Equal(t, "package main\n\nfunc main() {}\n", f.disk(t, "main.go"))

	f.call(t, ToolFormatCode, map[string]any{"filename": "notes.txt"})
	assert.Equal(t, "line\n", f.disk(t, "notes.txt"))

	resp = f.call(t, ToolFormatCode, map[string]any{"filename": "notes.txt"})
	assert.Equal(t, "File 'notes.txt' is already formatted.", resp["message"])
}

func TestFormatSourceYAMLAndTOML(t *testing.T) {
	out, err := FormatSource("a.yaml", "a:   1\nb:\n    - x\n")
	require.NoError(t, err)
	assert.Equal(t, "a: 1\nb:\n  - x\n", out)

	out, err = FormatSource("a.toml", "title =   \"x\"\n[server]\nport=8080\n")
	require.NoError(t, err)
	assert.Contains(t, out, "title = ")
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "port = 8080")

	_, err = FormatSource("bad.json", "{")
	assert.Error(t, err)
}

func TestGetProjectStructure(t *testing.T) {
	f := newFixture(t, map[string]string{"src/a.go": "", "README.md": ""}, nil)
	resp := f.call(t, ToolGetProjectStructure, nil)
	structure, ok := resp["structure"].(string)
	require.True(t, ok)
	assert.Contains(t, structure, "src/")
	assert.Contains(t, structure, "a.go")
	assert.Contains(t, structure, "README.md")
}

func TestAuditEntriesAreFinalized(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "a"}, nil)
	f.call(t, ToolReadFile, map[string]any{"filename": "a.txt"})
	f.call(t, ToolReadFile, map[string]any{"filename": "missing.txt"})

	require.Len(t, f.audit.started, 2)
	assert.Equal(t, "read_file", f.audit.started[0].Tool)
	assert.JSONEq(t, `{"filename":"a.txt"}`, f.audit.started[0].Args)
	assert.Equal(t, StatusSuccess, f.audit.finished[f.audit.started[0].ID])
	assert.Equal(t, StatusError, f.audit.finished[f.audit.started[1].ID])
}

func TestRenderTree(t *testing.T) {
	tree := &models.TreeNode{Name: "proj", IsDir: true, Children: []*models.TreeNode{
		{Name: "src", IsDir: true, Children: []*models.TreeNode{{Name: "main.go"}}},
		{Name: "go.mod"},
	}}
	out, err := RenderTree(tree)
	require.NoError(t, err)
	assert.Contains(t, out, "proj/")
	assert.Contains(t, out, "src/")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "go.mod")
}
