package tools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	analyzerContracts "github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/editor"
	editorContracts "github.com/yapweijun1996/AI-Code-Editor-v13/editor/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/indexer"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network"
	netContracts "github.com/yapweijun1996/AI-Code-Editor-v13/network/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/session"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

var errNilOperation = errors.New("nil operation")

const (
	// EditActor tags edits made on behalf of the model.
	EditActor = "ai-agent"

	defaultReadFileMaxChars = 30000
	historyLimit            = 20
)

// Dependencies are the collaborators a Dispatcher drives.
type Dependencies struct {
	Sessions  *session.Manager
	Editor    editorContracts.IEditor
	Analyzer  analyzerContracts.ICodeAnalyzer
	Indexer   *indexer.Indexer
	URLReader netContracts.IURLReader
	Searcher  netContracts.ISearcher
	Terminal  netContracts.ITerminal
	Tree      TreeRefresher

	ReadFileMaxChars int
}

// Dispatcher executes decoded operations against the project and the editor.
type Dispatcher struct {
	deps   Dependencies
	logger *logrus.Entry
}

func NewDispatcher(deps Dependencies) *Dispatcher {
	if deps.ReadFileMaxChars <= 0 {
		deps.ReadFileMaxChars = defaultReadFileMaxChars
	}
	return &Dispatcher{deps: deps, logger: logging.NewLogger("dispatcher")}
}

// Guard rejects root-bound tools when no project folder is open.
func Guard(name string, fs fsContracts.IFileSystem) error {
	if fs == nil && Name(name).RequiresRoot() {
		return ErrNoProject
	}
	return nil
}

// Dispatch runs one tool call and returns its payload.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall, fs fsContracts.IFileSystem) (map[string]any, error) {
	if err := Guard(call.Name, fs); err != nil {
		return nil, err
	}
	op, err := Decode(call)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx, op, fs)
}

// Run executes an already decoded operation.
func (d *Dispatcher) Run(ctx context.Context, op Operation, fs fsContracts.IFileSystem) (map[string]any, error) {
	if op == nil {
		return nil, errNilOperation
	}
	if err := Guard(string(op.Tool()), fs); err != nil {
		return nil, err
	}
	switch op := op.(type) {
	case *GetProjectStructure:
		return d.getProjectStructure(fs)
	case *ReadFile:
		return d.readFile(fs, op)
	case *ReadURL:
		return d.readURL(ctx, op)
	case *CreateFile:
		return d.createFile(fs, op)
	case *DeleteFile:
		return d.deleteFile(fs, op)
	case *DeleteFolder:
		return d.deleteFolder(fs, op)
	case *RenameFolder:
		return d.rename(fs, op.OldFolderPath, op.NewFolderPath, "Folder")
	case *RenameFile:
		return d.rename(fs, op.OldPath, op.NewPath, "File")
	case *CreateFolder:
		return d.createFolder(fs, op)
	case *DuckDuckGoSearch:
		return d.search(ctx, op)
	case *SearchCode:
		return d.searchCode(fs, op)
	case *GetOpenFileContent:
		return d.getOpenFileContent()
	case *GetSelectedText:
		return d.getSelectedText()
	case *ReplaceSelectedText:
		return d.replaceSelectedText(op)
	case *RunTerminalCommand:
		return d.runTerminalCommand(ctx, fs, op)
	case *BuildCodebaseIndex:
		return d.buildIndex(ctx, fs)
	case *QueryCodebase:
		return d.queryCodebase(ctx, fs, op)
	case *GetFileHistory:
		return d.getFileHistory(ctx, fs, op)
	case *RewriteFile:
		return d.rewriteFile(fs, op)
	case *FormatCode:
		return d.formatCode(fs, op)
	case *AnalyzeCode:
		return d.analyzeCode(ctx, fs, op)
	case *InsertContent:
		return d.insertContent(fs, op)
	default:
		return nil, unknownTool(string(op.Tool()))
	}
}

// AffectedPath is the document a content mutation touched.
func (d *Dispatcher) AffectedPath(op Operation) string {
	switch op := op.(type) {
	case *RewriteFile:
		return normalize(op.Filename)
	case *InsertContent:
		return normalize(op.Filename)
	default:
		return d.deps.Sessions.ActivePath()
	}
}

func normalize(p string) string {
	cleaned, err := filesystem.CleanPath(p)
	if err != nil {
		return p
	}
	return cleaned
}

// refreshTree redraws the file tree. Failures are logged, never returned.
func (d *Dispatcher) refreshTree(fs fsContracts.IFileSystem) models.BestEffort {
	if d.deps.Tree == nil {
		return models.BestEffort{}
	}
	if err := d.deps.Tree.RefreshTree(fs); err != nil {
		d.logger.WithError(err).Warn("Failed to refresh file tree")
		return models.BestEffort{Attempted: true, Err: err}
	}
	return models.BestEffort{Attempted: true}
}

func (d *Dispatcher) getProjectStructure(fs fsContracts.IFileSystem) (map[string]any, error) {
	tree, err := fs.BuildTree()
	if err != nil {
		return nil, err
	}
	return map[string]any{"structure": fs.FormatTree(tree)}, nil
}

func (d *Dispatcher) readFile(fs fsContracts.IFileSystem, op *ReadFile) (map[string]any, error) {
	handle, err := fs.Resolve(op.Filename, false)
	if err != nil {
		return nil, err
	}
	content, err := handle.ReadText()
	if err != nil {
		return nil, err
	}
	content = TruncateContent(content, d.deps.ReadFileMaxChars)
	if err := d.deps.Sessions.OpenContent(handle.Path(), handle, content, true); err != nil {
		return nil, err
	}
	return map[string]any{"content": content}, nil
}

// TruncateContent caps content at limit characters and appends a notice.
func TruncateContent(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) +
		fmt.Sprintf("\n\n... (file truncated: showing first %d of %d characters)", limit, len(runes))
}

func (d *Dispatcher) readURL(ctx context.Context, op *ReadURL) (map[string]any, error) {
	resp, err := d.deps.URLReader.ReadURL(ctx, op.URL)
	if err != nil {
		return nil, err
	}
	if resp.Status != network.StatusSuccess {
		return nil, serviceFailed(resp.Message)
	}
	return map[string]any{"content": resp.Output}, nil
}

func (d *Dispatcher) createFile(fs fsContracts.IFileSystem, op *CreateFile) (map[string]any, error) {
	handle, err := fs.Resolve(op.Filename, true)
	if err != nil {
		return nil, err
	}
	if err := handle.WriteText(op.Content); err != nil {
		return nil, err
	}
	d.refreshTree(fs)
	if _, err := d.deps.Sessions.UpdateContent(handle.Path(), op.Content); err != nil {
		return nil, err
	}
	if err := d.deps.Sessions.Open(handle.Path(), handle, true); err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("File '%s' created successfully.", handle.Path())}, nil
}

func (d *Dispatcher) deleteFile(fs fsContracts.IFileSystem, op *DeleteFile) (map[string]any, error) {
	dir, entry, err := fs.ResolveParent(op.Filename)
	if err != nil {
		return nil, err
	}
	target := path.Join(dir, entry)
	if err := fs.Delete(target, false); err != nil {
		return nil, err
	}
	if d.deps.Sessions.IsOpen(target) {
		d.deps.Sessions.Close(target)
	}
	d.refreshTree(fs)
	return map[string]any{"message": fmt.Sprintf("File '%s' deleted successfully.", target)}, nil
}

func (d *Dispatcher) deleteFolder(fs fsContracts.IFileSystem, op *DeleteFolder) (map[string]any, error) {
	dir, entry, err := fs.ResolveParent(op.FolderPath)
	if err != nil {
		return nil, err
	}
	target := path.Join(dir, entry)
	if err := fs.Delete(target, true); err != nil {
		return nil, err
	}
	closed := d.deps.Sessions.CloseUnder(target)
	d.refreshTree(fs)
	if len(closed) > 0 {
		d.logger.WithField("closed", closed).Debugf("Closed documents inside %s", target)
	}
	return map[string]any{"message": fmt.Sprintf("Folder '%s' deleted successfully.", target)}, nil
}

func (d *Dispatcher) rename(fs fsContracts.IFileSystem, oldPath, newPath, kind string) (map[string]any, error) {
	if err := fs.Rename(oldPath, newPath); err != nil {
		return nil, err
	}
	from, to := normalize(oldPath), normalize(newPath)
	d.deps.Sessions.Rename(from, to, func(p string) (fsContracts.IFileHandle, error) {
		return fs.Resolve(p, false)
	})
	d.refreshTree(fs)
	return map[string]any{"message": fmt.Sprintf("%s '%s' renamed to '%s' successfully.", kind, from, to)}, nil
}

func (d *Dispatcher) createFolder(fs fsContracts.IFileSystem, op *CreateFolder) (map[string]any, error) {
	if err := fs.CreateDirectory(op.FolderPath); err != nil {
		return nil, err
	}
	d.refreshTree(fs)
	return map[string]any{"message": fmt.Sprintf("Folder '%s' created successfully.", normalize(op.FolderPath))}, nil
}

func (d *Dispatcher) search(ctx context.Context, op *DuckDuckGoSearch) (map[string]any, error) {
	resp, err := d.deps.Searcher.Search(ctx, op.Query)
	if err != nil {
		return nil, err
	}
	if resp.Status != network.StatusSuccess {
		return nil, serviceFailed(resp.Message)
	}
	return map[string]any{"results": resp.Output}, nil
}

func (d *Dispatcher) searchCode(fs fsContracts.IFileSystem, op *SearchCode) (map[string]any, error) {
	matches, err := fs.Search(op.SearchTerm)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.SearchMatch{}
	}
	return map[string]any{"results": matches}, nil
}

func (d *Dispatcher) getOpenFileContent() (map[string]any, error) {
	active := d.deps.Sessions.ActivePath()
	if active == "" {
		return nil, ErrNoActiveFile
	}
	content, err := d.deps.Sessions.Text(active)
	if err != nil {
		return nil, err
	}
	return map[string]any{"filename": active, "content": content}, nil
}

// selectedText returns the current selection, failing when it is empty.
func (d *Dispatcher) selectedText() (models.Range, string, error) {
	sel := d.deps.Editor.Selection()
	if sel == nil || sel.Empty() {
		return models.Range{}, "", ErrNoSelection
	}
	active := d.deps.Sessions.ActivePath()
	if active == "" {
		return models.Range{}, "", ErrNoSelection
	}
	text, err := d.deps.Sessions.Text(active)
	if err != nil {
		return models.Range{}, "", err
	}
	selected, err := editor.TextInRange(text, *sel)
	if err != nil {
		return models.Range{}, "", err
	}
	return *sel, selected, nil
}

func (d *Dispatcher) getSelectedText() (map[string]any, error) {
	_, text, err := d.selectedText()
	if err != nil {
		return nil, err
	}
	return map[string]any{"selected_text": text}, nil
}

func (d *Dispatcher) replaceSelectedText(op *ReplaceSelectedText) (map[string]any, error) {
	sel, _, err := d.selectedText()
	if err != nil {
		return nil, err
	}
	if err := d.deps.Editor.ApplyEdit(EditActor, sel, op.NewText); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Selected text replaced successfully."}, nil
}

func (d *Dispatcher) runTerminalCommand(ctx context.Context, fs fsContracts.IFileSystem, op *RunTerminalCommand) (map[string]any, error) {
	resp, err := d.deps.Terminal.Run(ctx, fs.Root(), op.Command)
	if err != nil {
		return nil, err
	}
	if resp.Status != network.StatusSuccess {
		msg := resp.Message
		if out := strings.TrimSpace(resp.Output); out != "" {
			msg += "\n" + out
		}
		return nil, serviceFailed(msg)
	}
	d.refreshTree(fs)
	return map[string]any{"output": resp.Output}, nil
}

func (d *Dispatcher) buildIndex(ctx context.Context, fs fsContracts.IFileSystem) (map[string]any, error) {
	stats, err := d.deps.Indexer.Build(ctx, fs)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Codebase index updated: %d files (%d updated, %d unchanged, %d removed), %d symbols.",
			stats.Files, stats.Updated, stats.Reused, stats.Removed, stats.Symbols),
	}, nil
}

func (d *Dispatcher) queryCodebase(ctx context.Context, fs fsContracts.IFileSystem, op *QueryCodebase) (map[string]any, error) {
	hits, err := d.deps.Indexer.Query(ctx, fs, op.Query)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []indexer.Hit{}
	}
	return map[string]any{"results": hits}, nil
}

func (d *Dispatcher) getFileHistory(ctx context.Context, fs fsContracts.IFileSystem, op *GetFileHistory) (map[string]any, error) {
	filename := normalize(op.Filename)
	git := utils.NewGitOperations(fs.Root())
	commits, err := git.FileHistory(ctx, filename, historyLimit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"history": utils.FormatHistory(filename, commits)}, nil
}

func (d *Dispatcher) rewriteFile(fs fsContracts.IFileSystem, op *RewriteFile) (map[string]any, error) {
	handle, err := fs.Resolve(op.Filename, true)
	if err != nil {
		return nil, err
	}
	if err := handle.WriteText(op.Content); err != nil {
		return nil, err
	}
	if _, err := d.deps.Sessions.UpdateContent(handle.Path(), op.Content); err != nil {
		return nil, err
	}
	d.refreshTree(fs)
	return map[string]any{"message": fmt.Sprintf("File '%s' rewritten successfully.", handle.Path())}, nil
}

func (d *Dispatcher) formatCode(fs fsContracts.IFileSystem, op *FormatCode) (map[string]any, error) {
	handle, err := fs.Resolve(op.Filename, false)
	if err != nil {
		return nil, err
	}
	original, err := handle.ReadText()
	if err != nil {
		return nil, err
	}
	formatted, err := FormatSource(handle.Path(), original)
	if err != nil {
		return nil, err
	}
	if formatted == original {
		return map[string]any{"message": fmt.Sprintf("File '%s' is already formatted.", handle.Path())}, nil
	}
	if err := handle.WriteText(formatted); err != nil {
		return nil, err
	}
	if _, err := d.deps.Sessions.UpdateContent(handle.Path(), formatted); err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("File '%s' formatted successfully.", handle.Path())}, nil
}

func (d *Dispatcher) analyzeCode(ctx context.Context, fs fsContracts.IFileSystem, op *AnalyzeCode) (map[string]any, error) {
	if strings.ToLower(path.Ext(op.Filename)) != ".js" {
		return nil, ErrUnsupportedExtension
	}
	content, err := fs.ReadText(op.Filename)
	if err != nil {
		return nil, err
	}
	outline, err := d.deps.Analyzer.AnalyzeJavaScript(ctx, []byte(content))
	if err != nil {
		return nil, err
	}
	return map[string]any{"analysis": outline}, nil
}

func (d *Dispatcher) insertContent(fs fsContracts.IFileSystem, op *InsertContent) (map[string]any, error) {
	handle, err := fs.Resolve(op.Filename, false)
	if err != nil {
		return nil, err
	}
	original, err := handle.ReadText()
	if err != nil {
		return nil, err
	}
	updated := InsertLine(original, op.LineNumber, op.Content)
	if err := handle.WriteText(updated); err != nil {
		return nil, err
	}
	d.refreshTree(fs)
	if _, err := d.deps.Sessions.UpdateContent(handle.Path(), updated); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Content inserted into '%s' at line %d.", handle.Path(), max(1, op.LineNumber)),
	}, nil
}

// InsertLine inserts content as a whole line before the 1-based lineNumber.
// Numbers below 1 insert at the top and numbers past the end append.
func InsertLine(text string, lineNumber int, content string) string {
	lines := strings.Split(text, "\n")
	at := min(max(0, lineNumber-1), len(lines))
	lines = append(lines[:at], append([]string{content}, lines[at:]...)...)
	return strings.Join(lines, "\n")
}
