package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

func pos(line, col int) models.Position { return models.Position{Line: line, Column: col} }

func TestWorkbench_BindClearAndReadOnly(t *testing.T) {
	w := NewWorkbench(nil)
	defer w.Close()

	assert.True(t, w.ReadOnly())
	assert.Equal(t, PlaceholderText, w.Text())

	id := w.CreateBuffer("a.js", "let a;")
	require.NoError(t, w.Bind(id))
	assert.False(t, w.ReadOnly())
	assert.Equal(t, "let a;", w.Text())

	w.Clear()
	assert.True(t, w.ReadOnly())
	_, bound := w.Bound()
	assert.False(t, bound)
	assert.Nil(t, w.SaveViewState())

	w.DisposeBuffer(id)
	_, err := w.GetText(id)
	assert.Error(t, err)
	assert.Error(t, w.Bind(id))
}

func TestWorkbench_ViewStateRoundTrip(t *testing.T) {
	w := NewWorkbench(nil)
	defer w.Close()

	id := w.CreateBuffer("a.js", "one\ntwo\nthree")
	require.NoError(t, w.Bind(id))
	w.SetSelection(models.Range{Start: pos(2, 1), End: pos(2, 4)})

	saved := w.SaveViewState()
	require.NotNil(t, saved)
	assert.Equal(t, pos(2, 4), saved.Cursor)

	require.NoError(t, w.Bind(id))
	assert.Nil(t, w.Selection())

	w.RestoreViewState(saved)
	require.NotNil(t, w.Selection())
	assert.Equal(t, pos(2, 1), w.Selection().Start)
}

func TestWorkbench_ApplyEditRecordsActor(t *testing.T) {
	w := NewWorkbench(nil)
	defer w.Close()

	id := w.CreateBuffer("a.js", "hello world\nbye")
	require.NoError(t, w.Bind(id))

	require.NoError(t, w.ApplyEdit("ai-agent", models.Range{Start: pos(1, 7), End: pos(1, 12)}, "there"))
	text, err := w.GetText(id)
	require.NoError(t, err)
	assert.Equal(t, "hello there\nbye", text)

	history := w.History(id)
	require.Len(t, history, 1)
	assert.Equal(t, "ai-agent", history[0].Actor)
	assert.True(t, w.Selection().Empty())

	assert.Error(t, w.ApplyEdit("ai-agent", models.Range{Start: pos(9, 1), End: pos(9, 1)}, "x"))
}

func TestWorkbench_WaitForDiagnosticsReportsSyntaxErrors(t *testing.T) {
	w := NewWorkbench(AnalyzerValidator(code_analyzer.NewCodeAnalyzer("")))
	defer w.Close()

	id := w.CreateBuffer("app.js", "const ok = 1;\n")
	ctx := context.Background()
	assert.Empty(t, w.WaitForDiagnostics(ctx, "app.js", 2*time.Second))

	require.NoError(t, w.SetText(id, "const ok = 1;\nfunction broken( {\n"))
	markers := w.WaitForDiagnostics(ctx, "app.js", 2*time.Second)
	require.NotEmpty(t, markers)
	assert.Equal(t, models.SeverityError, markers[0].Severity)
	assert.Equal(t, "app.js", markers[0].Path)
}

func TestWorkbench_WaitForDiagnosticsTimesOut(t *testing.T) {
	block := make(chan struct{})
	w := NewWorkbench(func(ctx context.Context, path, text string) ([]models.Marker, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, nil
	})
	defer w.Close()
	defer close(block)

	w.CreateBuffer("slow.js", "x")
	w.SetMarkers("slow.js", []models.Marker{{Path: "slow.js", Line: 1, Severity: models.SeverityError, Message: "stale"}})

	start := time.Now()
	markers := w.WaitForDiagnostics(context.Background(), "slow.js", 50*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Len(t, markers, 1)
	assert.Equal(t, "stale", markers[0].Message)

	assert.Nil(t, w.WaitForDiagnostics(context.Background(), "unknown.js", time.Millisecond))
}

func TestValidateJSON(t *testing.T) {
	assert.Empty(t, validateJSON("a.json", `{"a": 1}`))
	markers := validateJSON("a.json", "{\n  \"a\": ,\n}")
	require.Len(t, markers, 1)
	assert.Equal(t, 2, markers[0].Line)
}
