package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "editor.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckpointLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	active := "a.js"
	cp := models.Checkpoint{
		Name:      "Auto-checkpoint before rewrite_file",
		Timestamp: 1000,
		EditorState: models.EditorState{
			OpenFiles:  []models.OpenFileState{{Path: "a.js", Content: "let a;", ViewState: &models.ViewState{ScrollTop: 4}}},
			ActiveFile: &active,
		},
	}

	id, err := s.SaveCheckpoint(ctx, cp)
	require.NoError(t, err)
	_, err = s.SaveCheckpoint(ctx, models.Checkpoint{Name: "later", Timestamp: 2000})
	require.NoError(t, err)

	got, err := s.GetCheckpoint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cp.Name, got.Name)
	assert.Equal(t, cp.EditorState, got.EditorState)

	list, err := s.ListCheckpoints(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "later", list[0].Name)

	require.NoError(t, s.DeleteCheckpoint(ctx, id))
	_, err = s.GetCheckpoint(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCheckpoint(ctx, id), ErrNotFound)
}

func TestIndexRecordIsReplaced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadIndex(ctx, "codebase")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveIndex(ctx, "codebase", []byte("v1")))
	require.NoError(t, s.SaveIndex(ctx, "codebase", []byte("v2")))
	data, err := s.LoadIndex(ctx, "codebase")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestAuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, s.StartAudit(ctx, AuditEntry{ID: "1", Tool: "read_file", Args: `{"filename":"a"}`, Status: "pending", StartedAt: start}))
	require.NoError(t, s.FinishAudit(ctx, "1", "error", "boom", 15*time.Millisecond))

	entries, err := s.RecentAudit(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Status)
	assert.Equal(t, "boom", entries[0].Error)
	assert.Equal(t, int64(15), entries[0].DurationMs)
}
