package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

type fakeStore struct {
	saved []models.Checkpoint
	err   error
}

func (s *fakeStore) SaveCheckpoint(_ context.Context, cp models.Checkpoint) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, cp)
	return int64(len(s.saved)), nil
}

func (s *fakeStore) GetCheckpoint(_ context.Context, id int64) (*models.Checkpoint, error) {
	if id < 1 || int(id) > len(s.saved) {
		return nil, errors.New("not found")
	}
	cp := s.saved[id-1]
	return &cp, nil
}

func (s *fakeStore) ListCheckpoints(context.Context, int) ([]models.Checkpoint, error) {
	return s.saved, nil
}

func (s *fakeStore) DeleteCheckpoint(context.Context, int64) error { return nil }

type fakeSessions struct {
	paths    []string
	captured int
	restored *models.EditorState
}

func (f *fakeSessions) Paths() []string { return f.paths }

func (f *fakeSessions) CaptureSessionState() models.EditorState {
	f.captured++
	state := models.EditorState{}
	for _, p := range f.paths {
		state.OpenFiles = append(state.OpenFiles, models.OpenFileState{Path: p, Content: "x"})
	}
	return state
}

func (f *fakeSessions) RestoreFromSnapshot(_ fsContracts.IFileSystem, state models.EditorState, discard bool) error {
	f.restored = &state
	return nil
}

var triggers = []string{"create_file", "delete_file", "rewrite_file", "insert_content"}

func TestInterceptor_OnlyTriggersWithOpenDocuments(t *testing.T) {
	store := &fakeStore{}
	sessions := &fakeSessions{}
	ic := NewInterceptor(store, sessions, triggers)

	res := ic.Before(context.Background(), "rewrite_file")
	assert.False(t, res.Attempted)
	assert.Zero(t, sessions.captured)

	sessions.paths = []string{"a.js"}
	res = ic.Before(context.Background(), "read_file")
	assert.False(t, res.Attempted)
	assert.Empty(t, store.saved)

	res = ic.Before(context.Background(), "rewrite_file")
	assert.True(t, res.Attempted)
	assert.NoError(t, res.Err)
	require.Len(t, store.saved, 1)
	assert.Len(t, store.saved[0].EditorState.OpenFiles, 1)
}

func TestInterceptor_NameAndTimestamp(t *testing.T) {
	store := &fakeStore{}
	ic := NewInterceptor(store, &fakeSessions{paths: []string{"a.js"}}, triggers)
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	ic.now = func() time.Time { return fixed }

	ic.Before(context.Background(), "delete_file")
	require.Len(t, store.saved, 1)
	assert.Equal(t, "Auto-checkpoint before delete_file @ 2024-05-01T12:30:00Z", store.saved[0].Name)
	assert.Equal(t, fixed.UnixMilli(), store.saved[0].Timestamp)
}

func TestInterceptor_FailuresAreSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	ic := NewInterceptor(store, &fakeSessions{paths: []string{"a.js"}}, triggers)

	res := ic.Before(context.Background(), "create_file")
	assert.True(t, res.Attempted)
	assert.ErrorContains(t, res.Err, "locked")

	nilStore := NewInterceptor(nil, &fakeSessions{paths: []string{"a.js"}}, triggers)
	res = nilStore.Before(context.Background(), "create_file")
	assert.True(t, res.Attempted)
	assert.Error(t, res.Err)
}

func TestInterceptor_CreateAndRestore(t *testing.T) {
	store := &fakeStore{}
	sessions := &fakeSessions{}
	ic := NewInterceptor(store, sessions, triggers)

	_, err := ic.Create(context.Background(), "mine")
	assert.ErrorIs(t, err, ErrEmptySession)

	sessions.paths = []string{"a.js", "b.js"}
	id, err := ic.Create(context.Background(), "mine")
	require.NoError(t, err)

	cp, err := ic.Restore(context.Background(), nil, id)
	require.NoError(t, err)
	assert.Equal(t, "mine", cp.Name)
	require.NotNil(t, sessions.restored)
	assert.Len(t, sessions.restored.OpenFiles, 2)
}
