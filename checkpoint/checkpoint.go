package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// Store is the persistence the checkpoints live in.
type Store interface {
	SaveCheckpoint(ctx context.Context, cp models.Checkpoint) (int64, error)
	GetCheckpoint(ctx context.Context, id int64) (*models.Checkpoint, error)
	ListCheckpoints(ctx context.Context, limit int) ([]models.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, id int64) error
}

// Sessions is the part of the session manager checkpoints need.
type Sessions interface {
	Paths() []string
	CaptureSessionState() models.EditorState
	RestoreFromSnapshot(fs fsContracts.IFileSystem, state models.EditorState, discardExisting bool) error
}

// ErrEmptySession is returned by Create when no document is open.
var ErrEmptySession = errors.New("no open documents to checkpoint")

// Interceptor snapshots the session before mutating tools run.
type Interceptor struct {
	store    Store
	sessions Sessions
	triggers map[string]bool
	now      func() time.Time
	logger   *logrus.Entry
}

// NewInterceptor checkpoints before every tool named in triggers.
func NewInterceptor(store Store, sessions Sessions, triggers []string) *Interceptor {
	set := make(map[string]bool, len(triggers))
	for _, t := range triggers {
		set[t] = true
	}
	return &Interceptor{
		store:    store,
		sessions: sessions,
		triggers: set,
		now:      time.Now,
		logger:   logging.NewLogger("checkpoint"),
	}
}

// Triggers reports whether tool causes an automatic checkpoint.
func (i *Interceptor) Triggers(tool string) bool {
	return i.triggers[tool]
}

// Before saves an automatic checkpoint if tool is a trigger and a document
// is open. Failures are logged and returned in the result, never raised.
func (i *Interceptor) Before(ctx context.Context, tool string) models.BestEffort {
	if !i.triggers[tool] || len(i.sessions.Paths()) == 0 {
		return models.BestEffort{}
	}
	now := i.now()
	name := fmt.Sprintf("Auto-checkpoint before %s @ %s", tool, now.Format(time.RFC3339))
	id, err := i.save(ctx, name, now)
	if err != nil {
		i.logger.WithError(err).WithField("tool", tool).Warn("Failed to create automatic checkpoint")
		return models.BestEffort{Attempted: true, Err: err}
	}
	i.logger.WithField("tool", tool).WithField("checkpoint", id).Debug("Automatic checkpoint saved")
	return models.BestEffort{Attempted: true}
}

func (i *Interceptor) save(ctx context.Context, name string, at time.Time) (int64, error) {
	if i.store == nil {
		return 0, errors.New("checkpoint storage is unavailable")
	}
	cp := models.Checkpoint{
		Name:        name,
		Timestamp:   at.UnixMilli(),
		EditorState: i.sessions.CaptureSessionState(),
	}
	return i.store.SaveCheckpoint(ctx, cp)
}

// Create saves a named checkpoint of the current session on request.
func (i *Interceptor) Create(ctx context.Context, name string) (int64, error) {
	if len(i.sessions.Paths()) == 0 {
		return 0, ErrEmptySession
	}
	now := i.now()
	if name == "" {
		name = fmt.Sprintf("Manual checkpoint @ %s", now.Format(time.RFC3339))
	}
	return i.save(ctx, name, now)
}

// List returns saved checkpoints, newest first.
func (i *Interceptor) List(ctx context.Context, limit int) ([]models.Checkpoint, error) {
	return i.store.ListCheckpoints(ctx, limit)
}

// Restore replaces the whole session with checkpoint id.
func (i *Interceptor) Restore(ctx context.Context, fs fsContracts.IFileSystem, id int64) (*models.Checkpoint, error) {
	cp, err := i.store.GetCheckpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := i.sessions.RestoreFromSnapshot(fs, cp.EditorState, true); err != nil {
		i.logger.WithError(err).Warnf("Checkpoint %d restored with errors", id)
		return cp, err
	}
	return cp, nil
}

func (i *Interceptor) Delete(ctx context.Context, id int64) error {
	return i.store.DeleteCheckpoint(ctx, id)
}
