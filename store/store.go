package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists checkpoints, the codebase index and the tool audit log in sqlite.
type Store struct {
	db *sql.DB
}

// AuditEntry is one tool call as recorded by the executor.
type AuditEntry struct {
	ID         string
	Tool       string
	Args       string
	Status     string
	Error      string
	StartedAt  time.Time
	DurationMs int64
}

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT    NOT NULL,
	timestamp    INTEGER NOT NULL,
	editor_state TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_timestamp ON checkpoints(timestamp);

CREATE TABLE IF NOT EXISTS code_index (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	tool        TEXT    NOT NULL,
	args        TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_started ON audit_log(started_at);
`

// Open creates the database file and its parent directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCheckpoint inserts a checkpoint and returns its id.
func (s *Store) SaveCheckpoint(ctx context.Context, cp models.Checkpoint) (int64, error) {
	state, err := json.Marshal(cp.EditorState)
	if err != nil {
		return 0, fmt.Errorf("encode editor state: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (name, timestamp, editor_state) VALUES (?, ?, ?)`,
		cp.Name, cp.Timestamp, string(state))
	if err != nil {
		return 0, fmt.Errorf("save checkpoint: %w", err)
	}
	return res.LastInsertId()
}

// GetCheckpoint loads one checkpoint with its editor state.
func (s *Store) GetCheckpoint(ctx context.Context, id int64) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, timestamp, editor_state FROM checkpoints WHERE id = ?`, id).
		Scan(&cp.ID, &cp.Name, &cp.Timestamp, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(state), &cp.EditorState); err != nil {
		return nil, fmt.Errorf("decode checkpoint %d: %w", id, err)
	}
	return &cp, nil
}

// ListCheckpoints returns checkpoints newest first, without their editor state.
func (s *Store) ListCheckpoints(ctx context.Context, limit int) ([]models.Checkpoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, timestamp FROM checkpoints ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Timestamp); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCheckpoint(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete checkpoint %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("checkpoint %d: %w", id, ErrNotFound)
	}
	return nil
}

// SaveIndex replaces the single codebase index record.
func (s *Store) SaveIndex(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO code_index (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// LoadIndex returns ErrNotFound when no index was built yet.
func (s *Store) LoadIndex(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM code_index WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return data, nil
}

// StartAudit records a pending tool call.
func (s *Store) StartAudit(ctx context.Context, e AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, tool, args, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Tool, e.Args, e.Status, e.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// FinishAudit sets the final status of a tool call.
func (s *Store) FinishAudit(ctx context.Context, id, status, errMsg string, duration time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_log SET status = ?, error = ?, duration_ms = ? WHERE id = ?`,
		status, errMsg, duration.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("finalize audit entry: %w", err)
	}
	return nil
}

// RecentAudit returns the latest tool calls, newest first.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, args, status, error, started_at, duration_ms
		 FROM audit_log ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var started int64
		if err := rows.Scan(&e.ID, &e.Tool, &e.Args, &e.Status, &e.Error, &started, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		out = append(out, e)
	}
	return out, rows.Err()
}
