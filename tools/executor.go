package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	editorContracts "github.com/yapweijun1996/AI-Code-Editor-v13/editor/contracts"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/store"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Checkpointer snapshots the session before mutating tools.
type Checkpointer interface {
	Before(ctx context.Context, tool string) models.BestEffort
}

// Auditor records every tool call.
type Auditor interface {
	StartAudit(ctx context.Context, e store.AuditEntry) error
	FinishAudit(ctx context.Context, id, status, errMsg string, duration time.Duration) error
}

// DiagnosticsOptions tune the check that follows content edits.
type DiagnosticsOptions struct {
	// SettleDelay is always waited before markers are read.
	SettleDelay time.Duration
	// Timeout bounds the whole wait including SettleDelay.
	Timeout time.Duration
}

// Executor is the single boundary tool calls pass through. It serializes
// calls, checkpoints before mutations, converts failures into error
// responses and attaches post-edit diagnostics.
type Executor struct {
	mu          sync.Mutex
	dispatcher  *Dispatcher
	editor      editorContracts.IEditor
	checkpoints Checkpointer
	audit       Auditor
	diagnostics DiagnosticsOptions
	logger      *logrus.Entry
}

// NewExecutor wires the boundary. checkpoints and audit may be nil.
func NewExecutor(dispatcher *Dispatcher, checkpoints Checkpointer, audit Auditor, diagnostics DiagnosticsOptions) *Executor {
	return &Executor{
		dispatcher:  dispatcher,
		editor:      dispatcher.deps.Editor,
		checkpoints: checkpoints,
		audit:       audit,
		diagnostics: diagnostics,
		logger:      logging.NewLogger("executor"),
	}
}

// Execute runs call against fs, which is nil when no project is open.
// It never returns an error: failures become an error field in the response.
func (e *Executor) Execute(ctx context.Context, call models.ToolCall, fs fsContracts.IFileSystem) models.ToolResponse {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	id := e.startAudit(ctx, call, started)

	result := e.run(ctx, call, fs)

	status, errMsg := StatusSuccess, ""
	if !result.Success {
		status, errMsg = StatusError, result.Error
	}
	duration := time.Since(started)
	e.finishAudit(ctx, id, status, errMsg, duration)

	entry := e.logger.WithFields(logrus.Fields{
		"tool":     call.Name,
		"id":       id,
		"status":   status,
		"duration": duration.Round(time.Millisecond),
	})
	if result.Success {
		entry.Info("Tool call finished")
	} else {
		entry.WithField("error", errMsg).Warn("Tool call failed")
	}
	return toResponse(call.Name, result)
}

func (e *Executor) run(ctx context.Context, call models.ToolCall, fs fsContracts.IFileSystem) models.ToolResult {
	if err := Guard(call.Name, fs); err != nil {
		return models.ToolResult{Error: err.Error()}
	}
	op, err := Decode(call)
	if err != nil {
		return failed(call.Name, err)
	}

	if e.checkpoints != nil {
		e.checkpoints.Before(ctx, call.Name)
	}

	payload, err := e.dispatcher.Run(ctx, op, fs)
	if err != nil {
		return failed(call.Name, err)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	if op.Tool().MutatesContent() {
		if warning := e.diagnosticsWarning(ctx, e.dispatcher.AffectedPath(op)); warning != "" {
			msg, _ := payload["message"].(string)
			payload["message"] = msg + warning
		}
	}
	return models.ToolResult{Success: true, Payload: payload}
}

func failed(name string, err error) models.ToolResult {
	return models.ToolResult{Error: fmt.Sprintf("Error executing tool '%s': %s", name, err.Error())}
}

func toResponse(name string, result models.ToolResult) models.ToolResponse {
	response := result.Payload
	if !result.Success {
		response = map[string]any{"error": result.Error}
	}
	return models.ToolResponse{ToolResponse: models.ToolResponseBody{Name: name, Response: response}}
}

// diagnosticsWarning waits for the editor to validate path and formats its
// error markers. An empty string means nothing to report.
func (e *Executor) diagnosticsWarning(ctx context.Context, path string) string {
	if path == "" || e.editor == nil {
		return ""
	}
	if e.diagnostics.SettleDelay > 0 {
		timer := time.NewTimer(e.diagnostics.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	remaining := max(e.diagnostics.Timeout-e.diagnostics.SettleDelay, 0)
	markers := e.editor.WaitForDiagnostics(ctx, path, remaining)
	return FormatDiagnostics(markers)
}

// FormatDiagnostics renders the error-severity markers as a warning block.
func FormatDiagnostics(markers []models.Marker) string {
	var b strings.Builder
	for _, m := range markers {
		if m.Severity != models.SeverityError {
			continue
		}
		fmt.Fprintf(&b, "\n- Line %d: %s", m.Line, m.Message)
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n\nWarning: the following errors were found after the change:" + b.String()
}

func (e *Executor) startAudit(ctx context.Context, call models.ToolCall, started time.Time) string {
	id := uuid.NewString()
	if e.audit == nil {
		return id
	}
	args, err := json.Marshal(call.Args)
	if err != nil {
		args = []byte("{}")
	}
	err = e.audit.StartAudit(ctx, store.AuditEntry{
		ID:        id,
		Tool:      call.Name,
		Args:      string(args),
		Status:    StatusPending,
		StartedAt: started,
	})
	if err != nil {
		e.logger.WithError(err).Warn("Failed to record audit entry")
	}
	return id
}

func (e *Executor) finishAudit(ctx context.Context, id, status, errMsg string, duration time.Duration) {
	if e.audit == nil {
		return
	}
	// the call may have been cancelled; the audit row is still closed
	if err := e.audit.FinishAudit(context.WithoutCancel(ctx), id, status, errMsg, duration); err != nil {
		e.logger.WithError(err).Warn("Failed to finalize audit entry")
	}
}
