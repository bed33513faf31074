package contracts

import (
	"context"
	"time"

	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// BufferID identifies an editor-owned text model.
type BufferID string

// EditRecord is one applied edit, tagged with who made it.
type EditRecord struct {
	Actor string
	Range models.Range
	Text  string
}

// IEditor is the editor widget the session drives.
type IEditor interface {
	CreateBuffer(path, content string) BufferID
	DisposeBuffer(id BufferID)
	GetText(id BufferID) (string, error)
	SetText(id BufferID, text string) error
	// SetBufferPath re-associates a buffer and its markers with a renamed file.
	SetBufferPath(id BufferID, path string) error

	// Bind shows the buffer in the editor and makes it writable.
	Bind(id BufferID) error
	Bound() (BufferID, bool)
	// Clear shows the empty read-only placeholder.
	Clear()
	SetReadOnly(readOnly bool)
	ReadOnly() bool
	Focus()

	SaveViewState() *models.ViewState
	RestoreViewState(state *models.ViewState)
	Selection() *models.Range
	SetSelection(r models.Range)
	ApplyEdit(actor string, r models.Range, text string) error

	Markers(path string) []models.Marker
	// WaitForDiagnostics blocks until the current text of path has been
	// validated or timeout passes, then returns its markers.
	WaitForDiagnostics(ctx context.Context, path string, timeout time.Duration) []models.Marker
}
