package editor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yapweijun1996/AI-Code-Editor-v13/editor/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// PlaceholderText is shown while no document is bound.
const PlaceholderText = "// Select a file to view its content"

type buffer struct {
	id        contracts.BufferID
	path      string
	text      string
	version   uint64
	validated uint64
	markers   []models.Marker
	history   []contracts.EditRecord
	// notify is closed and replaced whenever a validation pass lands.
	notify chan struct{}
}

// Workbench is an in-process editor: text models, one visible view and
// background diagnostics.
type Workbench struct {
	mu       sync.Mutex
	buffers  map[contracts.BufferID]*buffer
	byPath   map[string]contracts.BufferID
	bound    contracts.BufferID
	view     models.ViewState
	readOnly bool
	focused  bool

	validator Validator
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *logrus.Entry
}

var _ contracts.IEditor = (*Workbench)(nil)

// NewWorkbench starts read-only with the placeholder shown. A nil validator
// marks every version as validated with no markers.
func NewWorkbench(validator Validator) *Workbench {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workbench{
		buffers:   make(map[contracts.BufferID]*buffer),
		byPath:    make(map[string]contracts.BufferID),
		readOnly:  true,
		validator: validator,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.NewLogger("editor"),
	}
}

// Close stops pending validations.
func (w *Workbench) Close() {
	w.cancel()
	w.wg.Wait()
}

func (w *Workbench) CreateBuffer(path, content string) contracts.BufferID {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := &buffer{
		id:     contracts.BufferID(uuid.NewString()),
		path:   path,
		text:   content,
		notify: make(chan struct{}),
	}
	w.buffers[b.id] = b
	w.byPath[path] = b.id
	w.changedLocked(b)
	return b.id
}

func (w *Workbench) DisposeBuffer(id contracts.BufferID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[id]
	if !ok {
		return
	}
	delete(w.buffers, id)
	if w.byPath[b.path] == id {
		delete(w.byPath, b.path)
	}
	if w.bound == id {
		w.bound = ""
	}
	close(b.notify)
}

func (w *Workbench) lookup(id contracts.BufferID) (*buffer, error) {
	b, ok := w.buffers[id]
	if !ok {
		return nil, fmt.Errorf("buffer %s is disposed", id)
	}
	return b, nil
}

func (w *Workbench) GetText(id contracts.BufferID) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, err := w.lookup(id)
	if err != nil {
		return "", err
	}
	return b.text, nil
}

func (w *Workbench) SetText(id contracts.BufferID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	b.text = text
	w.changedLocked(b)
	return nil
}

func (w *Workbench) SetBufferPath(id contracts.BufferID, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	if w.byPath[b.path] == id {
		delete(w.byPath, b.path)
	}
	b.path = path
	for i := range b.markers {
		b.markers[i].Path = path
	}
	w.byPath[path] = id
	return nil
}

// Text returns the text currently visible, the placeholder when nothing is bound.
func (w *Workbench) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.buffers[w.bound]; ok {
		return b.text
	}
	return PlaceholderText
}

func (w *Workbench) Bind(id contracts.BufferID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.lookup(id); err != nil {
		return err
	}
	w.bound = id
	w.view = models.ViewState{Cursor: models.Position{Line: 1, Column: 1}}
	w.readOnly = false
	return nil
}

func (w *Workbench) Bound() (contracts.BufferID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bound, w.bound != ""
}

func (w *Workbench) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bound = ""
	w.view = models.ViewState{}
	w.readOnly = true
	w.focused = false
}

func (w *Workbench) SetReadOnly(readOnly bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readOnly = readOnly
}

func (w *Workbench) ReadOnly() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readOnly
}

func (w *Workbench) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = true
}

// Focused reports whether Focus was called since the last Clear.
func (w *Workbench) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

func (w *Workbench) SaveViewState() *models.ViewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound == "" {
		return nil
	}
	return cloneViewState(&w.view)
}

func (w *Workbench) RestoreViewState(state *models.ViewState) {
	if state == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view = *cloneViewState(state)
}

func (w *Workbench) Selection() *models.Range {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bound == "" || w.view.Selection == nil {
		return nil
	}
	sel := *w.view.Selection
	return &sel
}

func (w *Workbench) SetSelection(r models.Range) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view.Selection = &r
	w.view.Cursor = r.End
}

// ApplyEdit replaces r in the bound buffer and records actor on the edit.
func (w *Workbench) ApplyEdit(actor string, r models.Range, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[w.bound]
	if !ok {
		return fmt.Errorf("no document is bound to the editor")
	}
	start, err := offsetOf(b.text, r.Start)
	if err != nil {
		return err
	}
	end, err := offsetOf(b.text, r.End)
	if err != nil {
		return err
	}
	if end < start {
		start, end = end, start
	}
	b.text = b.text[:start] + text + b.text[end:]
	b.history = append(b.history, contracts.EditRecord{Actor: actor, Range: r, Text: text})

	endPos := positionAt(b.text, start+len(text))
	w.view.Cursor = endPos
	w.view.Selection = &models.Range{Start: endPos, End: endPos}
	w.changedLocked(b)
	return nil
}

// History returns the edits applied through ApplyEdit to a buffer.
func (w *Workbench) History(id contracts.BufferID) []contracts.EditRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.buffers[id]; ok {
		return append([]contracts.EditRecord(nil), b.history...)
	}
	return nil
}

func (w *Workbench) Markers(path string) []models.Marker {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[w.byPath[path]]
	if !ok {
		return nil
	}
	return append([]models.Marker(nil), b.markers...)
}

// SetMarkers replaces the markers of path, as an external validator would.
func (w *Workbench) SetMarkers(path string, markers []models.Marker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.buffers[w.byPath[path]]; ok {
		b.markers = append([]models.Marker(nil), markers...)
	}
}

func (w *Workbench) WaitForDiagnostics(ctx context.Context, path string, timeout time.Duration) []models.Marker {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		w.mu.Lock()
		b, ok := w.buffers[w.byPath[path]]
		if !ok {
			w.mu.Unlock()
			return nil
		}
		if b.validated >= b.version {
			markers := append([]models.Marker(nil), b.markers...)
			w.mu.Unlock()
			return markers
		}
		notify := b.notify
		w.mu.Unlock()

		select {
		case <-notify:
		case <-timer.C:
			return w.Markers(path)
		case <-ctx.Done():
			return w.Markers(path)
		}
	}
}

// changedLocked bumps the version and schedules validation. Caller holds w.mu.
func (w *Workbench) changedLocked(b *buffer) {
	b.version++
	if w.validator == nil {
		w.landLocked(b, b.version, nil)
		return
	}
	version, path, text := b.version, b.path, b.text
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		markers, err := w.validator(w.ctx, path, text)
		if err != nil {
			w.logger.WithError(err).Debugf("Validation failed for %s", path)
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if current, ok := w.buffers[b.id]; ok && current == b && b.version == version {
			w.landLocked(b, version, markers)
		}
	}()
}

func (w *Workbench) landLocked(b *buffer, version uint64, markers []models.Marker) {
	b.validated = version
	b.markers = markers
	close(b.notify)
	b.notify = make(chan struct{})
}

func cloneViewState(v *models.ViewState) *models.ViewState {
	c := *v
	if v.Selection != nil {
		sel := *v.Selection
		c.Selection = &sel
	}
	c.Folded = append([]int(nil), v.Folded...)
	return &c
}

// offsetOf converts a 1-based position to a byte offset, clamping the column to the line.
func offsetOf(text string, p models.Position) (int, error) {
	lines := strings.Split(text, "\n")
	if p.Line < 1 || p.Line > len(lines) {
		return 0, fmt.Errorf("line %d is out of range (1-%d)", p.Line, len(lines))
	}
	offset := 0
	for _, l := range lines[:p.Line-1] {
		offset += len(l) + 1
	}
	col := p.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(lines[p.Line-1]) {
		col = len(lines[p.Line-1])
	}
	return offset + col, nil
}

// TextInRange returns the text a 1-based, end-exclusive range covers.
func TextInRange(text string, r models.Range) (string, error) {
	start, err := offsetOf(text, r.Start)
	if err != nil {
		return "", err
	}
	end, err := offsetOf(text, r.End)
	if err != nil {
		return "", err
	}
	if end < start {
		start, end = end, start
	}
	return text[start:end], nil
}

func positionAt(text string, offset int) models.Position {
	line, col := lineColumnAt(text, offset)
	return models.Position{Line: line, Column: col}
}
