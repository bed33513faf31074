package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	editorContracts "github.com/yapweijun1996/AI-Code-Editor-v13/editor/contracts"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// Manager is the tab and view-state machine. Every change to the session goes through it.
type Manager struct {
	mu      sync.Mutex
	session *Session
	editor  editorContracts.IEditor
	tabs    TabRenderer
	logger  *logrus.Entry
}

// NewManager drives session through editor, redrawing tabs after each change.
// A nil tabs renderer is allowed.
func NewManager(session *Session, editor editorContracts.IEditor, tabs TabRenderer) *Manager {
	return &Manager{
		session: session,
		editor:  editor,
		tabs:    tabs,
		logger:  logging.NewLogger("session"),
	}
}

// Open loads the document from its handle, or activates it when already open.
func (m *Manager) Open(path string, handle fsContracts.IFileHandle, focus bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.session.get(path); ok {
		return m.activate(path, focus)
	}
	content, err := handle.ReadText()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return m.openContent(path, handle, content, focus)
}

// OpenContent opens path with the given text instead of reading the handle.
// An already open document is only activated.
func (m *Manager) OpenContent(path string, handle fsContracts.IFileHandle, content string, focus bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.session.get(path); ok {
		return m.activate(path, focus)
	}
	return m.openContent(path, handle, content, focus)
}

func (m *Manager) openContent(path string, handle fsContracts.IFileHandle, content string, focus bool) error {
	m.session.insert(&OpenDocument{
		Path:        path,
		Handle:      handle,
		DisplayName: displayName(path),
		Buffer:      m.editor.CreateBuffer(path, content),
	})
	return m.activate(path, focus)
}

// Activate switches the editor to path, keeping the outgoing document's view-state.
func (m *Manager) Activate(path string, focus bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activate(path, focus)
}

func (m *Manager) activate(path string, focus bool) error {
	doc, ok := m.session.get(path)
	if !ok {
		return fmt.Errorf("document %s is not open", path)
	}
	m.captureActive()

	m.session.activePath = path
	if err := m.editor.Bind(doc.Buffer); err != nil {
		return fmt.Errorf("failed to show %s: %w", path, err)
	}
	m.editor.SetReadOnly(false)
	if doc.ViewState != nil {
		m.editor.RestoreViewState(doc.ViewState)
	}
	if focus {
		m.editor.Focus()
	}
	m.render()
	return nil
}

func (m *Manager) captureActive() {
	if active, ok := m.session.get(m.session.activePath); ok {
		if state := m.editor.SaveViewState(); state != nil {
			active.ViewState = state
		}
	}
}

// Close disposes the document. Closing the active tab activates the first
// remaining tab in insertion order, or clears the editor when none remain.
func (m *Manager) Close(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.close(path)
}

func (m *Manager) close(path string) {
	doc, ok := m.session.get(path)
	if !ok {
		return
	}
	wasActive := m.session.activePath == path
	m.editor.DisposeBuffer(doc.Buffer)
	m.session.remove(path)

	if !wasActive {
		m.render()
		return
	}
	if m.session.Len() > 0 {
		next := m.session.order[0]
		if err := m.activate(next, false); err != nil {
			m.logger.WithError(err).Warnf("Failed to activate %s after closing %s", next, path)
		}
		return
	}
	m.editor.Clear()
	m.render()
}

// CloseUnder closes every document at or inside dir and returns their paths.
func (m *Manager) CloseUnder(dir string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closed []string
	for _, p := range m.session.Paths() {
		if isUnder(p, dir) {
			m.close(p)
			closed = append(closed, p)
		}
	}
	return closed
}

// CaptureSessionState snapshots every open document with its live text.
func (m *Manager) CaptureSessionState() models.EditorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureActive()

	state := models.EditorState{OpenFiles: make([]models.OpenFileState, 0, m.session.Len())}
	for _, p := range m.session.order {
		doc := m.session.documents[p]
		text, err := m.editor.GetText(doc.Buffer)
		if err != nil {
			m.logger.WithError(err).Warnf("Skipping %s in session snapshot", p)
			continue
		}
		state.OpenFiles = append(state.OpenFiles, models.OpenFileState{Path: p, Content: text, ViewState: doc.ViewState})
	}
	if m.session.activePath != "" {
		active := m.session.activePath
		state.ActiveFile = &active
	}
	return state
}

// RestoreFromSnapshot installs the snapshot's documents using the saved
// content, never the files on disk. With discardExisting every current
// document is disposed first. Entries that fail are skipped and reported.
func (m *Manager) RestoreFromSnapshot(fs fsContracts.IFileSystem, state models.EditorState, discardExisting bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if discardExisting {
		for _, p := range m.session.order {
			m.editor.DisposeBuffer(m.session.documents[p].Buffer)
		}
		m.session.Reset()
		m.editor.Clear()
	} else {
		m.captureActive()
	}

	var errs []error
	var restored []string
	for _, file := range state.OpenFiles {
		handle, err := fs.Resolve(file.Path, true)
		if err != nil {
			m.logger.WithError(err).Warnf("Failed to restore %s", file.Path)
			errs = append(errs, fmt.Errorf("restore %s: %w", file.Path, err))
			continue
		}
		if doc, ok := m.session.get(file.Path); ok {
			if err := m.editor.SetText(doc.Buffer, file.Content); err != nil {
				errs = append(errs, fmt.Errorf("restore %s: %w", file.Path, err))
				continue
			}
			doc.Handle = handle
			doc.ViewState = file.ViewState
		} else {
			m.session.insert(&OpenDocument{
				Path:        file.Path,
				Handle:      handle,
				DisplayName: displayName(file.Path),
				Buffer:      m.editor.CreateBuffer(file.Path, file.Content),
				ViewState:   file.ViewState,
			})
		}
		restored = append(restored, file.Path)
	}

	if discardExisting {
		m.session.activePath = ""
	}
	switch {
	case state.ActiveFile != nil && m.has(*state.ActiveFile):
		errs = append(errs, m.activate(*state.ActiveFile, false))
	case len(restored) > 0:
		errs = append(errs, m.activate(restored[0], false))
	default:
		m.render()
	}
	return errors.Join(errs...)
}

func (m *Manager) has(path string) bool {
	_, ok := m.session.get(path)
	return ok
}

// SaveActive writes the active document's live text through its handle.
func (m *Manager) SaveActive() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.session.get(m.session.activePath)
	if !ok {
		return errors.New("no document is active")
	}
	return m.save(doc)
}

// SaveAll saves every open document in tab order, continuing past failures.
// It returns the failures keyed by path, or nil.
func (m *Manager) SaveAll() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var failures map[string]error
	for _, p := range m.session.order {
		if err := m.save(m.session.documents[p]); err != nil {
			m.logger.WithError(err).Errorf("Failed to save %s", p)
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[p] = err
		}
	}
	return failures
}

func (m *Manager) save(doc *OpenDocument) error {
	text, err := m.editor.GetText(doc.Buffer)
	if err != nil {
		return fmt.Errorf("failed to read buffer of %s: %w", doc.Path, err)
	}
	if err := doc.Handle.WriteText(text); err != nil {
		return fmt.Errorf("failed to save %s: %w", doc.Path, err)
	}
	return nil
}

func (m *Manager) IsOpen(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.has(path)
}

func (m *Manager) ActivePath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.activePath
}

// Document returns a copy of the open document at path.
func (m *Manager) Document(path string) (OpenDocument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.session.get(path)
	if !ok {
		return OpenDocument{}, false
	}
	return *doc, true
}

func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Paths()
}

// Text returns the live buffer text of an open document.
func (m *Manager) Text(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.session.get(path)
	if !ok {
		return "", fmt.Errorf("document %s is not open", path)
	}
	return m.editor.GetText(doc.Buffer)
}

// UpdateContent replaces the buffer text of path if it is open, reporting whether it was.
func (m *Manager) UpdateContent(path, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.session.get(path)
	if !ok {
		return false, nil
	}
	if err := m.editor.SetText(doc.Buffer, text); err != nil {
		return true, fmt.Errorf("failed to update %s: %w", path, err)
	}
	return true, nil
}

// Rename re-keys documents at or inside oldPath to newPath, keeping tab
// order and the active tab. A document already open at a target path is
// closed first. resolve supplies the handle for each new path.
func (m *Manager) Rename(oldPath, newPath string, resolve func(path string) (fsContracts.IFileHandle, error)) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved []string
	for _, p := range m.session.Paths() {
		if !isUnder(p, oldPath) || !m.has(p) {
			continue
		}
		target := newPath + p[len(oldPath):]
		if target != p && m.has(target) {
			m.logger.Infof("Closing %s, replaced by %s", target, p)
			m.close(target)
		}
		if !m.session.rekey(p, target) {
			m.logger.Warnf("Cannot move %s onto open document %s", p, target)
			continue
		}
		if err := m.editor.SetBufferPath(m.session.documents[target].Buffer, target); err != nil {
			m.logger.WithError(err).Warnf("Failed to rename buffer of %s", target)
		}
		if handle, err := resolve(target); err == nil {
			m.session.documents[target].Handle = handle
		} else {
			m.logger.WithError(err).Warnf("Renamed document %s has no handle", target)
		}
		moved = append(moved, target)
	}
	if len(moved) > 0 {
		m.render()
	}
	return moved
}

func (m *Manager) render() {
	if m.tabs == nil {
		return
	}
	tabs := make([]Tab, 0, m.session.Len())
	for _, p := range m.session.order {
		doc := m.session.documents[p]
		tabs = append(tabs, Tab{Path: p, DisplayName: doc.DisplayName, Active: p == m.session.activePath})
	}
	m.tabs.RenderTabs(tabs)
}
