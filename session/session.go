package session

import (
	"strings"

	editorContracts "github.com/yapweijun1996/AI-Code-Editor-v13/editor/contracts"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// OpenDocument is one file loaded into the editing session.
type OpenDocument struct {
	Path        string
	Handle      fsContracts.IFileHandle
	DisplayName string
	Buffer      editorContracts.BufferID
	// ViewState is captured each time the document stops being active; nil until then.
	ViewState *models.ViewState
}

// Session is the ordered set of open documents plus the active one.
// Insertion order is tab order. Only Manager mutates it.
type Session struct {
	order      []string
	documents  map[string]*OpenDocument
	activePath string
}

// NewSession returns an empty session.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset drops every document without disposing buffers.
func (s *Session) Reset() {
	s.order = nil
	s.documents = make(map[string]*OpenDocument)
	s.activePath = ""
}

func (s *Session) Len() int {
	return len(s.order)
}

// ActivePath is "" when no document is active.
func (s *Session) ActivePath() string {
	return s.activePath
}

// Paths returns open paths in tab order.
func (s *Session) Paths() []string {
	return append([]string(nil), s.order...)
}

func (s *Session) get(path string) (*OpenDocument, bool) {
	doc, ok := s.documents[path]
	return doc, ok
}

func (s *Session) insert(doc *OpenDocument) {
	if _, exists := s.documents[doc.Path]; !exists {
		s.order = append(s.order, doc.Path)
	}
	s.documents[doc.Path] = doc
}

func (s *Session) remove(path string) {
	if _, ok := s.documents[path]; !ok {
		return
	}
	delete(s.documents, path)
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activePath == path {
		s.activePath = ""
	}
}

// rekey moves a document to a new path keeping its tab position. It
// refuses to overwrite a document already open at newPath.
func (s *Session) rekey(oldPath, newPath string) bool {
	doc, ok := s.documents[oldPath]
	if !ok {
		return false
	}
	if _, taken := s.documents[newPath]; taken {
		return oldPath == newPath
	}
	delete(s.documents, oldPath)
	doc.Path = newPath
	doc.DisplayName = displayName(newPath)
	s.documents[newPath] = doc
	for i, p := range s.order {
		if p == oldPath {
			s.order[i] = newPath
		}
	}
	if s.activePath == oldPath {
		s.activePath = newPath
	}
	return true
}

func displayName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// isUnder reports whether path is dir itself or inside it.
func isUnder(path, dir string) bool {
	dir = strings.TrimSuffix(dir, "/")
	return path == dir || strings.HasPrefix(path, dir+"/")
}
