package models

// OpenFileState is one open document inside a session snapshot.
type OpenFileState struct {
	Path      string     `json:"path"`
	Content   string     `json:"content"`
	ViewState *ViewState `json:"viewState"`
}

// EditorState is a serializable snapshot of every open document plus the active one.
type EditorState struct {
	OpenFiles  []OpenFileState `json:"openFiles"`
	ActiveFile *string         `json:"activeFile"`
}

// Empty reports whether the snapshot holds no documents.
func (s EditorState) Empty() bool {
	return len(s.OpenFiles) == 0
}

// Checkpoint is a persisted, restorable session snapshot.
type Checkpoint struct {
	ID          int64       `json:"id,omitempty"`
	Name        string      `json:"name"`
	Timestamp   int64       `json:"timestamp"`
	EditorState EditorState `json:"editorState"`
}
