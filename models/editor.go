package models

// Position is a 1-based line/column location in a buffer.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans two positions; End is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// ViewState holds cursor, scroll and fold state for a buffer.
type ViewState struct {
	Cursor     Position `json:"cursor"`
	Selection  *Range   `json:"selection,omitempty"`
	ScrollTop  int      `json:"scrollTop"`
	ScrollLeft int      `json:"scrollLeft"`
	Folded     []int    `json:"folded,omitempty"`
}

// MarkerSeverity mirrors the editor's diagnostic levels.
type MarkerSeverity int

const (
	SeverityHint    MarkerSeverity = 1
	SeverityInfo    MarkerSeverity = 2
	SeverityWarning MarkerSeverity = 4
	SeverityError   MarkerSeverity = 8
)

func (s MarkerSeverity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Marker is a diagnostic attached to a line of a document.
type Marker struct {
	Path     string         `json:"path"`
	Line     int            `json:"line"`
	Column   int            `json:"column"`
	Severity MarkerSeverity `json:"severity"`
	Message  string         `json:"message"`
}
