package session

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	styles "github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
)

// Tab is one entry of the tab strip.
type Tab struct {
	Path        string
	DisplayName string
	Active      bool
}

// TabRenderer redraws the tab strip after every session change.
type TabRenderer interface {
	RenderTabs(tabs []Tab)
}

// LipglossTabs draws the tab strip as a single styled terminal line.
type LipglossTabs struct {
	out  io.Writer
	last string
}

// NewLipglossTabs writes each rendered strip to out; a nil out only keeps the last render.
func NewLipglossTabs(out io.Writer) *LipglossTabs {
	return &LipglossTabs{out: out}
}

func (r *LipglossTabs) RenderTabs(tabs []Tab) {
	r.last = FormatTabs(tabs)
	if r.out != nil && r.last != "" {
		fmt.Fprintln(r.out, r.last)
	}
}

// Last returns the most recent render.
func (r *LipglossTabs) Last() string {
	return r.last
}

// FormatTabs renders tabs side by side; an empty strip renders as "".
func FormatTabs(tabs []Tab) string {
	if len(tabs) == 0 {
		return ""
	}
	cells := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.Active {
			cells = append(cells, styles.ActiveTab.Render(t.DisplayName))
		} else {
			cells = append(cells, styles.InactiveTab.Render(t.DisplayName))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
