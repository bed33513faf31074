package tools

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// TreeRefresher redraws the visible file tree after the project changed.
type TreeRefresher interface {
	RefreshTree(fs fsContracts.IFileSystem) error
}

// TerminalTree prints the project tree with pterm.
type TerminalTree struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

// NewTerminalTree writes each refreshed tree to out. A nil out only keeps the last render.
func NewTerminalTree(out io.Writer) *TerminalTree {
	return &TerminalTree{out: out}
}

func (t *TerminalTree) RefreshTree(fs fsContracts.IFileSystem) error {
	tree, err := fs.BuildTree()
	if err != nil {
		return fmt.Errorf("failed to build file tree: %w", err)
	}
	rendered, err := RenderTree(tree)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = rendered
	if t.out != nil {
		if _, err := io.WriteString(t.out, rendered); err != nil {
			return fmt.Errorf("failed to write file tree: %w", err)
		}
	}
	return nil
}

// Last returns the most recent render.
func (t *TerminalTree) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// RenderTree draws a project tree with pterm's tree printer.
func RenderTree(tree *models.TreeNode) (string, error) {
	var list pterm.LeveledList
	for _, child := range tree.Children {
		appendLeveled(&list, child, 0)
	}
	root := putils.TreeFromLeveledList(list)
	root.Text = tree.Name + "/"
	out, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return "", fmt.Errorf("failed to render file tree: %w", err)
	}
	return out, nil
}

func appendLeveled(list *pterm.LeveledList, node *models.TreeNode, level int) {
	text := node.Name
	if node.IsDir {
		text += "/"
	}
	*list = append(*list, pterm.LeveledListItem{Level: level, Text: text})
	for _, child := range node.Children {
		appendLeveled(list, child, level+1)
	}
}
