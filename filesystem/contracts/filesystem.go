package contracts

import (
	"github.com/spf13/afero"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// IFileHandle is a resolved file inside the project folder.
type IFileHandle interface {
	Path() string
	Name() string
	ReadText() (string, error)
	WriteText(content string) error
}

// IFileSystem is the project folder the tools operate on. Paths are
// slash separated and relative to the project root.
type IFileSystem interface {
	Root() string
	Fs() afero.Fs
	Resolve(path string, create bool) (IFileHandle, error)
	ResolveParent(path string) (dir string, entry string, err error)
	ReadText(path string) (string, error)
	WriteText(path string, content string) error
	Delete(path string, recursive bool) error
	Rename(oldPath, newPath string) error
	CreateDirectory(path string) error
	Search(term string) ([]models.SearchMatch, error)
	BuildTree() (*models.TreeNode, error)
	FormatTree(tree *models.TreeNode) string
}
