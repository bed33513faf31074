package filesystem

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
)

const (
	maxSearchResults  = 500
	maxSearchFileSize = 1 << 20
	maxSearchLineLen  = 200
)

var (
	// ErrPathRequired is returned when a tool passes an empty path.
	ErrPathRequired = errors.New("path is required")

	// ErrOutsideRoot is returned for paths that climb above the project root.
	ErrOutsideRoot = errors.New("path is outside the project folder")
)

// Local is a project folder backed by afero.
type Local struct {
	root   string
	fs     afero.Fs
	logger *logrus.Entry
}

// NewLocal opens root on the OS file system. Every path is confined to root.
func NewLocal(root string) (contracts.IFileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open project root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}
	return NewFromFs(abs, afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// NewFromFs wraps an existing afero file system rooted at its own "/".
func NewFromFs(root string, fsys afero.Fs) contracts.IFileSystem {
	return &Local{root: root, fs: fsys, logger: logging.NewLogger("filesystem")}
}

func (l *Local) Root() string {
	return l.root
}

func (l *Local) Fs() afero.Fs {
	return l.fs
}

// CleanPath turns user input into a root-relative slash path. A leading
// slash means the project root; climbing above the root is an error.
func CleanPath(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(filepath.ToSlash(p)), "/")
	if p == "" {
		return "", ErrPathRequired
	}
	cleaned := path.Clean(p)
	switch {
	case cleaned == ".":
		return "", ErrPathRequired
	case cleaned == ".." || strings.HasPrefix(cleaned, "../"):
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return cleaned, nil
}

// Resolve returns a handle for a file, creating it (and its parents) when create is set.
func (l *Local) Resolve(p string, create bool) (contracts.IFileHandle, error) {
	rel, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	info, err := l.fs.Stat(rel)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", rel)
		}
	case errors.Is(err, os.ErrNotExist):
		if !create {
			return nil, fmt.Errorf("file not found: %s: %w", rel, os.ErrNotExist)
		}
		if err := l.fs.MkdirAll(path.Dir(rel), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create parent of %s: %w", rel, err)
		}
		if err := afero.WriteFile(l.fs, rel, nil, 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", rel, err)
		}
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	return &fileHandle{fs: l.fs, path: rel}, nil
}

// ResolveParent splits a path into its existing parent directory and entry name.
func (l *Local) ResolveParent(p string) (string, string, error) {
	rel, err := CleanPath(p)
	if err != nil {
		return "", "", err
	}
	dir := path.Dir(rel)
	if dir != "." {
		ok, err := afero.DirExists(l.fs, dir)
		if err != nil {
			return "", "", fmt.Errorf("failed to stat %s: %w", dir, err)
		}
		if !ok {
			return "", "", fmt.Errorf("directory not found: %s: %w", dir, os.ErrNotExist)
		}
	}
	return dir, path.Base(rel), nil
}

func (l *Local) ReadText(p string) (string, error) {
	h, err := l.Resolve(p, false)
	if err != nil {
		return "", err
	}
	return h.ReadText()
}

func (l *Local) WriteText(p string, content string) error {
	h, err := l.Resolve(p, true)
	if err != nil {
		return err
	}
	return h.WriteText(content)
}

// Delete removes a file, or a directory when recursive is set.
func (l *Local) Delete(p string, recursive bool) error {
	dir, entry, err := l.ResolveParent(p)
	if err != nil {
		return err
	}
	rel := path.Join(dir, entry)
	info, err := l.fs.Stat(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("entry not found: %s: %w", rel, os.ErrNotExist)
		}
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		if !recursive {
			return fmt.Errorf("%s is a directory", rel)
		}
		if err := l.fs.RemoveAll(rel); err != nil {
			return fmt.Errorf("failed to delete folder %s: %w", rel, err)
		}
		return nil
	}
	if err := l.fs.Remove(rel); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}

// Rename moves a file or directory. The destination must not exist.
func (l *Local) Rename(oldPath, newPath string) error {
	oldDir, oldEntry, err := l.ResolveParent(oldPath)
	if err != nil {
		return err
	}
	from := path.Join(oldDir, oldEntry)
	if ok, _ := afero.Exists(l.fs, from); !ok {
		return fmt.Errorf("entry not found: %s: %w", from, os.ErrNotExist)
	}
	to, err := CleanPath(newPath)
	if err != nil {
		return err
	}
	if ok, _ := afero.Exists(l.fs, to); ok {
		return fmt.Errorf("destination already exists: %s", to)
	}
	if err := l.fs.MkdirAll(path.Dir(to), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", to, err)
	}
	if err := l.fs.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", from, to, err)
	}
	return nil
}

func (l *Local) CreateDirectory(p string) error {
	rel, err := CleanPath(p)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(rel, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", rel, err)
	}
	return nil
}

// Search scans every non-ignored text file for term, case-insensitively.
func (l *Local) Search(term string) ([]models.SearchMatch, error) {
	if strings.TrimSpace(term) == "" {
		return nil, errors.New("search term is required")
	}
	needle := strings.ToLower(term)
	ignore, err := utils.LoadIgnoreMatcher(l.fs)
	if err != nil {
		l.logger.WithError(err).Warn("Failed to load ignore files")
	}

	var matches []models.SearchMatch
	err = afero.Walk(l.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			l.logger.WithError(err).Debugf("Skipping %s", p)
			return nil
		}
		rel := filepath.ToSlash(p)
		if rel == "." {
			return nil
		}
		if ignore.Ignored(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || info.Size() > maxSearchFileSize {
			return nil
		}

		content, err := afero.ReadFile(l.fs, rel)
		if err != nil || bytes.IndexByte(content, 0) >= 0 {
			return nil
		}

		scanner := bufio.NewScanner(bytes.NewReader(content))
		scanner.Buffer(make([]byte, 0, 64*1024), maxSearchFileSize)
		for line := 1; scanner.Scan(); line++ {
			text := scanner.Text()
			if !strings.Contains(strings.ToLower(text), needle) {
				continue
			}
			text = strings.TrimSpace(text)
			if utf8.RuneCountInString(text) > maxSearchLineLen {
				text = string([]rune(text)[:maxSearchLineLen])
			}
			matches = append(matches, models.SearchMatch{Path: rel, Line: line, Text: text})
			if len(matches) >= maxSearchResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return matches, nil
}

// BuildTree walks the project, directories first, skipping ignored entries.
func (l *Local) BuildTree() (*models.TreeNode, error) {
	ignore, err := utils.LoadIgnoreMatcher(l.fs)
	if err != nil {
		l.logger.WithError(err).Warn("Failed to load ignore files")
	}
	root := &models.TreeNode{Name: path.Base(filepath.ToSlash(l.root)), Path: "", IsDir: true}
	if err := l.fillTree(root, ".", ignore); err != nil {
		return nil, err
	}
	return root, nil
}

func (l *Local) fillTree(node *models.TreeNode, dir string, ignore *utils.IgnoreMatcher) error {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		rel := path.Join(dir, entry.Name())
		if ignore.Ignored(rel) {
			continue
		}
		child := &models.TreeNode{Name: entry.Name(), Path: rel, IsDir: entry.IsDir()}
		if entry.IsDir() {
			if err := l.fillTree(child, rel, ignore); err != nil {
				return err
			}
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

// FormatTree renders the tree as indented text, one entry per line.
func (l *Local) FormatTree(tree *models.TreeNode) string {
	if tree == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(tree.Name + "/\n")
	writeTree(&b, tree.Children, "")
	return strings.TrimRight(b.String(), "\n")
}

func writeTree(b *strings.Builder, nodes []*models.TreeNode, prefix string) {
	for i, n := range nodes {
		connector, next := "├── ", "│   "
		if i == len(nodes)-1 {
			connector, next = "└── ", "    "
		}
		name := n.Name
		if n.IsDir {
			name += "/"
		}
		b.WriteString(prefix + connector + name + "\n")
		if n.IsDir {
			writeTree(b, n.Children, prefix+next)
		}
	}
}

type fileHandle struct {
	fs   afero.Fs
	path string
}

func (h *fileHandle) Path() string {
	return h.path
}

func (h *fileHandle) Name() string {
	return path.Base(h.path)
}

func (h *fileHandle) ReadText() (string, error) {
	content, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", h.path, err)
	}
	return string(content), nil
}

func (h *fileHandle) WriteText(content string) error {
	if err := afero.WriteFile(h.fs, h.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", h.path, err)
	}
	return nil
}
