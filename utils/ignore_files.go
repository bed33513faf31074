package utils

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/spf13/afero"
)

// IgnoreFileNames are read from the project root, in order.
var IgnoreFileNames = []string{".gitignore", ".aiignore"}

// defaultIgnored names are skipped everywhere in the tree regardless of ignore files.
var defaultIgnored = []string{
	".git",
	".svn",
	".hg",
	".idea",
	".vscode",
	".cache",
	"node_modules",
	"dist",
	"build",
	"bin",
	"obj",
	"out",
	"vendor",
	"__pycache__",
}

// defaultIgnoredSuffixes are binary or noisy files never worth searching.
var defaultIgnoredSuffixes = []string{
	".exe", ".dll", ".so", ".dylib", ".log", ".bak", ".tmp",
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".webp", ".pdf", ".zip", ".gz",
	".mp3", ".wav", ".mp4", ".mov", ".avi", ".woff", ".woff2", ".ttf",
}

// IsDefaultIgnored reports whether a slash-separated relative path hits the built-in ignore list.
func IsDefaultIgnored(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		lower := strings.ToLower(part)
		for _, name := range defaultIgnored {
			if lower == name {
				return true
			}
		}
	}
	lower := strings.ToLower(relPath)
	for _, suffix := range defaultIgnoredSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// IgnoreMatcher decides which project paths the tools should skip.
type IgnoreMatcher struct {
	mu      sync.Mutex
	matcher *patternmatcher.PatternMatcher
}

// NewIgnoreMatcher compiles gitignore-style patterns into a matcher.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = normalizePattern(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	if len(normalized) == 0 {
		return &IgnoreMatcher{}, nil
	}
	pm, err := patternmatcher.New(normalized)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}
	return &IgnoreMatcher{matcher: pm}, nil
}

// Ignored reports whether relPath (slash separated, relative to the root) is skipped.
func (m *IgnoreMatcher) Ignored(relPath string) bool {
	relPath = strings.TrimPrefix(path.Clean("/"+relPath), "/")
	if relPath == "" {
		return false
	}
	if IsDefaultIgnored(relPath) {
		return true
	}
	if m == nil || m.matcher == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	matched, err := m.matcher.MatchesOrParentMatches(relPath)
	return err == nil && matched
}

// normalizePattern maps gitignore semantics onto patternmatcher's
// root-anchored syntax: unanchored patterns match at any depth.
func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "#") {
		return ""
	}
	negate := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(p, "!")
	p = strings.TrimSuffix(p, "/")
	switch {
	case strings.HasPrefix(p, "/"):
		p = strings.TrimPrefix(p, "/")
	case !strings.HasPrefix(p, "**/"):
		p = "**/" + p
	}
	if negate {
		return "!" + p
	}
	return p
}

// ignoreCacheEntry holds cached ignore patterns with metadata
type ignoreCacheEntry struct {
	matcher *IgnoreMatcher
	modTime time.Time
}

// Global cache for ignore matchers, keyed by file system instance and root
var (
	ignoreCache = make(map[afero.Fs]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// LoadIgnoreMatcher reads the ignore files at the root of fsys. Missing files
// are not an error. The compiled matcher is cached until an ignore file changes.
func LoadIgnoreMatcher(fsys afero.Fs) (*IgnoreMatcher, error) {
	var newest time.Time
	for _, name := range IgnoreFileNames {
		if info, err := fsys.Stat(name); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	cacheMutex.RLock()
	if cached, ok := ignoreCache[fsys]; ok && cached.modTime.Equal(newest) {
		cacheMutex.RUnlock()
		return cached.matcher, nil
	}
	cacheMutex.RUnlock()

	var patterns []string
	for _, name := range IgnoreFileNames {
		content, err := afero.ReadFile(fsys, name)
		if err != nil {
			continue
		}
		lines, err := ignorefile.ReadAll(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}

	matcher, err := NewIgnoreMatcher(patterns)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	ignoreCache[fsys] = &ignoreCacheEntry{matcher: matcher, modTime: newest}
	cacheMutex.Unlock()

	return matcher, nil
}

// ClearIgnoreCache clears all cached ignore matchers
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[afero.Fs]*ignoreCacheEntry)
}
