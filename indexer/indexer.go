package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	analyzerContracts "github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/contracts"
	analyzerModels "github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/models"
	fsContracts "github.com/yapweijun1996/AI-Code-Editor-v13/filesystem/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/store"
	"github.com/yapweijun1996/AI-Code-Editor-v13/utils"
	"github.com/zeebo/xxh3"
)

const (
	indexVersion    = 1
	maxIndexedSize  = 512 * 1024
	maxQueryResults = 20
)

// ErrNoIndex is returned by Query before the first Build.
var ErrNoIndex = errors.New("codebase index not built. Run build_or_update_codebase_index first")

// IndexStore keeps the single serialized index record.
type IndexStore interface {
	SaveIndex(ctx context.Context, key string, data []byte) error
	LoadIndex(ctx context.Context, key string) ([]byte, error)
}

// FileEntry is the indexed state of one file.
type FileEntry struct {
	Path     string                  `json:"path"`
	Language string                  `json:"language,omitempty"`
	Hash     string                  `json:"hash"`
	Size     int64                   `json:"size"`
	Symbols  []analyzerModels.Symbol `json:"symbols,omitempty"`
}

// Index is the record persisted per project.
type Index struct {
	Version int                  `json:"version"`
	Root    string               `json:"root"`
	BuiltAt int64                `json:"builtAt"`
	Files   map[string]FileEntry `json:"files"`
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Files    int           `json:"files"`
	Updated  int           `json:"updated"`
	Reused   int           `json:"reused"`
	Removed  int           `json:"removed"`
	Symbols  int           `json:"symbols"`
	Duration time.Duration `json:"-"`
}

// Hit is one ranked query result.
type Hit struct {
	Path   string `json:"file"`
	Symbol string `json:"symbol,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Line   int    `json:"line,omitempty"`
	Score  int    `json:"score"`
}

// Indexer builds and queries a symbol index of the project.
type Indexer struct {
	mu       sync.Mutex
	store    IndexStore
	analyzer analyzerContracts.ICodeAnalyzer
	logger   *logrus.Entry
}

func New(store IndexStore, analyzer analyzerContracts.ICodeAnalyzer) *Indexer {
	return &Indexer{store: store, analyzer: analyzer, logger: logging.NewLogger("indexer")}
}

func indexKey(root string) string {
	return "codebase_index:" + root
}

func (i *Indexer) load(ctx context.Context, root string) (*Index, error) {
	data, err := i.store.LoadIndex(ctx, indexKey(root))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoIndex
		}
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode codebase index: %w", err)
	}
	if idx.Version != indexVersion {
		return nil, ErrNoIndex
	}
	return &idx, nil
}

// Build indexes every non-ignored text file, reusing entries whose content hash is unchanged.
func (i *Indexer) Build(ctx context.Context, fs fsContracts.IFileSystem) (*BuildStats, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	started := time.Now()

	previous, err := i.load(ctx, fs.Root())
	if err != nil && !errors.Is(err, ErrNoIndex) {
		i.logger.WithError(err).Warn("Discarding unreadable codebase index")
	}
	if previous == nil {
		previous = &Index{Files: map[string]FileEntry{}}
	}

	ignore, err := utils.LoadIgnoreMatcher(fs.Fs())
	if err != nil {
		i.logger.WithError(err).Warn("Failed to load ignore files")
	}

	next := &Index{Version: indexVersion, Root: fs.Root(), Files: map[string]FileEntry{}}
	stats := &BuildStats{}
	err = afero.Walk(fs.Fs(), ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
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
		if info.IsDir() || info.Size() > maxIndexedSize {
			return nil
		}
		content, err := afero.ReadFile(fs.Fs(), rel)
		if err != nil || bytes.IndexByte(content, 0) >= 0 {
			return nil
		}

		hash := fmt.Sprintf("%016x", xxh3.Hash(content))
		if prev, ok := previous.Files[rel]; ok && prev.Hash == hash {
			next.Files[rel] = prev
			stats.Reused++
			return nil
		}

		entry := FileEntry{Path: rel, Language: utils.LanguageForFile(rel), Hash: hash, Size: info.Size()}
		if i.analyzer != nil && i.analyzer.SupportsFile(rel) {
			symbols, err := i.analyzer.ExtractSymbols(ctx, rel, content)
			if err != nil {
				i.logger.WithError(err).Debugf("No symbols for %s", rel)
			}
			entry.Symbols = symbols
		}
		next.Files[rel] = entry
		stats.Updated++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index walk failed: %w", err)
	}

	for p := range previous.Files {
		if _, ok := next.Files[p]; !ok {
			stats.Removed++
		}
	}
	for _, f := range next.Files {
		stats.Symbols += len(f.Symbols)
	}
	stats.Files = len(next.Files)

	next.BuiltAt = time.Now().UnixMilli()
	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode codebase index: %w", err)
	}
	if err := i.store.SaveIndex(ctx, indexKey(fs.Root()), data); err != nil {
		return nil, err
	}
	stats.Duration = time.Since(started)
	i.logger.WithFields(logrus.Fields{
		"files":   stats.Files,
		"updated": stats.Updated,
		"reused":  stats.Reused,
	}).Info("Codebase index built")
	return stats, nil
}

// Query ranks symbols and paths against the free-text query.
func (i *Indexer) Query(ctx context.Context, fs fsContracts.IFileSystem, text string) ([]Hit, error) {
	terms := tokenizeSearchTerms(text)
	if len(terms) == 0 {
		return nil, errors.New("query is empty")
	}
	i.mu.Lock()
	idx, err := i.load(ctx, fs.Root())
	i.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, f := range idx.Files {
		lowerPath := strings.ToLower(f.Path)
		pathScore := 0
		for _, t := range terms {
			if strings.Contains(lowerPath, t) {
				pathScore += 2
			}
		}
		matchedSymbol := false
		for _, s := range f.Symbols {
			score := symbolScore(strings.ToLower(s.Name), terms)
			if score == 0 {
				continue
			}
			matchedSymbol = true
			hits = append(hits, Hit{Path: f.Path, Symbol: s.Name, Kind: s.Kind, Line: s.Line, Score: score + pathScore})
		}
		if !matchedSymbol && pathScore > 0 {
			hits = append(hits, Hit{Path: f.Path, Score: pathScore})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		if hits[a].Path != hits[b].Path {
			return hits[a].Path < hits[b].Path
		}
		return hits[a].Line < hits[b].Line
	})
	if len(hits) > maxQueryResults {
		hits = hits[:maxQueryResults]
	}
	return hits, nil
}

func symbolScore(name string, terms []string) int {
	score := 0
	for _, t := range terms {
		switch {
		case name == t:
			score += 10
		case strings.Contains(name, t):
			score += 5
		}
	}
	return score
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
