package code_analyzer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

const cacheSuffix = ".cache"

// CacheEntry represents a cached item with metadata
type CacheEntry struct {
	Symbols   []models.Symbol
	Path      string
	Timestamp time.Time
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager stores parse results on disk, keyed by path and content hash,
// so an edited file never hits a stale entry.
type CacheManager struct {
	cacheDir string
	mutex    sync.RWMutex
	stats    *CacheStats
}

// NewCacheManager creates a new cache manager instance
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		cacheDir: cacheDir,
		stats:    &CacheStats{LastResetTime: time.Now()},
	}, nil
}

// generateCacheKey hashes the path together with the content.
func generateCacheKey(path string, content []byte) string {
	h := xxh3.New()
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content)
	return fmt.Sprintf("%016x%s", h.Sum64(), cacheSuffix)
}

func (cm *CacheManager) cachePath(key string) string {
	return filepath.Join(cm.cacheDir, key)
}

// GetSymbolsCache retrieves cached symbols for this exact content.
func (cm *CacheManager) GetSymbolsCache(path string, content []byte) ([]models.Symbol, bool) {
	cm.mutex.RLock()
	data, err := os.ReadFile(cm.cachePath(generateCacheKey(path, content)))
	cm.mutex.RUnlock()
	if err != nil {
		cm.recordCacheMiss()
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil || entry.Path != path {
		cm.recordCacheMiss()
		return nil, false
	}

	cm.recordCacheHit()
	return entry.Symbols, true
}

// SetSymbolsCache stores symbols for this exact content.
func (cm *CacheManager) SetSymbolsCache(path string, content []byte, symbols []models.Symbol) error {
	entry := CacheEntry{Symbols: symbols, Path: path, Timestamp: time.Now()}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if err := os.WriteFile(cm.cachePath(generateCacheKey(path, content)), buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// GetCacheStats returns storage statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	files, err := os.ReadDir(cm.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var count int
	var totalSize int64
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), cacheSuffix) {
			continue
		}
		if info, err := file.Info(); err == nil {
			totalSize += info.Size()
		}
		count++
	}

	return map[string]interface{}{
		"cache_files": count,
		"total_size":  totalSize,
		"cache_dir":   cm.cacheDir,
	}, nil
}

// ClearCache completely removes all cache entries
func (cm *CacheManager) ClearCache() error {
	return cm.removeWhere(func(os.FileInfo) bool { return true })
}

// CleanExpiredCache removes cache entries older than maxAge
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	return cm.removeWhere(func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

func (cm *CacheManager) removeWhere(match func(os.FileInfo) bool) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	files, err := os.ReadDir(cm.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), cacheSuffix) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if match(info) {
			_ = os.Remove(filepath.Join(cm.cacheDir, file.Name()))
		}
	}
	return nil
}

func (cm *CacheManager) recordCacheHit() {
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.TotalRequests++
	cm.stats.CacheHits++
}

func (cm *CacheManager) recordCacheMiss() {
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()
	cm.stats.TotalRequests++
	cm.stats.CacheMisses++
}

// GetPerformanceStats returns hit and miss counters since the last reset
func (cm *CacheManager) GetPerformanceStats() map[string]interface{} {
	cm.stats.mutex.RLock()
	defer cm.stats.mutex.RUnlock()

	hitRate := 0.0
	if cm.stats.TotalRequests > 0 {
		hitRate = float64(cm.stats.CacheHits) / float64(cm.stats.TotalRequests) * 100
	}

	return map[string]interface{}{
		"total_requests":   cm.stats.TotalRequests,
		"cache_hits":       cm.stats.CacheHits,
		"cache_misses":     cm.stats.CacheMisses,
		"hit_rate_percent": hitRate,
		"uptime_human":     time.Since(cm.stats.LastResetTime).Round(time.Second).String(),
		"last_reset":       cm.stats.LastResetTime.Format(time.RFC3339),
	}
}

// ResetPerformanceStats resets all performance counters
func (cm *CacheManager) ResetPerformanceStats() {
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()

	cm.stats.TotalRequests = 0
	cm.stats.CacheHits = 0
	cm.stats.CacheMisses = 0
	cm.stats.LastResetTime = time.Now()
}
