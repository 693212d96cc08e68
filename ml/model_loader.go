package ml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultCacheSize 默认缓存容量
const DefaultCacheSize = 4

// Loader 按路径加载预测器，没有可用模型时返回false，失败原因只记录日志
type Loader interface {
	Load(path string) (Predictor, bool)
}

// FileLoader 每次调用都重新读取模型文件
type FileLoader struct {
	logger *zap.Logger
}

// NewFileLoader 创建文件加载器
func NewFileLoader(logger *zap.Logger) *FileLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{logger: logger}
}

func (l *FileLoader) Load(path string) (Predictor, bool) {
	if _, ok := statArtifact(l.logger, path); !ok {
		return nil, false
	}
	predictor, err := LoadModel(path)
	if err != nil {
		l.logger.Warn("model load failed", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return predictor, true
}

func statArtifact(logger *zap.Logger, path string) (fs.FileInfo, bool) {
	if path == "" {
		logger.Warn("model path is empty")
		return nil, false
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("model artifact not found", zap.String("path", path))
		return nil, false
	}
	if err != nil {
		logger.Warn("model artifact stat failed", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if info.IsDir() {
		logger.Warn("model path is a directory", zap.String("path", path))
		return nil, false
	}
	return info, true
}

type cacheEntry struct {
	predictor Predictor
	modTime   time.Time
	size      int64
}

func (e cacheEntry) matches(info fs.FileInfo) bool {
	return e.modTime.Equal(info.ModTime()) && e.size == info.Size()
}

// CacheStats 缓存统计
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Reloads   uint64 `json:"reloads"`
	Evictions uint64 `json:"evictions"`
}

// CachedLoader 按路径缓存预测器，文件修改时间和大小不变时复用
type CachedLoader struct {
	mu     sync.RWMutex
	cache  *lru.Cache[string, cacheEntry]
	logger *zap.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	reloads   atomic.Uint64
	evictions atomic.Uint64
}

// NewCachedLoader 创建带缓存的加载器
func NewCachedLoader(size int, logger *zap.Logger) (*CachedLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create model cache: %w", err)
	}
	return &CachedLoader{cache: cache, logger: logger}, nil
}

func (l *CachedLoader) Load(path string) (Predictor, bool) {
	info, ok := statArtifact(l.logger, path)
	if !ok {
		l.Invalidate(path)
		return nil, false
	}

	l.mu.RLock()
	entry, found := l.cache.Get(path)
	l.mu.RUnlock()
	if found && entry.matches(info) {
		l.hits.Add(1)
		return entry.predictor, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// 等锁期间可能已被其他调用重新加载
	info, ok = statArtifact(l.logger, path)
	if !ok {
		l.removeLocked(path)
		return nil, false
	}
	entry, found = l.cache.Get(path)
	if found && entry.matches(info) {
		l.hits.Add(1)
		return entry.predictor, true
	}

	predictor, err := LoadModel(path)
	if err != nil {
		l.logger.Warn("model load failed", zap.String("path", path), zap.Error(err))
		l.removeLocked(path)
		return nil, false
	}
	l.cache.Add(path, cacheEntry{predictor: predictor, modTime: info.ModTime(), size: info.Size()})
	if found {
		l.reloads.Add(1)
		l.logger.Info("model reloaded", zap.String("path", path), zap.String("family", predictor.Family()))
	} else {
		l.misses.Add(1)
		l.logger.Info("model loaded", zap.String("path", path), zap.String("family", predictor.Family()))
	}
	return predictor, true
}

// Invalidate 清除指定路径的缓存
func (l *CachedLoader) Invalidate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(path)
}

func (l *CachedLoader) removeLocked(path string) {
	if l.cache.Remove(path) {
		l.evictions.Add(1)
	}
}

// Stats 返回缓存统计
func (l *CachedLoader) Stats() CacheStats {
	return CacheStats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Reloads:   l.reloads.Load(),
		Evictions: l.evictions.Load(),
	}
}

// Watch 模型文件被写入、替换或删除时清除缓存，阻塞直到ctx结束
func (l *CachedLoader) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.logger.Debug("model artifact changed", zap.String("path", path), zap.String("op", event.Op.String()))
				l.Invalidate(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}
