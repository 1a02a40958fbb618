package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docrewriter/pkg/logger"
)

// FileStore 以一键一文件的方式把缓存落在本地目录，CLI 模式的默认实现。
type FileStore struct {
	dir    string
	logger logger.Logger
}

func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: log.Named("cache"),
	}, nil
}

func (s *FileStore) Lookup(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		// 缓存读失败按未命中处理，不影响整体流程
		s.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *FileStore) Store(_ context.Context, key, text string) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheFileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	return nil
}

const cacheFileExt = ".txt"

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+cacheFileExt)
}
