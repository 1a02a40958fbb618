package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docrewriter/pkg/logger"
)

// LocalStorage 本地文件系统存储，单机部署时替代对象存储
type LocalStorage struct {
	baseDir string
	logger  logger.Logger
}

func NewLocalStorage(baseDir string, log logger.Logger) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		baseDir: baseDir,
		logger:  log,
	}, nil
}

// Store 实现 Storage 接口的 Store 方法
func (l *LocalStorage) Store(ctx context.Context, reader io.Reader, filename string) (string, error) {
	key := filename
	path := l.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return key, nil
}

// Get 实现 Storage 接口的 Get 方法
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(key))
	if err != nil {
		l.logger.Error("Failed to get file from local storage",
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return f, nil
}

// Delete 实现 Storage 接口的 Delete 方法
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(l.resolve(key)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CleanupBefore 实现 Storage 接口的 CleanupBefore 方法
func (l *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return filepath.Walk(l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(path); err != nil {
				l.logger.Error("Failed to delete expired file",
					logger.String("path", path),
					logger.Error(err),
				)
				return nil
			}
			l.logger.Info("Deleted expired file",
				logger.String("path", path),
				logger.Time("modTime", info.ModTime()),
			)
		}
		return nil
	})
}

// resolve 将 key 映射到 baseDir 下，阻止路径穿越
func (l *LocalStorage) resolve(key string) string {
	clean := filepath.Clean("/" + strings.ReplaceAll(key, ":", "_"))
	return filepath.Join(l.baseDir, clean)
}
