package document

import (
	"fmt"
	"os"
	"path/filepath"

	"docrewriter/config"
	"docrewriter/internal/cache"
	"docrewriter/internal/extractor"
	"docrewriter/internal/rewrite"
	"docrewriter/internal/writer"
	"docrewriter/pkg/logger"
)

// NewPipelineFromConfig 按配置装配完整流水线。
func NewPipelineFromConfig(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	dirs := DefaultDirs(cfg.OutputDir)
	for _, dir := range []string{dirs.Images, dirs.Docx, dirs.Markdown} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	provider, err := NewProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := NewCacheStore(cfg, log)
	if err != nil {
		return nil, err
	}

	dispatcher := rewrite.NewDispatcher(provider, store, log, rewrite.DispatcherConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})

	ext := extractor.NewExtractor(dirs.Images, log)

	return NewPipeline(
		ext,
		dispatcher,
		writer.NewDocxWriter(log),
		writer.NewMarkdownWriter(log),
		dirs,
		log,
	), nil
}

// NewProvider 根据名称创建重写 API 客户端。密钥从环境变量读取。
func NewProvider(name string) (rewrite.Provider, error) {
	switch name {
	case "tongyi":
		c := config.GetTongyiConfig()
		return rewrite.NewTongyiProvider(rewrite.TongyiConfig{
			APIKey:   c.APIKey,
			Endpoint: c.Endpoint,
			Model:    c.Model,
		})
	case "zhipu":
		c := config.GetZhipuConfig()
		return rewrite.NewZhipuProvider(rewrite.ZhipuConfig{
			APIKey:   c.APIKey,
			Endpoint: c.Endpoint,
			Model:    c.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported rewrite provider: %s", name)
	}
}

// NewCacheStore 根据配置创建缓存后端。CLI 默认文件缓存，服务端模式用 redis 共享。
func NewCacheStore(cfg *config.Config, log logger.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "", "file":
		return cache.NewFileStore(filepath.Join(cfg.OutputDir, "cache"), log)
	case "redis":
		return cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, log), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}
