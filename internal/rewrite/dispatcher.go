package rewrite

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docrewriter/internal/cache"
	"docrewriter/internal/extractor"
	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

const maxWorkerCap = 50

// DefaultWorkers 按机器资源估一个并发度，避免触发 API 限流。
func DefaultWorkers() int {
	n := runtime.NumCPU() * 2
	if n > maxWorkerCap {
		n = maxWorkerCap
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DispatcherConfig 重写调度配置
type DispatcherConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Stats 一次调度的统计结果
type Stats struct {
	Total     int
	Rewritten int
	CacheHits int
	Skipped   int
	Failed    int
}

// Dispatcher 把未命中缓存的文本块派发给有界 worker 池并发重写。
// worker 间不保证顺序，结果按块的位置索引写回，整体顺序不受影响。
type Dispatcher struct {
	provider Provider
	cache    cache.Store
	logger   logger.Logger
	cfg      DispatcherConfig
}

func NewDispatcher(provider Provider, store cache.Store, log logger.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Dispatcher{
		provider: provider,
		cache:    store,
		logger:   log.Named("dispatcher"),
		cfg:      cfg,
	}
}

func (d *Dispatcher) cacheParams() cache.Params {
	return cache.Params{
		Provider:      d.provider.Name(),
		Model:         d.provider.Model(),
		PromptVersion: "v1",
	}
}

// Rewrite 就地重写给定的文本块。块级失败保留原文，只有 ctx 取消才返回错误。
func (d *Dispatcher) Rewrite(ctx context.Context, blocks []*models.ContentBlock) (Stats, error) {
	stats := Stats{Total: len(blocks)}
	if len(blocks) == 0 {
		return stats, nil
	}

	d.logger.Info("dispatching rewrite jobs",
		logger.Int("blocks", len(blocks)),
		logger.Int("workers", d.cfg.Workers),
		logger.String("provider", d.provider.Name()),
		logger.String("model", d.provider.Model()),
	)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, d.cfg.Workers)

	for _, block := range blocks {
		block := block
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			outcome := d.processBlock(ctx, block)

			mu.Lock()
			switch outcome {
			case jobOutcomeCacheHit:
				stats.CacheHits++
			case jobOutcomeRewritten:
				stats.Rewritten++
			case jobOutcomeSkipped:
				stats.Skipped++
			case jobOutcomeFailed:
				stats.Failed++
			}
			mu.Unlock()
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	d.logger.Info("rewrite finished",
		logger.Int("rewritten", stats.Rewritten),
		logger.Int("cacheHits", stats.CacheHits),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
	)
	return stats, nil
}

type jobOutcome int

const (
	jobOutcomeRewritten jobOutcome = iota
	jobOutcomeCacheHit
	jobOutcomeSkipped
	jobOutcomeFailed
)

func (d *Dispatcher) processBlock(ctx context.Context, block *models.ContentBlock) jobOutcome {
	// 公式标记兜底检查：公式永远不送 API
	if extractor.ContainsFormulaMarkers(block.Content) {
		d.logger.Info("formula markers detected, block skipped",
			logger.Int("index", block.Index),
		)
		return jobOutcomeSkipped
	}

	key := cache.Key(block.Content, d.cacheParams())
	if cached, ok, _ := d.cache.Lookup(ctx, key); ok {
		block.Content = cached
		return jobOutcomeCacheHit
	}

	rewritten, err := d.callWithRetry(ctx, block.Content)
	if err != nil {
		// 块级失败保留原文
		d.logger.Error("rewrite failed, keeping original text",
			logger.Int("index", block.Index),
			logger.Error(err),
		)
		return jobOutcomeFailed
	}

	if err := d.cache.Store(ctx, key, rewritten); err != nil {
		d.logger.Warn("cache write failed", logger.Error(err))
	}
	block.Content = rewritten
	return jobOutcomeRewritten
}

func (d *Dispatcher) callWithRetry(ctx context.Context, text string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		rewritten, err := d.provider.Rewrite(ctx, text)
		if err == nil {
			return rewritten, nil
		}
		lastErr = err
		d.logger.Warn("api call failed",
			logger.Int("attempt", attempt),
			logger.Int("maxRetries", d.cfg.MaxRetries),
			logger.Error(err),
		)

		if attempt < d.cfg.MaxRetries {
			select {
			case <-time.After(d.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}
