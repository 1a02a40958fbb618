package rewrite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/internal/cache"
	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int // 每段文本先失败几次
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

func (p *fakeProvider) Rewrite(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[text]++
	if p.failures[text] > 0 {
		p.failures[text]--
		if p.err != nil {
			return "", p.err
		}
		return "", errors.New("temporary failure")
	}
	return "重写：" + text, nil
}

func (p *fakeProvider) callCount(text string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[text]
}

func textBlocks(texts ...string) []*models.ContentBlock {
	blocks := make([]*models.ContentBlock, len(texts))
	for i, text := range texts {
		blocks[i] = &models.ContentBlock{Type: models.BlockText, Content: text, Index: i}
	}
	return blocks
}

func newTestDispatcher(t *testing.T, p Provider) (*Dispatcher, cache.Store) {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	d := NewDispatcher(p, store, logger.NewTestLogger(), DispatcherConfig{
		Workers:    4,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
	return d, store
}

func TestRewriteUpdatesBlocks(t *testing.T) {
	p := newFakeProvider()
	d, _ := newTestDispatcher(t, p)

	blocks := textBlocks("第一段", "第二段")
	stats, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rewritten)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, "重写：第一段", blocks[0].Content)
	assert.Equal(t, "重写：第二段", blocks[1].Content)
}

func TestRewriteCacheHitSkipsAPI(t *testing.T) {
	p := newFakeProvider()
	d, store := newTestDispatcher(t, p)

	key := cache.Key("已缓存的段落", cache.Params{Provider: "fake", Model: "fake-1", PromptVersion: "v1"})
	require.NoError(t, store.Store(context.Background(), key, "缓存里的重写"))

	blocks := textBlocks("已缓存的段落")
	stats, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 0, stats.Rewritten)
	assert.Equal(t, "缓存里的重写", blocks[0].Content)
	assert.Equal(t, 0, p.callCount("已缓存的段落"))
}

func TestRewriteRetriesThenSucceeds(t *testing.T) {
	p := newFakeProvider()
	p.failures["不稳定的段落"] = 2
	d, _ := newTestDispatcher(t, p)

	blocks := textBlocks("不稳定的段落")
	stats, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Rewritten)
	assert.Equal(t, 3, p.callCount("不稳定的段落"))
	assert.Equal(t, "重写：不稳定的段落", blocks[0].Content)
}

func TestRewriteFailureKeepsOriginal(t *testing.T) {
	p := newFakeProvider()
	p.failures["坏段落"] = 10
	d, _ := newTestDispatcher(t, p)

	blocks := textBlocks("坏段落", "好段落")
	stats, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Rewritten)
	assert.Equal(t, "坏段落", blocks[0].Content)
	assert.Equal(t, 3, p.callCount("坏段落"))
	assert.Equal(t, "重写：好段落", blocks[1].Content)
}

func TestRewriteSkipsFormulaMarkers(t *testing.T) {
	p := newFakeProvider()
	d, _ := newTestDispatcher(t, p)

	text := `含内联公式 $x^2$ 的段落`
	blocks := textBlocks(text)
	stats, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, text, blocks[0].Content)
	assert.Equal(t, 0, p.callCount(text))
}

func TestRewriteResultIsCached(t *testing.T) {
	p := newFakeProvider()
	d, store := newTestDispatcher(t, p)

	blocks := textBlocks("要缓存的段落")
	_, err := d.Rewrite(context.Background(), blocks)
	require.NoError(t, err)

	key := cache.Key("要缓存的段落", cache.Params{Provider: "fake", Model: "fake-1", PromptVersion: "v1"})
	got, ok, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "重写：要缓存的段落", got)

	// 第二次运行命中缓存，不再调 API
	blocks2 := textBlocks("要缓存的段落")
	stats, err := d.Rewrite(context.Background(), blocks2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, p.callCount("要缓存的段落"))
}

func TestRewriteEmptyInput(t *testing.T) {
	d, _ := newTestDispatcher(t, newFakeProvider())
	stats, err := d.Rewrite(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestDefaultWorkersBounds(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 50)
}
