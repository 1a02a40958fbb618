package cache

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Store 重写结果缓存。键是内容哈希，值是重写后的文本。
// 不做淘汰，条目一直保留到用户手动清理。
type Store interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Store(ctx context.Context, key, text string) error
	Clear(ctx context.Context) error
}

// Params 参与缓存键计算的重写参数。
// 同一段文本换了供应商或模型，是不同的缓存条目。
type Params struct {
	Provider      string
	Model         string
	PromptVersion string
}

// Key 计算 (源文本, 重写参数) 的缓存键。
func Key(text string, p Params) string {
	h := blake3.New()
	h.Write([]byte(text))
	fmt.Fprintf(h, "\x00%s\x00%s\x00%s", p.Provider, p.Model, p.PromptVersion)
	return hex.EncodeToString(h.Sum(nil))
}
