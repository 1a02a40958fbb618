package rewrite

import (
	"context"
	"errors"
)

// ErrMissingAPIKey 所选供应商没有配置 API key
var ErrMissingAPIKey = errors.New("api key not configured")

// ErrBadResponse 响应里取不出重写结果
var ErrBadResponse = errors.New("no rewrite result in response")

// Provider 外部重写 API。文本进、文本出，单次调用不带重试。
type Provider interface {
	Name() string
	Model() string
	Rewrite(ctx context.Context, text string) (string, error)
}

// rewritePrompt 要求模型以 JSON 返回，方便稳定抽取结果
const rewritePrompt = `请重写以下文本，从语言风格、表达方式、逻辑结构等方面进行重写，内容要改写，但是改写前后字数要基本一致。请严格按照JSON格式返回，格式为{"重写结果": "重写后的内容"}：原文：`
