package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const zhipuDefaultEndpoint = "https://open.bigmodel.cn/api/paas/v4/chat/completions"

// ZhipuConfig 智谱 GLM 配置
type ZhipuConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

// ZhipuProvider 调用智谱的 chat completion 接口做重写。
type ZhipuProvider struct {
	cfg        ZhipuConfig
	httpClient *http.Client
}

type zhipuMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type zhipuRequest struct {
	Model    string         `json:"model"`
	Messages []zhipuMessage `json:"messages"`
}

type zhipuResponse struct {
	Choices []struct {
		Message zhipuMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewZhipuProvider(cfg ZhipuConfig) (*ZhipuProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("zhipu: %w", ErrMissingAPIKey)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = zhipuDefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "glm-4-airx"
	}
	return &ZhipuProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

func (p *ZhipuProvider) Name() string  { return "zhipu" }
func (p *ZhipuProvider) Model() string { return p.cfg.Model }

func (p *ZhipuProvider) Rewrite(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	reqData, err := json.Marshal(zhipuRequest{
		Model: p.cfg.Model,
		Messages: []zhipuMessage{
			{Role: "user", Content: rewritePrompt + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var result zhipuResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("zhipu error %s: %s", result.Error.Code, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrBadResponse)
	}

	rewritten, ok := extractRewriteResult(result.Choices[0].Message.Content)
	if !ok {
		return "", fmt.Errorf("%w: %.100s", ErrBadResponse, result.Choices[0].Message.Content)
	}
	return rewritten, nil
}

func (p *ZhipuProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
