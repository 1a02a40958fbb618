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

const tongyiDefaultEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// TongyiConfig 通义千问（DashScope）配置
type TongyiConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

// TongyiProvider 调用通义千问的文本生成接口做重写。
type TongyiProvider struct {
	cfg        TongyiConfig
	httpClient *http.Client
}

type tongyiRequest struct {
	Model      string       `json:"model"`
	Input      tongyiInput  `json:"input"`
	Parameters tongyiParams `json:"parameters"`
}

type tongyiInput struct {
	Prompt string `json:"prompt"`
}

type tongyiParams struct {
	ResultFormat string `json:"result_format"`
}

type tongyiResponse struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func NewTongyiProvider(cfg TongyiConfig) (*TongyiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tongyi: %w", ErrMissingAPIKey)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tongyiDefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "qwen-plus"
	}
	return &TongyiProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

func (p *TongyiProvider) Name() string  { return "tongyi" }
func (p *TongyiProvider) Model() string { return p.cfg.Model }

func (p *TongyiProvider) Rewrite(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	reqData, err := json.Marshal(tongyiRequest{
		Model:      p.cfg.Model,
		Input:      tongyiInput{Prompt: rewritePrompt + text},
		Parameters: tongyiParams{ResultFormat: "text"},
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

	var result tongyiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Code != "" {
		return "", fmt.Errorf("tongyi error %s: %s", result.Code, result.Message)
	}

	rewritten, ok := extractRewriteResult(result.Output.Text)
	if !ok {
		return "", fmt.Errorf("%w: %.100s", ErrBadResponse, result.Output.Text)
	}
	return rewritten, nil
}

func (p *TongyiProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
