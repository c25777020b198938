package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	llmOCRDefaultURL   = "https://openrouter.ai/api/v1/chat/completions"
	llmOCRDefaultModel = "google/gemma-3-27b-it"
	llmOCRMaxRetries   = 1
	llmOCRRetryDelay   = 2 * time.Second
	llmOCRTimeout      = 90 * time.Second
)

// llmOCRPrompt is fixed: the model's reply is treated as OCR output with
// no validation beyond the chain's minimum-length check.
const llmOCRPrompt = "Extract ALL text from this image. Output only the text, nothing else."

type LLMOCRConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LLMOCRProvider is the last-resort tier: a vision-capable chat model
// asked to transcribe a rendered document referenced by signed URL.
type LLMOCRProvider struct {
	cfg     LLMOCRConfig
	limiter *Limiter
	client  *http.Client
}

func NewLLMOCR(cfg LLMOCRConfig, limiter *Limiter) *LLMOCRProvider {
	if cfg.Model == "" {
		cfg.Model = llmOCRDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = llmOCRDefaultURL
	}
	return &LLMOCRProvider{
		cfg:     cfg,
		limiter: limiter,
		client: &http.Client{
			Timeout: llmOCRTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (p *LLMOCRProvider) Name() string { return "llm-vision" }

type llmCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *LLMOCRProvider) TryExtract(ctx context.Context, req Request) (string, error) {
	if p.cfg.APIKey == "" {
		return "", fmt.Errorf("llm vision OCR not configured")
	}
	if req.SignedURL == "" {
		return "", fmt.Errorf("llm vision OCR requires a signed URL reference")
	}

	body, err := json.Marshal(map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_url", "image_url": map[string]any{"url": req.SignedURL}},
					{"type": "text", "text": llmOCRPrompt},
				},
			},
		},
		"temperature": 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	return p.limiter.Do(ctx, func() (string, error) {
		var lastErr error
		for attempt := 0; attempt <= llmOCRMaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(llmOCRRetryDelay * time.Duration(attempt)):
				}
			}

			text, err := p.execute(ctx, body)
			if err == nil {
				return text, nil
			}
			lastErr = err
			if isClientError(err) {
				break
			}
		}
		return "", fmt.Errorf("llm vision OCR failed after %d attempts: %w", llmOCRMaxRetries+1, lastErr)
	})
}

func (p *LLMOCRProvider) execute(ctx context.Context, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, llmOCRTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, "POST", p.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "docintel/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &OCRError{StatusCode: resp.StatusCode, Message: string(raw), Type: "llm"}
	}

	var completion llmCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	// The API can return 200 with an inline error object.
	if completion.Error != nil && completion.Error.Message != "" {
		return "", &OCRError{StatusCode: resp.StatusCode, Message: completion.Error.Message, Type: completion.Error.Code}
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}
