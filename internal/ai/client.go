// Package ai talks to an OpenAI-compatible chat completion API and
// implements the scoring and summarization stages built on top of it.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
)

// Client is the chat completion surface the scorer and summarizer
// depend on. Tests substitute a canned implementation.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Base URLs for the supported providers. All of them speak the
// OpenAI chat completions protocol.
var providerBaseURLs = map[string]string{
	"openai": "https://api.openai.com/v1",
	"zhipu":  "https://open.bigmodel.cn/api/paas/v4",
	"qwen":   "https://dashscope.aliyuncs.com/compatible-mode/v1",
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	client    *resty.Client
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	retries   int
}

// Options configures NewChatClient. BaseURL overrides the provider
// default, which lets a self-hosted gateway or a test server stand in.
type Options struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// NewChatClient builds a client for the given provider. The API key is
// required; a missing key is a configuration error, not something a
// retry can fix.
func NewChatClient(opts Options) (*ChatClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm api key is not configured")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = providerBaseURLs[opts.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ChatClient{
		client:    resty.New().SetTimeout(timeout),
		apiKey:    opts.APIKey,
		model:     opts.Model,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		maxTokens: opts.MaxTokens,
		retries:   3,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends one system+user exchange and returns the assistant text.
// Transient failures are retried with a linear backoff.
func (c *ChatClient) Chat(ctx context.Context, system, user string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   c.maxTokens,
	}

	log := logger.Get()
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		content, err := c.call(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("llm request failed")

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}
	}
	return "", fmt.Errorf("llm request failed after %d attempts: %w", c.retries, lastErr)
}

func (c *ChatClient) call(ctx context.Context, req chatRequest) (string, error) {
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(req).
		Post(c.baseURL + "/chat/completions")

	if err != nil {
		return "", fmt.Errorf("api request failed: %w", err)
	}

	// Unmarshal the body directly instead of via SetResult: gateways
	// routinely return JSON with loose content types that resty's
	// automatic unmarshaling would skip.
	var resp chatResponse
	if uerr := json.Unmarshal(httpResp.Body(), &resp); uerr != nil {
		if httpResp.IsError() {
			return "", fmt.Errorf("api returned status %d", httpResp.StatusCode())
		}
		return "", fmt.Errorf("parse api response: %w", uerr)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("api error: %s", resp.Error.Message)
	}
	if httpResp.IsError() {
		return "", fmt.Errorf("api returned status %d", httpResp.StatusCode())
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// stripCodeFences removes a surrounding markdown code fence. Models
// routinely wrap JSON answers in ```json blocks even when told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
