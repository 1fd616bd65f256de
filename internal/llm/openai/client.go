package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"resume-ats/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
)

// Client implements llm.Provider using OpenAI Chat Completions.
type Client struct {
	model string
	http  *resty.Client
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Client{model: model, http: httpClient}, nil
}

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Generate sends one chat completion and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Model: c.model, Messages: messages}
	// gpt-5 models only accept the default temperature.
	if !isGPT5(c.model) {
		temp := req.Temperature
		body.Temperature = &temp
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", fmt.Errorf("openai request: %w", err)
	}

	raw := resp.String()
	if msg := gjson.Get(raw, "error.message"); msg.Exists() {
		return "", fmt.Errorf("openai error: %s (%s) status=%d", msg.String(), gjson.Get(raw, "error.type").String(), resp.StatusCode())
	}
	if resp.IsError() {
		return "", fmt.Errorf("openai status %d", resp.StatusCode())
	}
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("openai response parse: invalid JSON body")
	}

	content := strings.TrimSpace(gjson.Get(raw, "choices.0.message.content").String())
	if content == "" {
		return "", llm.ErrNoStructuredData
	}
	logUsage(c.model, raw, time.Since(start))
	return content, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Provider = (*Client)(nil)
