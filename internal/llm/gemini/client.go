package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resume-ats/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Provider on the Gemini API.
type Client struct {
	model  string
	models *genai.Models
}

// NewClient constructs a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{model: model, models: client.Models}, nil
}

func (c *Client) Name() string { return "gemini" }

// Generate runs a single GenerateContent call.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), generateConfig(req))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini error: %s (status=%s code=%d)", apiErr.Message, apiErr.Status, apiErr.Code)
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", llm.ErrNoStructuredData
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrNoStructuredData
	}
	return text, nil
}

func generateConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}

var _ llm.Provider = (*Client)(nil)
