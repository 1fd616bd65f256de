package llm

import (
	"context"
	"errors"
)

// Provider abstracts a structured-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single-shot generation call. ResumeText carries the raw input
// for providers that do not run a model over the prompt.
type Request struct {
	System      string
	Prompt      string
	ResumeText  string
	Temperature float32
	JSON        bool
}

var (
	// ErrExtractionService is returned when the provider call itself fails.
	ErrExtractionService = errors.New("extraction service failure")
	// ErrNoStructuredData is returned when the provider answers without content.
	ErrNoStructuredData = errors.New("no structured data returned")
	// ErrMalformedResponse is returned when the content is not a JSON object.
	ErrMalformedResponse = errors.New("malformed extraction response")
)
