package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"resume-ats/internal/ats"
	"resume-ats/internal/extract"
	"resume-ats/internal/llm"
	"resume-ats/internal/llm/gemini"
	"resume-ats/internal/llm/heuristic"
	openai "resume-ats/internal/llm/openai"
	"resume-ats/internal/shared/config"
	"resume-ats/resume/model"
)

type output struct {
	Provider   string       `json:"provider"`
	TextLength int          `json:"textLength"`
	AIData     model.AIData `json:"aiData"`
	ATSScore   ats.Score    `json:"atsScore"`
	Text       string       `json:"text,omitempty"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitErr(fmt.Sprintf("config: %v", err))
	}

	resumePath := flag.String("resume", "", "Path to resume file (pdf, docx or doc)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "Extraction provider: openai, gemini or heuristic")
	modelName := flag.String("model", cfg.LLMModel, "LLM model")
	showText := flag.Bool("text", false, "Include the extracted plain text in the output")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}

	data, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	fileName := filepath.Base(*resumePath)
	mimeType := mimetype.Detect(data).String()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProcessTimeout)
	defer cancel()

	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}

	p, err := buildProvider(ctx, cfg, *provider, *modelName)
	if err != nil {
		exitErr(err.Error())
	}
	extractor := llm.NewExtractor(p)
	result, err := extractor.Extract(ctx, text)
	if err != nil {
		exitErr(fmt.Sprintf("extract structured data: %v", err))
	}

	ai := result.ToAIData()
	out := output{
		Provider:   extractor.ProviderName(),
		TextLength: len(text),
		AIData:     ai,
		ATSScore:   ats.Evaluate(model.Effective(&ai, nil), time.Now().UTC()),
	}
	if *showText {
		out.Text = text
	}

	raw, err := json.Marshal(out)
	if err != nil {
		exitErr(fmt.Sprintf("encode output: %v", err))
	}
	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	_, _ = os.Stdout.Write([]byte("\n"))
}

func buildProvider(ctx context.Context, cfg config.Config, provider, modelName string) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return openai.NewClient(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   modelName,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
	case "gemini":
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, modelName)
	case "", "heuristic":
		return heuristic.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
