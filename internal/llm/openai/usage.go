package openai

import (
	"time"

	"github.com/tidwall/gjson"

	"resume-ats/internal/shared/telemetry"
)

func logUsage(model, raw string, elapsed time.Duration) {
	fields := map[string]any{
		"model":       model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if usage := gjson.Get(raw, "usage"); usage.Exists() {
		fields["prompt_tokens"] = usage.Get("prompt_tokens").Int()
		fields["completion_tokens"] = usage.Get("completion_tokens").Int()
		fields["total_tokens"] = usage.Get("total_tokens").Int()
	}
	telemetry.Info("llm.response", fields)
}
