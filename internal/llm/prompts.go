package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/extraction_system.txt
	extractionSystem string
	//go:embed prompts/extraction.txt
	extractionTemplate string
)

const resumeTextPlaceholder = "{{RESUME_TEXT}}"

// SystemPrompt returns the system instruction used for extraction.
func SystemPrompt() string {
	return strings.TrimSpace(extractionSystem)
}

// BuildExtractionPrompt renders the extraction template around resumeText.
func BuildExtractionPrompt(resumeText string) string {
	return strings.Replace(extractionTemplate, resumeTextPlaceholder, strings.TrimSpace(resumeText), 1)
}
