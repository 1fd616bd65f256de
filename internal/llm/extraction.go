package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-ats/internal/shared/telemetry"
)

// ExtractionResult is the schema the extraction prompt asks for. Personal
// attributes such as age or gender have no field and are dropped on parse.
type ExtractionResult struct {
	PersonalInfo         ExtractedPersonalInfo `json:"personal_info"`
	Summary              string                `json:"summary"`
	WorkExperience       []ExtractedExperience `json:"work_experience"`
	Education            []ExtractedEducation  `json:"education"`
	TechnicalSkills      []string              `json:"technical_skills"`
	SoftSkills           []string              `json:"soft_skills"`
	Certifications       []string              `json:"certifications"`
	Languages            []ExtractedLanguage   `json:"languages"`
	TotalExperienceYears float64               `json:"total_experience_years"`
	Recommendations      []string              `json:"recommendations"`
}

type ExtractedPersonalInfo struct {
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Location  ExtractedLocation `json:"location"`
	LinkedIn  string            `json:"linkedin"`
	GitHub    string            `json:"github"`
	Portfolio string            `json:"portfolio"`
}

type ExtractedLocation struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type ExtractedExperience struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	StartDate       string   `json:"start_date"`
	EndDate         *string  `json:"end_date"`
	Current         bool     `json:"current"`
	Description     string   `json:"description"`
	KeyAchievements []string `json:"key_achievements"`
}

type ExtractedEducation struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	FieldOfStudy   string `json:"field_of_study"`
	GraduationYear int    `json:"graduation_year"`
	GPA            string `json:"gpa"`
}

type ExtractedLanguage struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// Extractor turns resume text into an ExtractionResult with one provider call.
type Extractor struct {
	provider Provider
}

// NewExtractor returns an Extractor backed by provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// ProviderName reports the configured provider.
func (e *Extractor) ProviderName() string {
	if e == nil || e.provider == nil {
		return ""
	}
	return e.provider.Name()
}

// Extract runs structured extraction over text. There is no retry: a failed
// call surfaces immediately so the caller can mark the record failed.
func (e *Extractor) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	if e == nil || e.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrExtractionService)
	}
	start := time.Now()
	req := Request{
		System:      SystemPrompt(),
		Prompt:      BuildExtractionPrompt(text),
		ResumeText:  text,
		Temperature: 0,
		JSON:        true,
	}
	raw, err := e.provider.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNoStructuredData) || errors.Is(err, ErrExtractionService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrExtractionService, err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoStructuredData
	}

	result, err := ParseExtraction(raw)
	if err != nil {
		return nil, err
	}
	telemetry.Info("llm.extraction", map[string]any{
		"provider":    e.provider.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
		"skills":      len(result.TechnicalSkills) + len(result.SoftSkills),
		"experience":  len(result.WorkExperience),
	})
	return result, nil
}
