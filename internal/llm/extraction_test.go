package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type stubProvider struct {
	out     string
	err     error
	lastReq Request
	calls   int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req Request) (string, error) {
	s.calls++
	s.lastReq = req
	return s.out, s.err
}

const sampleResponse = `{
  "personal_info": {
    "name": "John Doe",
    "email": "John@X.com",
    "phone": "+1 (415) 555-2671",
    "location": {"city": "Austin", "state": "TX", "country": "USA"},
    "linkedin": "https://linkedin.com/in/jdoe",
    "age": 41,
    "gender": "male"
  },
  "summary": "Backend engineer",
  "work_experience": [
    {"title": "Engineer", "company": "Acme", "start_date": "2019-03", "end_date": "present", "description": "APIs"},
    {"title": "Intern", "company": "Beta", "start_date": "Jan 2018", "end_date": "2018-12-31"},
    {"description": "no title or company"}
  ],
  "education": [
    {"degree": "BSc", "institution": "State University", "graduation_year": "2018"}
  ],
  "technical_skills": ["Go", "PostgreSQL", " "],
  "soft_skills": ["Leadership", "go"],
  "certifications": ["CKA", {"name": "AWS SAA"}],
  "languages": [{"language": "English", "proficiency": "Fluent"}],
  "total_experience_years": 5.3
}`

func TestExtractParsesAndNormalizes(t *testing.T) {
	provider := &stubProvider{out: sampleResponse}
	result, err := NewExtractor(provider).Extract(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.calls)
	}
	if provider.lastReq.Temperature != 0 || !provider.lastReq.JSON {
		t.Fatalf("expected deterministic JSON request, got %+v", provider.lastReq)
	}
	if !strings.Contains(provider.lastReq.Prompt, "resume text") || provider.lastReq.ResumeText != "resume text" {
		t.Fatalf("expected resume text in prompt")
	}

	pi := result.PersonalInfo
	if pi.Email != "john@x.com" || pi.Phone != "+14155552671" || pi.Location.City != "Austin" {
		t.Fatalf("unexpected personal info %+v", pi)
	}
	if len(result.WorkExperience) != 2 {
		t.Fatalf("expected 2 experiences, got %d", len(result.WorkExperience))
	}
	first := result.WorkExperience[0]
	if first.StartDate != "2019-03-01" || !first.Current || first.EndDate != nil {
		t.Fatalf("unexpected first experience %+v", first)
	}
	second := result.WorkExperience[1]
	if second.StartDate != "2018-01-01" || second.EndDate == nil || *second.EndDate != "2018-12-31" {
		t.Fatalf("unexpected second experience %+v", second)
	}
	if result.Education[0].GraduationYear != 2018 {
		t.Fatalf("expected graduation year 2018, got %d", result.Education[0].GraduationYear)
	}
	if result.TotalExperienceYears != 5.5 {
		t.Fatalf("expected years rounded to 5.5, got %v", result.TotalExperienceYears)
	}
	if !reflect.DeepEqual(result.Certifications, []string{"CKA", "AWS SAA"}) {
		t.Fatalf("unexpected certifications %v", result.Certifications)
	}
	if result.Languages[0].Proficiency != "advanced" {
		t.Fatalf("expected fluent mapped to advanced, got %q", result.Languages[0].Proficiency)
	}

	data := result.ToAIData()
	if !reflect.DeepEqual(data.Skills, []string{"Go", "PostgreSQL", "Leadership"}) {
		t.Fatalf("unexpected merged skills %v", data.Skills)
	}
	if data.Experience[0].EndDate != "" || data.Experience[1].EndDate != "2018-12-31" {
		t.Fatalf("unexpected experience end dates %+v", data.Experience)
	}
	if c := data.ConfidenceScores; c.Overall <= 0 || c.Overall > 1 || c.PersonalInfo != 1 {
		t.Fatalf("unexpected confidence %+v", c)
	}
}

func TestExtractProviderFailure(t *testing.T) {
	_, err := NewExtractor(&stubProvider{err: errors.New("connection reset")}).Extract(context.Background(), "x")
	if !errors.Is(err, ErrExtractionService) {
		t.Fatalf("expected ErrExtractionService, got %v", err)
	}
}

func TestExtractTimeoutKeepsCause(t *testing.T) {
	_, err := NewExtractor(&stubProvider{err: context.DeadlineExceeded}).Extract(context.Background(), "x")
	if !errors.Is(err, ErrExtractionService) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline, got %v", err)
	}
}

func TestExtractEmptyContent(t *testing.T) {
	_, err := NewExtractor(&stubProvider{out: "  "}).Extract(context.Background(), "x")
	if !errors.Is(err, ErrNoStructuredData) {
		t.Fatalf("expected ErrNoStructuredData, got %v", err)
	}
}

func TestExtractMalformed(t *testing.T) {
	for _, raw := range []string{"not json", "[1,2,3]", `{"personal_info": `} {
		_, err := NewExtractor(&stubProvider{out: raw}).Extract(context.Background(), "x")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("raw %q: expected ErrMalformedResponse, got %v", raw, err)
		}
	}
}

func TestExtractNilProvider(t *testing.T) {
	_, err := NewExtractor(nil).Extract(context.Background(), "x")
	if !errors.Is(err, ErrExtractionService) {
		t.Fatalf("expected ErrExtractionService, got %v", err)
	}
}

func TestParseExtractionStripsCodeFence(t *testing.T) {
	res, err := ParseExtraction("```json\n{\"technical_skills\": [\"Go\"]}\n```")
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if len(res.TechnicalSkills) != 1 || res.TechnicalSkills[0] != "Go" {
		t.Fatalf("unexpected skills %v", res.TechnicalSkills)
	}
}

func TestParseExtractionStringLocation(t *testing.T) {
	res, err := ParseExtraction(`{"personal_info": {"full_name": "Ann Lee", "location": "Seattle, WA"}}`)
	if err != nil {
		t.Fatalf("ParseExtraction: %v", err)
	}
	if res.PersonalInfo.Name != "Ann Lee" || res.PersonalInfo.Location.City != "Seattle" || res.PersonalInfo.Location.State != "WA" {
		t.Fatalf("unexpected personal info %+v", res.PersonalInfo)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		ongoing bool
	}{
		{in: "2020-05-17", want: "2020-05-17"},
		{in: "2020-05", want: "2020-05-01"},
		{in: "05/2020", want: "2020-05-01"},
		{in: "May 2020", want: "2020-05-01"},
		{in: "September 2021", want: "2021-09-01"},
		{in: "2019", want: "2019-01-01"},
		{in: "Present", ongoing: true},
		{in: "sometime", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		got, ongoing := NormalizeDate(tt.in)
		if got != tt.want || ongoing != tt.ongoing {
			t.Fatalf("NormalizeDate(%q) = %q,%v want %q,%v", tt.in, got, ongoing, tt.want, tt.ongoing)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+44 20 7946 0958": "+442079460958",
		"0044 20 7946 0958": "+442079460958",
		"1-415-555-2671":   "+14155552671",
		"(415) 555-2671":   "(415) 555-2671",
		"+12":              "+12",
		"":                 "",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildExtractionPromptRules(t *testing.T) {
	prompt := BuildExtractionPrompt("  Jane Roe  ")
	for _, want := range []string{"YYYY-MM-DD", "E.164", "technical_skills", "soft_skills", "marital status", "JSON only", "Jane Roe"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, resumeTextPlaceholder) {
		t.Fatalf("placeholder not replaced")
	}
}
