// Package heuristic is a rule-based extraction provider for environments
// without a model API key. It answers in the same JSON schema as the model
// providers, so the rest of the pipeline cannot tell them apart.
package heuristic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"resume-ats/internal/llm"
)

var (
	emailRe    = regexp.MustCompile(`([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`)
	phoneRe    = regexp.MustCompile(`(\+?\d[\d\s\-()]{7,}\d)`)
	nameRe     = regexp.MustCompile(`(?m)^([A-Z][a-z]+[ \t]+[A-Z][a-z]+)`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/([a-zA-Z0-9-]+)`)
	githubRe   = regexp.MustCompile(`(?i)github\.com/([a-zA-Z0-9-]+)`)
	locationRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?),[ \t]*([A-Z]{2})\b`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	monthRe    = `(?:\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+)?`
	rangeRe    = regexp.MustCompile(`(?i)(` + monthRe + `(?:\d{1,2}/)?(?:19|20)\d{2})\s*(?:-|–|—|to)\s*(present|current|now|` + monthRe + `(?:\d{1,2}/)?(?:19|20)\d{2})`)
	headingRe  = regexp.MustCompile(`(?i)^\s*(summary|profile|objective|about me)\s*:?\s*(.*)$`)
)

// Provider extracts structured data with regular expressions and keyword
// dictionaries.
type Provider struct {
	now func() time.Time
}

// New returns a heuristic provider.
func New() *Provider {
	return &Provider{now: time.Now}
}

func (p *Provider) Name() string { return "heuristic" }

// Generate ignores the prompt and parses req.ResumeText directly.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(req.ResumeText)
	if text == "" {
		return "", llm.ErrNoStructuredData
	}
	result := p.extract(text)
	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("heuristic marshal: %w", err)
	}
	return string(raw), nil
}

func (p *Provider) extract(text string) llm.ExtractionResult {
	lines := splitLines(text)
	exp, years := p.experience(lines)
	return llm.ExtractionResult{
		PersonalInfo:         personalInfo(text),
		Summary:              summary(lines),
		WorkExperience:       exp,
		Education:            education(lines),
		TechnicalSkills:      matchSkills(text, technicalSkills),
		SoftSkills:           matchSkills(text, softSkills),
		Certifications:       []string{},
		TotalExperienceYears: years,
	}
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func personalInfo(text string) llm.ExtractedPersonalInfo {
	var info llm.ExtractedPersonalInfo
	if m := nameRe.FindStringSubmatch(text); m != nil {
		info.Name = m[1]
	}
	if m := emailRe.FindStringSubmatch(text); m != nil {
		info.Email = m[1]
	}
	// Date ranges also look like phone numbers, so require a full number.
	for _, m := range phoneRe.FindAllString(text, -1) {
		if countDigits(m) >= 10 {
			info.Phone = strings.TrimSpace(m)
			break
		}
	}
	if m := linkedinRe.FindStringSubmatch(text); m != nil {
		info.LinkedIn = "https://linkedin.com/in/" + m[1]
	}
	if m := githubRe.FindStringSubmatch(text); m != nil {
		info.GitHub = "https://github.com/" + m[1]
	}
	if m := locationRe.FindStringSubmatch(text); m != nil {
		info.Location = llm.ExtractedLocation{City: m[1], State: m[2]}
	}
	return info
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func matchSkills(text string, dict []skill) []string {
	lower := strings.ToLower(text)
	out := []string{}
	seen := make(map[string]struct{})
	for _, s := range dict {
		if _, ok := seen[s.display]; ok {
			continue
		}
		if containsTerm(lower, s.term) {
			seen[s.display] = struct{}{}
			out = append(out, s.display)
		}
	}
	return out
}

// containsTerm matches term on word boundaries. Symbols that appear inside
// skill names (c++, c#) count as part of the word, and a dot only ends a word
// when it is not followed by more letters (node.js).
func containsTerm(lower, term string) bool {
	for from := 0; from < len(lower); {
		idx := strings.Index(lower[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i == len(s) {
		return true
	}
	if s[i] == '.' {
		return i+1 == len(s) || !isWordByte(s[i+1])
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+' || b == '#'
}

func summary(lines []string) string {
	for i, l := range lines {
		m := headingRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if rest := strings.TrimSpace(m[2]); rest != "" {
			return rest
		}
		if i+1 < len(lines) {
			return lines[i+1]
		}
	}
	return ""
}

// experience reads lines that carry a date range as job entries. The text
// before the range is split into title and company.
func (p *Provider) experience(lines []string) ([]llm.ExtractedExperience, float64) {
	out := []llm.ExtractedExperience{}
	var months int
	for i, l := range lines {
		m := rangeRe.FindStringSubmatchIndex(l)
		if m == nil {
			continue
		}
		header := strings.Trim(strings.TrimSpace(l[:m[0]]), "|,-–()")
		if header == "" && i > 0 {
			header = lines[i-1]
		}
		if header == "" || isEducationLine(header) {
			continue
		}
		title, company := splitHeader(header)
		startRaw := l[m[2]:m[3]]
		endRaw := l[m[4]:m[5]]

		exp := llm.ExtractedExperience{Title: title, Company: company}
		start, _ := llm.NormalizeDate(startRaw)
		exp.StartDate = start
		end, ongoing := llm.NormalizeDate(endRaw)
		if ongoing {
			exp.Current = true
		} else if end != "" {
			exp.EndDate = &end
		}
		if i+1 < len(lines) && (strings.HasPrefix(lines[i+1], "-") || strings.HasPrefix(lines[i+1], "•")) {
			exp.Description = strings.TrimSpace(strings.TrimLeft(lines[i+1], "-• "))
		}
		months += p.spanMonths(exp.StartDate, exp.EndDate, exp.Current)
		out = append(out, exp)
	}
	return out, float64(months) / 12
}

func (p *Provider) spanMonths(start string, end *string, current bool) int {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0
	}
	to := p.now()
	if !current {
		if end == nil {
			return 0
		}
		if to, err = time.Parse("2006-01-02", *end); err != nil {
			return 0
		}
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if months < 0 {
		return 0
	}
	return months
}

func splitHeader(header string) (string, string) {
	for _, sep := range []string{" at ", " @ ", " | ", ", ", " - "} {
		if idx := strings.Index(header, sep); idx > 0 {
			return strings.TrimSpace(header[:idx]), strings.TrimSpace(header[idx+len(sep):])
		}
	}
	return header, ""
}

func isEducationLine(l string) bool {
	lower := strings.ToLower(l)
	for _, t := range institutionTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func education(lines []string) []llm.ExtractedEducation {
	out := []llm.ExtractedEducation{}
	for i := 0; i < len(lines) && len(out) < 3; i++ {
		lower := strings.ToLower(lines[i])
		degree := findTerm(lower, degreeTerms)
		institution := findTerm(lower, institutionTerms)
		if degree == "" && institution == "" {
			continue
		}
		edu := llm.ExtractedEducation{}
		if degree != "" {
			edu.Degree = lines[i]
		}
		if institution != "" {
			edu.Institution = lines[i]
		}
		// A degree line is often followed by the institution, or the reverse.
		if i+1 < len(lines) {
			next := strings.ToLower(lines[i+1])
			if edu.Institution == "" && findTerm(next, institutionTerms) != "" {
				edu.Institution = lines[i+1]
				i++
			} else if edu.Degree == "" && findTerm(next, degreeTerms) != "" {
				edu.Degree = lines[i+1]
				i++
			}
		}
		if edu.Degree != "" && edu.Degree == edu.Institution {
			degreePart, instPart := splitHeader(edu.Degree)
			if instPart != "" {
				edu.Degree, edu.Institution = degreePart, instPart
			}
		}
		if years := yearRe.FindAllString(edu.Degree+" "+edu.Institution, -1); len(years) > 0 {
			edu.GraduationYear, _ = strconv.Atoi(years[len(years)-1])
		}
		out = append(out, edu)
	}
	return out
}

func findTerm(lower string, terms []string) string {
	for _, t := range terms {
		if containsTerm(lower, t) {
			return t
		}
	}
	return ""
}

var _ llm.Provider = (*Provider)(nil)
