package llm

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"
)

// ParseExtraction reads a provider response into an ExtractionResult and
// normalises dates, phone numbers and experience years. Models sometimes
// quote numbers or flatten nested objects, so fields are read leniently.
func ParseExtraction(raw string) (*ExtractionResult, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, ErrNoStructuredData
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}

	out := &ExtractionResult{
		PersonalInfo:         parsePersonalInfo(root.Get("personal_info")),
		Summary:              strings.TrimSpace(root.Get("summary").String()),
		TechnicalSkills:      stringList(root.Get("technical_skills")),
		SoftSkills:           stringList(root.Get("soft_skills")),
		Certifications:       certificationNames(root.Get("certifications")),
		Recommendations:      stringList(root.Get("recommendations")),
		TotalExperienceYears: roundHalf(root.Get("total_experience_years").Float()),
	}
	root.Get("work_experience").ForEach(func(_, v gjson.Result) bool {
		if exp, ok := parseExperience(v); ok {
			out.WorkExperience = append(out.WorkExperience, exp)
		}
		return true
	})
	root.Get("education").ForEach(func(_, v gjson.Result) bool {
		if edu, ok := parseEducation(v); ok {
			out.Education = append(out.Education, edu)
		}
		return true
	})
	root.Get("languages").ForEach(func(_, v gjson.Result) bool {
		lang := ExtractedLanguage{
			Language:    strings.TrimSpace(v.Get("language").String()),
			Proficiency: normalizeProficiency(v.Get("proficiency").String()),
		}
		if v.Type == gjson.String {
			lang = ExtractedLanguage{Language: strings.TrimSpace(v.String())}
		}
		if lang.Language != "" {
			out.Languages = append(out.Languages, lang)
		}
		return true
	})
	return out, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parsePersonalInfo(v gjson.Result) ExtractedPersonalInfo {
	info := ExtractedPersonalInfo{
		Name:      strings.TrimSpace(firstString(v, "name", "full_name")),
		Email:     strings.ToLower(strings.TrimSpace(v.Get("email").String())),
		Phone:     NormalizePhone(v.Get("phone").String()),
		LinkedIn:  strings.TrimSpace(v.Get("linkedin").String()),
		GitHub:    strings.TrimSpace(v.Get("github").String()),
		Portfolio: strings.TrimSpace(v.Get("portfolio").String()),
	}
	loc := v.Get("location")
	if loc.IsObject() {
		info.Location = ExtractedLocation{
			City:    strings.TrimSpace(loc.Get("city").String()),
			State:   strings.TrimSpace(loc.Get("state").String()),
			Country: strings.TrimSpace(loc.Get("country").String()),
		}
	} else if loc.Type == gjson.String {
		info.Location = splitLocation(loc.String())
	}
	return info
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p).String(); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// splitLocation maps "City, ST" or "City, State, Country" into components.
func splitLocation(s string) ExtractedLocation {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	var loc ExtractedLocation
	switch len(parts) {
	case 0:
	case 1:
		loc.City = parts[0]
	case 2:
		loc.City, loc.State = parts[0], parts[1]
	default:
		loc.City, loc.State, loc.Country = parts[0], parts[1], parts[len(parts)-1]
	}
	return loc
}

func parseExperience(v gjson.Result) (ExtractedExperience, bool) {
	if !v.IsObject() {
		return ExtractedExperience{}, false
	}
	exp := ExtractedExperience{
		Title:           strings.TrimSpace(firstString(v, "title", "position")),
		Company:         strings.TrimSpace(v.Get("company").String()),
		Location:        strings.TrimSpace(v.Get("location").String()),
		Current:         v.Get("current").Bool(),
		Description:     strings.TrimSpace(v.Get("description").String()),
		KeyAchievements: stringList(v.Get("key_achievements")),
	}
	start, _ := NormalizeDate(v.Get("start_date").String())
	exp.StartDate = start

	end := v.Get("end_date")
	if end.Exists() && end.Type != gjson.Null {
		date, ongoing := NormalizeDate(end.String())
		if ongoing {
			exp.Current = true
		} else if date != "" {
			exp.EndDate = &date
		}
	}
	if exp.Current {
		exp.EndDate = nil
	}
	if exp.Title == "" && exp.Company == "" {
		return ExtractedExperience{}, false
	}
	return exp, true
}

func parseEducation(v gjson.Result) (ExtractedEducation, bool) {
	if !v.IsObject() {
		return ExtractedEducation{}, false
	}
	edu := ExtractedEducation{
		Degree:       strings.TrimSpace(v.Get("degree").String()),
		Institution:  strings.TrimSpace(v.Get("institution").String()),
		FieldOfStudy: strings.TrimSpace(v.Get("field_of_study").String()),
		GPA:          strings.TrimSpace(v.Get("gpa").String()),
	}
	if year := int(v.Get("graduation_year").Int()); year >= 1900 && year <= 2200 {
		edu.GraduationYear = year
	}
	if edu.Degree == "" && edu.Institution == "" {
		return ExtractedEducation{}, false
	}
	return edu, true
}

func stringList(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// certificationNames accepts either plain strings or objects with a name.
func certificationNames(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		name := item.String()
		if item.IsObject() {
			name = item.Get("name").String()
		}
		if s := strings.TrimSpace(name); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

func normalizeProficiency(s string) string {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case "basic", "intermediate", "advanced", "native":
		return p
	case "fluent", "professional":
		return "advanced"
	case "beginner", "elementary":
		return "basic"
	case "mother tongue", "bilingual":
		return "native"
	default:
		return ""
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"2006/01",
	"01/2006",
	"1/2006",
	"Jan 2006",
	"January 2006",
	"Jan. 2006",
	"2006",
}

// NormalizeDate converts a loose date into YYYY-MM-DD. A month-only date maps
// to the first of the month and a year-only date to January 1st. The second
// return reports an open-ended marker such as "present".
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return "", false
	case "present", "current", "now", "ongoing", "today":
		return "", true
	}
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format("2006-01-02"), false
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), false
		}
	}
	return "", false
}

// NormalizePhone returns the E.164 form when it can be derived and the
// trimmed input otherwise.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case strings.HasPrefix(s, "+"):
	case strings.HasPrefix(d, "00"):
		d = d[2:]
	case len(d) == 11 && strings.HasPrefix(d, "1"):
	default:
		return s
	}
	if len(d) < 8 || len(d) > 15 {
		return s
	}
	return "+" + d
}

func roundHalf(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*2) / 2
}
