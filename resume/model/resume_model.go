package model

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Location is a structured postal location.
type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// IsZero reports whether no location component is set.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.City) == "" && strings.TrimSpace(l.State) == "" && strings.TrimSpace(l.Country) == ""
}

// String renders the location as "City, State, Country" skipping blanks.
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.State, l.Country} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// PersonalInfo holds contact details. Age, gender and marital status have no
// field here on purpose: they are never stored.
type PersonalInfo struct {
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Location  Location `json:"location"`
	LinkedIn  string   `json:"linkedin,omitempty"`
	GitHub    string   `json:"github,omitempty"`
	Portfolio string   `json:"portfolio,omitempty"`
}

// IsZero reports whether the personal info carries no data at all.
func (p PersonalInfo) IsZero() bool {
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Email) == "" &&
		strings.TrimSpace(p.Phone) == "" &&
		p.Location.IsZero() &&
		strings.TrimSpace(p.LinkedIn) == "" &&
		strings.TrimSpace(p.GitHub) == "" &&
		strings.TrimSpace(p.Portfolio) == ""
}

// Experience is a single work history entry. Dates are YYYY-MM-DD or empty.
type Experience struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location,omitempty"`
	StartDate       string   `json:"startDate,omitempty"`
	EndDate         string   `json:"endDate,omitempty"`
	Current         bool     `json:"current"`
	Description     string   `json:"description,omitempty"`
	KeyAchievements []string `json:"keyAchievements,omitempty"`
	IsUserModified  bool     `json:"isUserModified,omitempty"`
}

type Education struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	FieldOfStudy   string `json:"fieldOfStudy,omitempty"`
	GraduationYear int    `json:"graduationYear,omitempty"`
	GPA            string `json:"gpa,omitempty"`
	Location       string `json:"location,omitempty"`
}

type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer,omitempty"`
	IssueDate    string `json:"issueDate,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
	Duration     string   `json:"duration,omitempty"`
}

// Language proficiency is one of basic, intermediate, advanced, native.
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// ConfidenceScores are per-section extraction confidences in [0,1].
type ConfidenceScores struct {
	PersonalInfo float64 `json:"personalInfo"`
	Skills       float64 `json:"skills"`
	Experience   float64 `json:"experience"`
	Education    float64 `json:"education"`
	Overall      float64 `json:"overall"`
}

// AIData is the structured extraction output stored on a resume.
type AIData struct {
	PersonalInfo         PersonalInfo     `json:"personalInfo"`
	Summary              string           `json:"summary,omitempty"`
	Skills               []string         `json:"skills"`
	Experience           []Experience     `json:"experience"`
	Education            []Education      `json:"education"`
	Certifications       []Certification  `json:"certifications"`
	Projects             []Project        `json:"projects"`
	Languages            []Language       `json:"languages"`
	TotalExperienceYears float64          `json:"totalExperienceYears"`
	Recommendations      []string         `json:"recommendations,omitempty"`
	ConfidenceScores     ConfidenceScores `json:"confidenceScores"`
}

// UserEdits is the user-maintained overlay on top of AIData.
type UserEdits struct {
	ModifiedPersonalInfo *PersonalInfo `json:"modifiedPersonalInfo,omitempty"`
	ModifiedSkills       []string      `json:"modifiedSkills,omitempty"`
	ModifiedExperience   []Experience  `json:"modifiedExperience,omitempty"`
	ModifiedEducation    []Education   `json:"modifiedEducation,omitempty"`
	LastModifiedAt       *time.Time    `json:"lastModifiedAt,omitempty"`
}

// View is the effective resume: user edits layered over AI data.
type View struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Skills         []string        `json:"skills"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
	Languages      []Language      `json:"languages"`
}

// Effective applies the overlay rule: a non-empty edit field replaces the AI
// field. Personal info merges field by field; the list sections are replaced
// as a whole. Certifications, projects and languages always come from AI.
// Either argument may be nil.
func Effective(ai *AIData, edits *UserEdits) View {
	var view View
	if ai != nil {
		view = View{
			PersonalInfo:   ai.PersonalInfo,
			Skills:         ai.Skills,
			Experience:     ai.Experience,
			Education:      ai.Education,
			Certifications: ai.Certifications,
			Projects:       ai.Projects,
			Languages:      ai.Languages,
		}
	}
	if edits == nil {
		return view
	}
	if edits.ModifiedPersonalInfo != nil {
		view.PersonalInfo = mergePersonalInfo(view.PersonalInfo, *edits.ModifiedPersonalInfo)
	}
	if len(edits.ModifiedSkills) > 0 {
		view.Skills = edits.ModifiedSkills
	}
	if len(edits.ModifiedExperience) > 0 {
		view.Experience = edits.ModifiedExperience
	}
	if len(edits.ModifiedEducation) > 0 {
		view.Education = edits.ModifiedEducation
	}
	return view
}

func mergePersonalInfo(base, overlay PersonalInfo) PersonalInfo {
	base.Name = overlayString(base.Name, overlay.Name)
	base.Email = overlayString(base.Email, overlay.Email)
	base.Phone = overlayString(base.Phone, overlay.Phone)
	base.LinkedIn = overlayString(base.LinkedIn, overlay.LinkedIn)
	base.GitHub = overlayString(base.GitHub, overlay.GitHub)
	base.Portfolio = overlayString(base.Portfolio, overlay.Portfolio)
	base.Location.City = overlayString(base.Location.City, overlay.Location.City)
	base.Location.State = overlayString(base.Location.State, overlay.Location.State)
	base.Location.Country = overlayString(base.Location.Country, overlay.Location.Country)
	return base
}

func overlayString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// Validate enforces formatting rules on user supplied overlay fields.
func (e UserEdits) Validate() error {
	if p := e.ModifiedPersonalInfo; p != nil {
		if email := strings.TrimSpace(p.Email); email != "" && !strings.Contains(email, "@") {
			return errors.New("modifiedPersonalInfo.email is invalid")
		}
		for field, link := range map[string]string{"linkedin": p.LinkedIn, "github": p.GitHub, "portfolio": p.Portfolio} {
			if trimmed := strings.TrimSpace(link); trimmed != "" && !isFullURL(trimmed) {
				return fmt.Errorf("modifiedPersonalInfo.%s must be a full URL", field)
			}
		}
	}
	for i, skill := range e.ModifiedSkills {
		if strings.TrimSpace(skill) == "" {
			return fmt.Errorf("modifiedSkills[%d] is empty", i)
		}
	}
	for i, exp := range e.ModifiedExperience {
		if strings.TrimSpace(exp.Title) == "" && strings.TrimSpace(exp.Company) == "" {
			return fmt.Errorf("modifiedExperience[%d] needs a title or company", i)
		}
		if err := validateDateField(exp.StartDate, fmt.Sprintf("modifiedExperience[%d].startDate", i)); err != nil {
			return err
		}
		if err := validateDateField(exp.EndDate, fmt.Sprintf("modifiedExperience[%d].endDate", i)); err != nil {
			return err
		}
	}
	for i, edu := range e.ModifiedEducation {
		if edu.GraduationYear != 0 && (edu.GraduationYear < 1900 || edu.GraduationYear > 2200) {
			return fmt.Errorf("modifiedEducation[%d].graduationYear is out of range", i)
		}
	}
	return nil
}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validateDateField(value, field string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if !isoDatePattern.MatchString(trimmed) {
		return fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	if _, err := time.Parse("2006-01-02", trimmed); err != nil {
		return fmt.Errorf("%s is not a valid date", field)
	}
	return nil
}

func isFullURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
