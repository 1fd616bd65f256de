package llm

import (
	"math"
	"strings"

	"resume-ats/resume/model"
)

// ToAIData maps an extraction result onto the stored AI data shape. Skills are
// the technical bucket followed by the soft bucket, de-duplicated
// case-insensitively with the first spelling kept.
func (r *ExtractionResult) ToAIData() model.AIData {
	if r == nil {
		return model.AIData{}
	}
	data := model.AIData{
		PersonalInfo: model.PersonalInfo{
			Name:  r.PersonalInfo.Name,
			Email: r.PersonalInfo.Email,
			Phone: r.PersonalInfo.Phone,
			Location: model.Location{
				City:    r.PersonalInfo.Location.City,
				State:   r.PersonalInfo.Location.State,
				Country: r.PersonalInfo.Location.Country,
			},
			LinkedIn:  r.PersonalInfo.LinkedIn,
			GitHub:    r.PersonalInfo.GitHub,
			Portfolio: r.PersonalInfo.Portfolio,
		},
		Summary:              r.Summary,
		Skills:               mergeSkills(r.TechnicalSkills, r.SoftSkills),
		Experience:           make([]model.Experience, 0, len(r.WorkExperience)),
		Education:            make([]model.Education, 0, len(r.Education)),
		Certifications:       make([]model.Certification, 0, len(r.Certifications)),
		Projects:             []model.Project{},
		Languages:            make([]model.Language, 0, len(r.Languages)),
		TotalExperienceYears: r.TotalExperienceYears,
		Recommendations:      r.Recommendations,
	}
	for _, e := range r.WorkExperience {
		exp := model.Experience{
			Title:           e.Title,
			Company:         e.Company,
			Location:        e.Location,
			StartDate:       e.StartDate,
			Current:         e.Current,
			Description:     e.Description,
			KeyAchievements: e.KeyAchievements,
		}
		if e.EndDate != nil {
			exp.EndDate = *e.EndDate
		}
		data.Experience = append(data.Experience, exp)
	}
	for _, e := range r.Education {
		data.Education = append(data.Education, model.Education{
			Degree:         e.Degree,
			Institution:    e.Institution,
			FieldOfStudy:   e.FieldOfStudy,
			GraduationYear: e.GraduationYear,
			GPA:            e.GPA,
		})
	}
	for _, name := range r.Certifications {
		data.Certifications = append(data.Certifications, model.Certification{Name: name})
	}
	for _, l := range r.Languages {
		data.Languages = append(data.Languages, model.Language{Language: l.Language, Proficiency: l.Proficiency})
	}
	data.ConfidenceScores = confidence(data)
	return data
}

func mergeSkills(groups ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, s := range group {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// confidence estimates how complete each section is, in [0,1].
func confidence(d model.AIData) model.ConfidenceScores {
	p := d.PersonalInfo
	personal := fraction(
		p.Name != "",
		p.Email != "",
		p.Phone != "",
		!p.Location.IsZero(),
	)
	skills := math.Min(1, float64(len(d.Skills))/10)

	experience := 0.0
	if len(d.Experience) > 0 {
		sum := 0.0
		for _, e := range d.Experience {
			sum += fraction(e.Title != "", e.Company != "", e.StartDate != "")
		}
		experience = sum / float64(len(d.Experience))
	}
	education := 0.0
	if len(d.Education) > 0 {
		sum := 0.0
		for _, e := range d.Education {
			sum += fraction(e.Degree != "", e.Institution != "")
		}
		education = sum / float64(len(d.Education))
	}

	return model.ConfidenceScores{
		PersonalInfo: round2(personal),
		Skills:       round2(skills),
		Experience:   round2(experience),
		Education:    round2(education),
		Overall:      round2((personal + skills + experience + education) / 4),
	}
}

func fraction(flags ...bool) float64 {
	if len(flags) == 0 {
		return 0
	}
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return float64(n) / float64(len(flags))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
