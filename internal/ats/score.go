// Package ats computes the deterministic applicant-tracking-system score of a
// resume and the improvement recommendations derived from it.
package ats

import (
	"math"
	"strings"
	"time"

	"resume-ats/resume/model"
)

const (
	baseFormatting  = 85
	baseKeywords    = 70
	baseStructure   = 80
	baseReadability = 75

	maxSubScore = 100
)

// Breakdown holds the four sub-scores, each in [0,100].
type Breakdown struct {
	Formatting  int `json:"formatting"`
	Keywords    int `json:"keywords"`
	Structure   int `json:"structure"`
	Readability int `json:"readability"`
}

// Score is the persisted ATS evaluation of a resume.
type Score struct {
	Overall         int       `json:"overall"`
	Breakdown       Breakdown `json:"breakdown"`
	Recommendations []string  `json:"recommendations"`
	LastCalculated  time.Time `json:"lastCalculated"`
}

// Calculate scores the effective view of a resume. It has no side effects and
// the same view always yields the same breakdown.
func Calculate(view model.View) Breakdown {
	formatting := baseFormatting
	if hasText(view.PersonalInfo.Email) && hasText(view.PersonalInfo.Phone) {
		formatting += 10
	}

	keywords := baseKeywords
	if countSkills(view.Skills) > 5 {
		keywords += 10
	}

	structure := baseStructure
	if len(view.Experience) > 0 {
		structure += 10
	}
	if len(view.Education) > 0 {
		structure += 5
	}

	return Breakdown{
		Formatting:  clamp(formatting),
		Keywords:    clamp(keywords),
		Structure:   clamp(structure),
		Readability: clamp(baseReadability),
	}
}

// Overall is the mean of the four sub-scores rounded half away from zero.
func (b Breakdown) Overall() int {
	sum := b.Formatting + b.Keywords + b.Structure + b.Readability
	return clamp(int(math.Round(float64(sum) / 4.0)))
}

// Evaluate runs Calculate and Recommend and stamps the calculation time.
func Evaluate(view model.View, now time.Time) Score {
	breakdown := Calculate(view)
	return Score{
		Overall:         breakdown.Overall(),
		Breakdown:       breakdown,
		Recommendations: Recommend(view, breakdown),
		LastCalculated:  now.UTC(),
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxSubScore {
		return maxSubScore
	}
	return v
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// countSkills ignores blank entries so a stray "" never lifts the score.
func countSkills(skills []string) int {
	n := 0
	for _, s := range skills {
		if hasText(s) {
			n++
		}
	}
	return n
}
