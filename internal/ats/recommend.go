package ats

import "resume-ats/resume/model"

const (
	RecKeywords   = "add more relevant keywords from the job description"
	RecFormatting = "improve formatting for ATS readability"
	RecStructure  = "enhance structure with clear sections"
	RecLinkedIn   = "add LinkedIn profile URL"
	RecSkills     = "include more relevant technical skills"

	recommendThreshold = 80
	minSkills          = 5
)

type rule struct {
	applies func(model.View, Breakdown) bool
	text    string
}

// rules are evaluated independently and emitted in this order.
var rules = []rule{
	{
		applies: func(_ model.View, b Breakdown) bool { return b.Keywords < recommendThreshold },
		text:    RecKeywords,
	},
	{
		applies: func(_ model.View, b Breakdown) bool { return b.Formatting < recommendThreshold },
		text:    RecFormatting,
	},
	{
		applies: func(_ model.View, b Breakdown) bool { return b.Structure < recommendThreshold },
		text:    RecStructure,
	},
	{
		applies: func(v model.View, _ Breakdown) bool { return !hasText(v.PersonalInfo.LinkedIn) },
		text:    RecLinkedIn,
	},
	{
		applies: func(v model.View, _ Breakdown) bool { return countSkills(v.Skills) < minSkills },
		text:    RecSkills,
	},
}

// Recommend returns every applicable recommendation. The result is never nil.
func Recommend(view model.View, breakdown Breakdown) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.applies(view, breakdown) {
			out = append(out, r.text)
		}
	}
	return out
}
