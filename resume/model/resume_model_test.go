package model

import (
	"reflect"
	"testing"
)

func TestEffectiveSkillsPreferEdits(t *testing.T) {
	ai := &AIData{Skills: []string{"Python"}}

	view := Effective(ai, &UserEdits{ModifiedSkills: []string{"Go", "Rust"}})
	if !reflect.DeepEqual(view.Skills, []string{"Go", "Rust"}) {
		t.Fatalf("expected edited skills, got %v", view.Skills)
	}

	view = Effective(ai, &UserEdits{ModifiedSkills: []string{}})
	if !reflect.DeepEqual(view.Skills, []string{"Python"}) {
		t.Fatalf("expected ai skills fallback, got %v", view.Skills)
	}

	view = Effective(ai, nil)
	if !reflect.DeepEqual(view.Skills, []string{"Python"}) {
		t.Fatalf("expected ai skills with nil edits, got %v", view.Skills)
	}
}

func TestEffectivePersonalInfoIgnoresZeroOverlay(t *testing.T) {
	ai := &AIData{PersonalInfo: PersonalInfo{Name: "John Doe", Email: "john@x.com"}}

	view := Effective(ai, &UserEdits{ModifiedPersonalInfo: &PersonalInfo{}})
	if view.PersonalInfo != ai.PersonalInfo {
		t.Fatalf("expected ai personal info, got %+v", view.PersonalInfo)
	}
}

func TestEffectivePersonalInfoMergesPerField(t *testing.T) {
	ai := &AIData{PersonalInfo: PersonalInfo{
		Name:     "John Doe",
		Email:    "john@x.com",
		Phone:    "+1 415 555 0100",
		LinkedIn: "https://linkedin.com/in/johndoe",
		Location: Location{City: "Austin", State: "TX"},
	}}
	edits := &UserEdits{ModifiedPersonalInfo: &PersonalInfo{
		Phone:    "+14155550199",
		GitHub:   "https://github.com/jdoe",
		Location: Location{City: "Denver", State: "  "},
	}}

	want := PersonalInfo{
		Name:     "John Doe",
		Email:    "john@x.com",
		Phone:    "+14155550199",
		LinkedIn: "https://linkedin.com/in/johndoe",
		GitHub:   "https://github.com/jdoe",
		Location: Location{City: "Denver", State: "TX"},
	}
	view := Effective(ai, edits)
	if view.PersonalInfo != want {
		t.Fatalf("expected merged personal info %+v, got %+v", want, view.PersonalInfo)
	}
	if ai.PersonalInfo.Phone != "+1 415 555 0100" {
		t.Fatalf("ai data must not be mutated, got %+v", ai.PersonalInfo)
	}
}

func TestEffectiveAIOnlySections(t *testing.T) {
	ai := &AIData{
		Certifications: []Certification{{Name: "CKA"}},
		Projects:       []Project{{Name: "parser"}},
		Languages:      []Language{{Language: "English", Proficiency: "native"}},
	}
	edits := &UserEdits{
		ModifiedExperience: []Experience{{Title: "Engineer", Company: "Acme"}},
		ModifiedEducation:  []Education{{Degree: "BSc", Institution: "MIT"}},
	}

	view := Effective(ai, edits)
	if len(view.Certifications) != 1 || len(view.Projects) != 1 || len(view.Languages) != 1 {
		t.Fatalf("expected ai-only sections to pass through, got %+v", view)
	}
	if len(view.Experience) != 1 || view.Experience[0].Company != "Acme" {
		t.Fatalf("expected edited experience, got %+v", view.Experience)
	}
	if len(view.Education) != 1 || view.Education[0].Institution != "MIT" {
		t.Fatalf("expected edited education, got %+v", view.Education)
	}
}

func TestEffectiveNilAIData(t *testing.T) {
	view := Effective(nil, &UserEdits{ModifiedSkills: []string{"Go"}})
	if !reflect.DeepEqual(view.Skills, []string{"Go"}) {
		t.Fatalf("expected edits without ai data, got %v", view.Skills)
	}
	if len(view.Experience) != 0 {
		t.Fatalf("expected no experience, got %v", view.Experience)
	}
}

func TestUserEditsValidate(t *testing.T) {
	tests := []struct {
		name    string
		edits   UserEdits
		wantErr bool
	}{
		{name: "empty", edits: UserEdits{}},
		{name: "valid", edits: UserEdits{
			ModifiedPersonalInfo: &PersonalInfo{Email: "a@b.co", LinkedIn: "https://linkedin.com/in/a"},
			ModifiedExperience:   []Experience{{Title: "Dev", StartDate: "2020-01-01"}},
		}},
		{name: "relative linkedin", edits: UserEdits{ModifiedPersonalInfo: &PersonalInfo{LinkedIn: "linkedin.com/in/a"}}, wantErr: true},
		{name: "bad email", edits: UserEdits{ModifiedPersonalInfo: &PersonalInfo{Email: "nope"}}, wantErr: true},
		{name: "blank skill", edits: UserEdits{ModifiedSkills: []string{"Go", " "}}, wantErr: true},
		{name: "bad date", edits: UserEdits{ModifiedExperience: []Experience{{Title: "Dev", EndDate: "Jan 2020"}}}, wantErr: true},
		{name: "year range", edits: UserEdits{ModifiedEducation: []Education{{Degree: "BSc", GraduationYear: 99}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edits.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
