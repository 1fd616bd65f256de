package resumes

import (
	"time"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

type uploadResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	FileName   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type resumeResponse struct {
	Resume
	FinalData model.View `json:"finalData"`
}

type resumeSummary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"filename"`
	Status     string    `json:"status"`
	ATSOverall *int      `json:"atsOverall,omitempty"`
	Tags       []string  `json:"tags"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type listResponse struct {
	Items  []resumeSummary `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type processResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type scoreResponse struct {
	ID       string    `json:"id"`
	ATSScore ats.Score `json:"atsScore"`
}

type editRequest struct {
	UserEdits  *userEditsRequest `json:"userEdits"`
	Tags       *[]string         `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	Visibility *string           `json:"visibility" binding:"omitempty,oneof=private public employers"`
}

type userEditsRequest struct {
	ModifiedPersonalInfo *model.PersonalInfo `json:"modifiedPersonalInfo"`
	ModifiedSkills       *[]string           `json:"modifiedSkills" binding:"omitempty,max=200,dive,max=100"`
	ModifiedExperience   *[]model.Experience `json:"modifiedExperience" binding:"omitempty,max=50"`
	ModifiedEducation    *[]model.Education  `json:"modifiedEducation" binding:"omitempty,max=20"`
}

func (r editRequest) toInput() EditInput {
	in := EditInput{Tags: r.Tags, Visibility: r.Visibility}
	if r.UserEdits != nil {
		in.PersonalInfo = r.UserEdits.ModifiedPersonalInfo
		in.Skills = r.UserEdits.ModifiedSkills
		in.Experience = r.UserEdits.ModifiedExperience
		in.Education = r.UserEdits.ModifiedEducation
	}
	return in
}

// editedFields names the overlay sections a request touches, for debouncing.
func (r editRequest) editedFields() []string {
	fields := make([]string, 0, 4)
	if r.UserEdits == nil {
		return fields
	}
	if r.UserEdits.ModifiedPersonalInfo != nil {
		fields = append(fields, "personalInfo")
	}
	if r.UserEdits.ModifiedSkills != nil {
		fields = append(fields, "skills")
	}
	if r.UserEdits.ModifiedExperience != nil {
		fields = append(fields, "experience")
	}
	if r.UserEdits.ModifiedEducation != nil {
		fields = append(fields, "education")
	}
	return fields
}

func toResponse(r Resume) resumeResponse {
	return resumeResponse{Resume: r, FinalData: r.Effective()}
}

func toSummary(r Resume) resumeSummary {
	s := resumeSummary{
		ID:         r.ID,
		FileName:   r.OriginalFile.FileName,
		Status:     r.Processing.Status,
		Tags:       r.Tags,
		Visibility: r.Visibility,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if r.ATSScore != nil {
		overall := r.ATSScore.Overall
		s.ATSOverall = &overall
	}
	return s
}
