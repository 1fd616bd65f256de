package resumes

import (
	"time"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	VisibilityPrivate   = "private"
	VisibilityPublic    = "public"
	VisibilityEmployers = "employers"
)

// OriginalFile describes the uploaded file as staged in object storage.
type OriginalFile struct {
	StorageKey string `json:"storageKey"`
	FileName   string `json:"filename"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mimeType"`
	Hash       string `json:"hash"`
}

// Processing tracks pipeline progress for a resume.
type Processing struct {
	Status               string     `json:"status"`
	AIExtractionComplete bool       `json:"aiExtractionComplete"`
	ATSAnalysisComplete  bool       `json:"atsAnalysisComplete"`
	ErrorMessage         string     `json:"errorMessage,omitempty"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// Resume is the persisted record for one uploaded resume.
type Resume struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	JobID        string           `json:"jobId,omitempty"`
	OriginalFile OriginalFile     `json:"originalFile"`
	AIData       *model.AIData    `json:"aiData,omitempty"`
	UserEdits    *model.UserEdits `json:"userEdits,omitempty"`
	ATSScore     *ats.Score       `json:"atsScore,omitempty"`
	Processing   Processing       `json:"processing"`
	Version      int              `json:"version"`
	IsActive     bool             `json:"isActive"`
	Tags         []string         `json:"tags"`
	Visibility   string           `json:"visibility"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Effective returns the view used for scoring and display.
func (r Resume) Effective() model.View {
	return model.Effective(r.AIData, r.UserEdits)
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Status string
	Tags   []string
	Limit  int
	Offset int
}

func validVisibility(v string) bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityEmployers:
		return true
	}
	return false
}
