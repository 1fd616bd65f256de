package resumes

import (
	"context"
	"time"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

// Repo defines persistence operations for resumes. Status changes are
// conditional on the current status, so concurrent callers cannot both win.
type Repo interface {
	// Create inserts a record. A second record with the same user and file
	// hash yields *DuplicateError.
	Create(ctx context.Context, r Resume) error
	GetByID(ctx context.Context, resumeID string) (Resume, error)
	// FindByHash looks at every record of the user, soft-deleted included.
	FindByHash(ctx context.Context, userID, hash string) (Resume, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error)

	// StartProcessing moves an active record whose status is one of from into
	// processing and returns the updated record.
	StartProcessing(ctx context.Context, resumeID string, from []string, at time.Time) (Resume, error)
	SaveExtraction(ctx context.Context, resumeID string, ai model.AIData, at time.Time) error
	Complete(ctx context.Context, resumeID string, score ats.Score, at time.Time) error
	Fail(ctx context.Context, resumeID, message string, at time.Time) error

	// UpdateOverlay persists edits, tags, visibility and score of an active
	// record. The last writer wins.
	UpdateOverlay(ctx context.Context, r Resume) error
	SaveScore(ctx context.Context, resumeID string, score ats.Score, at time.Time) error
	SoftDelete(ctx context.Context, resumeID string, at time.Time) error

	// ListStale returns active records in status whose processing start (or
	// creation, when never started) is before the cutoff.
	ListStale(ctx context.Context, status string, before time.Time, limit int) ([]Resume, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func normalizePage(filter ListFilter) ListFilter {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
