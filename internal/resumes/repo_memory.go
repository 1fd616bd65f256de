package resumes

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

// MemoryRepo stores resumes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Resume
	byHash map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Resume),
		byHash: make(map[string]string),
	}
}

func hashKey(userID, hash string) string {
	return userID + "\x00" + hash
}

// Create stores the resume unless the user already has one with that hash.
func (r *MemoryRepo) Create(ctx context.Context, rec Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := hashKey(rec.UserID, rec.OriginalFile.Hash)
	if existing, ok := r.byHash[key]; ok {
		return &DuplicateError{ExistingID: existing}
	}
	if _, ok := r.byID[rec.ID]; ok {
		return fmt.Errorf("resume %s already exists", rec.ID)
	}
	r.byID[rec.ID] = clone(rec)
	r.byHash[key] = rec.ID
	return nil
}

// GetByID returns a resume by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return clone(rec), nil
}

func (r *MemoryRepo) FindByHash(ctx context.Context, userID, hash string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHash[hashKey(userID, hash)]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

// List returns active resumes for the user newest first, plus the total
// number of matches before paging.
func (r *MemoryRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	filter = normalizePage(filter)
	r.mu.RLock()
	matches := make([]Resume, 0)
	for _, rec := range r.byID {
		if rec.UserID != userID || !rec.IsActive {
			continue
		}
		if filter.Status != "" && rec.Processing.Status != filter.Status {
			continue
		}
		if !hasAllTags(rec.Tags, filter.Tags) {
			continue
		}
		matches = append(matches, clone(rec))
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := len(matches)
	if filter.Offset >= total {
		return []Resume{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matches[filter.Offset:end], total, nil
}

func (r *MemoryRepo) StartProcessing(ctx context.Context, resumeID string, from []string, at time.Time) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	if !rec.IsActive || !slices.Contains(from, rec.Processing.Status) {
		return Resume{}, fmt.Errorf("%w: %s->%s", ErrInvalidTransition, rec.Processing.Status, StatusProcessing)
	}
	started := at.UTC()
	rec.Processing = Processing{Status: StatusProcessing, StartedAt: &started}
	rec.UpdatedAt = started
	r.byID[resumeID] = rec
	return clone(rec), nil
}

func (r *MemoryRepo) SaveExtraction(ctx context.Context, resumeID string, ai model.AIData, at time.Time) error {
	return r.updateProcessing(ctx, resumeID, func(rec *Resume) {
		rec.AIData = &ai
		rec.Processing.AIExtractionComplete = true
		rec.UpdatedAt = at.UTC()
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, resumeID string, score ats.Score, at time.Time) error {
	return r.updateProcessing(ctx, resumeID, func(rec *Resume) {
		completed := at.UTC()
		rec.ATSScore = &score
		rec.Processing.Status = StatusCompleted
		rec.Processing.ATSAnalysisComplete = true
		rec.Processing.CompletedAt = &completed
		rec.UpdatedAt = completed
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, resumeID, message string, at time.Time) error {
	return r.updateProcessing(ctx, resumeID, func(rec *Resume) {
		completed := at.UTC()
		rec.Processing.Status = StatusFailed
		rec.Processing.ErrorMessage = message
		rec.Processing.CompletedAt = &completed
		rec.UpdatedAt = completed
	})
}

// updateProcessing applies fn only while the record is processing.
func (r *MemoryRepo) updateProcessing(ctx context.Context, resumeID string, fn func(*Resume)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[resumeID]
	if !ok {
		return ErrNotFound
	}
	if rec.Processing.Status != StatusProcessing {
		return fmt.Errorf("%w: record is %s", ErrInvalidTransition, rec.Processing.Status)
	}
	fn(&rec)
	r.byID[resumeID] = rec
	return nil
}

func (r *MemoryRepo) UpdateOverlay(ctx context.Context, rec Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[rec.ID]
	if !ok || !stored.IsActive {
		return ErrNotFound
	}
	stored.UserEdits = rec.UserEdits
	stored.Tags = rec.Tags
	stored.Visibility = rec.Visibility
	stored.ATSScore = rec.ATSScore
	stored.UpdatedAt = rec.UpdatedAt
	r.byID[rec.ID] = clone(stored)
	return nil
}

func (r *MemoryRepo) SaveScore(ctx context.Context, resumeID string, score ats.Score, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[resumeID]
	if !ok || !rec.IsActive {
		return ErrNotFound
	}
	rec.ATSScore = &score
	rec.UpdatedAt = at.UTC()
	r.byID[resumeID] = rec
	return nil
}

// SoftDelete hides the record but keeps it, and its hash, for duplicate checks.
func (r *MemoryRepo) SoftDelete(ctx context.Context, resumeID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[resumeID]
	if !ok || !rec.IsActive {
		return ErrNotFound
	}
	rec.IsActive = false
	rec.UpdatedAt = at.UTC()
	r.byID[resumeID] = rec
	return nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, status string, before time.Time, limit int) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resume, 0)
	for _, rec := range r.byID {
		if !rec.IsActive || rec.Processing.Status != status {
			continue
		}
		since := rec.CreatedAt
		if rec.Processing.StartedAt != nil {
			since = *rec.Processing.StartedAt
		}
		if since.Before(before) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// clone copies the slices callers are likely to mutate.
func clone(rec Resume) Resume {
	rec.Tags = slices.Clone(rec.Tags)
	if rec.UserEdits != nil {
		edits := *rec.UserEdits
		rec.UserEdits = &edits
	}
	if rec.AIData != nil {
		ai := *rec.AIData
		rec.AIData = &ai
	}
	if rec.ATSScore != nil {
		score := *rec.ATSScore
		rec.ATSScore = &score
	}
	return rec
}

var _ Repo = (*MemoryRepo)(nil)
