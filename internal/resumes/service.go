package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-ats/internal/ats"
	"resume-ats/internal/extract"
	"resume-ats/internal/llm"
	"resume-ats/internal/shared/metrics"
	"resume-ats/internal/shared/storage/object"
	"resume-ats/internal/shared/telemetry"
	"resume-ats/internal/shared/util"
	"resume-ats/resume/model"
)

const (
	DefaultProcessTimeout = 2 * time.Minute

	maxTags      = 20
	maxTagLength = 50
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
}

// Service contains business logic for resumes.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Extractor *llm.Extractor
	// Dispatcher defaults to in-process goroutines when nil.
	Dispatcher     Dispatcher
	ProcessTimeout time.Duration
	Now            func() time.Time

	inflight sync.Map
}

// SubmitInput is a single upload.
type SubmitInput struct {
	UserID     string
	FileName   string
	Body       io.Reader
	JobID      string
	Tags       []string
	Visibility string
}

// EditInput carries the overlay fields a user wants to replace. Nil means
// unchanged; an empty slice clears the edit so the AI value shows again.
type EditInput struct {
	PersonalInfo *model.PersonalInfo
	Skills       *[]string
	Experience   *[]model.Experience
	Education    *[]model.Education
	Tags         *[]string
	Visibility   *string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit stages the upload, rejects byte-identical duplicates for the same
// user and creates a pending record whose processing is dispatched in the
// background.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Resume, *Task, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Resume{}, nil, invalidInput("user id is required")
	}
	if in.Body == nil {
		return Resume{}, nil, invalidInput("file is required")
	}
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Resume{}, nil, invalidInput("%v", err)
	}
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(fileName))]; !ok {
		metrics.IncUpload("rejected")
		return Resume{}, nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFileType, filepath.Ext(fileName))
	}
	visibility := strings.TrimSpace(in.Visibility)
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	if !validVisibility(visibility) {
		return Resume{}, nil, invalidInput("visibility must be private, public or employers")
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return Resume{}, nil, err
	}

	hr := util.NewHashingReader(in.Body)
	storageKey, size, mimeType, err := s.Store.Save(ctx, in.UserID, fileName, hr)
	if err != nil {
		return Resume{}, nil, fmt.Errorf("stage upload: %w", err)
	}
	if size == 0 {
		s.discard(ctx, storageKey)
		return Resume{}, nil, invalidInput("file is empty")
	}
	hash := hr.Sum()

	existing, err := s.Repo.FindByHash(ctx, in.UserID, hash)
	switch {
	case err == nil:
		s.discard(ctx, storageKey)
		metrics.IncUpload("duplicate")
		return Resume{}, nil, &DuplicateError{ExistingID: existing.ID}
	case !errors.Is(err, ErrNotFound):
		s.discard(ctx, storageKey)
		return Resume{}, nil, fmt.Errorf("duplicate check: %w", err)
	}

	now := s.now()
	rec := Resume{
		ID:     uuid.NewString(),
		UserID: in.UserID,
		JobID:  strings.TrimSpace(in.JobID),
		OriginalFile: OriginalFile{
			StorageKey: storageKey,
			FileName:   fileName,
			Size:       size,
			MimeType:   mimeType,
			Hash:       hash,
		},
		Processing: Processing{Status: StatusPending},
		Version:    1,
		IsActive:   true,
		Tags:       tags,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		s.discard(ctx, storageKey)
		var dup *DuplicateError
		if errors.As(err, &dup) {
			metrics.IncUpload("duplicate")
			return Resume{}, nil, err
		}
		return Resume{}, nil, fmt.Errorf("create resume: %w", err)
	}
	metrics.IncUpload("created")
	telemetry.Info("resume.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"user_id":    rec.UserID,
		"resume_id":  rec.ID,
		"status":     StatusPending,
		"size_bytes": size,
		"mime_type":  mimeType,
	})

	task := s.dispatch(backgroundWithRequestID(ctx), rec.ID, false)
	return rec, task, nil
}

func (s *Service) discard(ctx context.Context, storageKey string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), storageKey); err != nil {
		telemetry.Error("resume.discard_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"storage_key": storageKey,
			"err":         err.Error(),
		})
	}
}

func (s *Service) dispatch(ctx context.Context, resumeID string, retry bool) *Task {
	if s.Dispatcher != nil {
		return s.Dispatcher.Dispatch(ctx, resumeID, retry)
	}
	return InProcessDispatcher{Processor: s}.Dispatch(ctx, resumeID, retry)
}

// Process runs the pipeline for a pending record. Records in any other state
// are skipped, which makes redelivered jobs harmless.
func (s *Service) Process(ctx context.Context, resumeID string) error {
	return s.run(ctx, resumeID, []string{StatusPending})
}

// Reprocess is Process that may also restart a failed record.
func (s *Service) Reprocess(ctx context.Context, resumeID string) error {
	return s.run(ctx, resumeID, []string{StatusPending, StatusFailed})
}

// run returns nil when the outcome was recorded on the resume, including
// failures. An error means the record itself could not be read or written.
func (s *Service) run(ctx context.Context, resumeID string, from []string) error {
	if _, loaded := s.inflight.LoadOrStore(resumeID, struct{}{}); loaded {
		return nil
	}
	defer s.inflight.Delete(resumeID)

	before, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("resume lookup id=%s: %w", resumeID, err)
	}
	startedAt := s.now()
	rec, err := s.Repo.StartProcessing(ctx, resumeID, from, startedAt)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			telemetry.Info("resume.process_skipped", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"resume_id":  resumeID,
				"status":     before.Processing.Status,
			})
			return nil
		}
		return fmt.Errorf("start processing id=%s: %w", resumeID, err)
	}
	metrics.IncProcessingStarted()
	telemetry.Info("resume.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           rec.UserID,
		"resume_id":         rec.ID,
		"status":            StatusProcessing,
		"status_transition": transitionLabel(before.Processing.Status, StatusProcessing),
	})

	timeout := s.ProcessTimeout
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.execute(runCtx, rec, startedAt); err != nil {
		return s.fail(ctx, rec, err, startedAt)
	}
	return nil
}

func (s *Service) execute(ctx context.Context, rec Resume, startedAt time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	file := rec.OriginalFile
	text, err := extract.ExtractText(ctx, s.Store, file.StorageKey, file.MimeType, file.FileName)
	if err != nil {
		return fmt.Errorf("text extraction: %w", err)
	}
	result, err := s.Extractor.Extract(ctx, text)
	if err != nil {
		return fmt.Errorf("structured extraction: %w", err)
	}
	ai := result.ToAIData()
	if err := s.Repo.SaveExtraction(ctx, rec.ID, ai, s.now()); err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}

	// Edits may have landed while the model was running.
	current, err := s.Repo.GetByID(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("reload resume: %w", err)
	}
	completedAt := s.now()
	score := ats.Evaluate(model.Effective(&ai, current.UserEdits), completedAt)
	if err := s.Repo.Complete(ctx, rec.ID, score, completedAt); err != nil {
		return fmt.Errorf("complete resume: %w", err)
	}

	metrics.IncProcessingCompleted()
	metrics.ObserveProcessingDuration(completedAt.Sub(startedAt))
	metrics.ObserveATSOverall(score.Overall)
	telemetry.Info("resume.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           rec.UserID,
		"resume_id":         rec.ID,
		"status":            StatusCompleted,
		"status_transition": transitionLabel(StatusProcessing, StatusCompleted),
		"duration_ms":       durationMs(startedAt, completedAt),
		"ats_overall":       score.Overall,
		"provider":          s.Extractor.ProviderName(),
	})
	return nil
}

func (s *Service) fail(ctx context.Context, rec Resume, cause error, startedAt time.Time) error {
	msg := sanitizeError(cause)
	completedAt := s.now()
	if err := s.Repo.Fail(context.WithoutCancel(ctx), rec.ID, msg, completedAt); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Someone else already settled the record, e.g. the stuck sweeper.
			return nil
		}
		telemetry.Error("resume.fail_update_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"resume_id":  rec.ID,
			"err":        err.Error(),
			"cause":      msg,
		})
		return fmt.Errorf("record failure id=%s: %w", rec.ID, err)
	}
	metrics.IncProcessingFailed()
	metrics.ObserveProcessingDuration(completedAt.Sub(startedAt))
	telemetry.Info("resume.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           rec.UserID,
		"resume_id":         rec.ID,
		"status":            StatusFailed,
		"status_transition": transitionLabel(StatusProcessing, StatusFailed),
		"duration_ms":       durationMs(startedAt, completedAt),
		"error":             msg,
	})
	return nil
}

func (s *Service) isInflight(resumeID string) bool {
	_, ok := s.inflight.Load(resumeID)
	return ok
}

// Retrigger re-dispatches a pending or failed record. A record that is
// already processing is left alone; a completed one cannot be retriggered.
func (s *Service) Retrigger(ctx context.Context, resumeID, userID string) (Resume, *Task, error) {
	rec, err := s.owned(ctx, resumeID, userID)
	if err != nil {
		return Resume{}, nil, err
	}
	switch rec.Processing.Status {
	case StatusProcessing:
		return rec, finishedTask(nil), nil
	case StatusCompleted:
		return Resume{}, nil, checkTransition(StatusCompleted, StatusProcessing)
	}
	task := s.dispatch(backgroundWithRequestID(ctx), rec.ID, true)
	return rec, task, nil
}

// ApplyEdits merges user overlay fields and rescores the effective view.
func (s *Service) ApplyEdits(ctx context.Context, resumeID, userID string, in EditInput) (Resume, error) {
	rec, err := s.owned(ctx, resumeID, userID)
	if err != nil {
		return Resume{}, err
	}

	edits := model.UserEdits{}
	if rec.UserEdits != nil {
		edits = *rec.UserEdits
	}
	overlayChanged := false
	if in.PersonalInfo != nil {
		info := *in.PersonalInfo
		edits.ModifiedPersonalInfo = &info
		overlayChanged = true
	}
	if in.Skills != nil {
		edits.ModifiedSkills = cleanSkills(*in.Skills)
		overlayChanged = true
	}
	if in.Experience != nil {
		exp := make([]model.Experience, len(*in.Experience))
		copy(exp, *in.Experience)
		for i := range exp {
			exp[i].IsUserModified = true
		}
		edits.ModifiedExperience = exp
		overlayChanged = true
	}
	if in.Education != nil {
		edu := make([]model.Education, len(*in.Education))
		copy(edu, *in.Education)
		edits.ModifiedEducation = edu
		overlayChanged = true
	}
	if !overlayChanged && in.Tags == nil && in.Visibility == nil {
		return Resume{}, invalidInput("no changes supplied")
	}
	if err := edits.Validate(); err != nil {
		return Resume{}, invalidInput("%v", err)
	}
	if in.Tags != nil {
		tags, err := normalizeTags(*in.Tags)
		if err != nil {
			return Resume{}, err
		}
		rec.Tags = tags
	}
	if in.Visibility != nil {
		v := strings.TrimSpace(*in.Visibility)
		if !validVisibility(v) {
			return Resume{}, invalidInput("visibility must be private, public or employers")
		}
		rec.Visibility = v
	}

	now := s.now()
	if overlayChanged {
		edits.LastModifiedAt = &now
		rec.UserEdits = &edits
		score := ats.Evaluate(model.Effective(rec.AIData, rec.UserEdits), now)
		rec.ATSScore = &score
		metrics.ObserveATSOverall(score.Overall)
	}
	rec.UpdatedAt = now
	if err := s.Repo.UpdateOverlay(ctx, rec); err != nil {
		return Resume{}, fmt.Errorf("save edits: %w", err)
	}
	telemetry.Info("resume.edited", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"user_id":    userID,
		"resume_id":  rec.ID,
	})
	return rec, nil
}

// SoftDelete hides a resume from its owner. The stored file and hash stay.
func (s *Service) SoftDelete(ctx context.Context, resumeID, userID string) error {
	rec, err := s.owned(ctx, resumeID, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, rec.ID, s.now()); err != nil {
		return err
	}
	telemetry.Info("resume.deleted", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"user_id":    userID,
		"resume_id":  rec.ID,
	})
	return nil
}

// Get returns an active resume owned by userID.
func (s *Service) Get(ctx context.Context, resumeID, userID string) (Resume, error) {
	return s.owned(ctx, resumeID, userID)
}

// List returns the user's active resumes newest first and the total count.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error) {
	if filter.Status != "" {
		switch filter.Status {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		default:
			return nil, 0, invalidInput("unknown status %q", filter.Status)
		}
	}
	tags, err := normalizeTags(filter.Tags)
	if err != nil {
		return nil, 0, err
	}
	filter.Tags = tags
	return s.Repo.List(ctx, userID, normalizePage(filter))
}

// RecalculateScore rescores the effective view and stores the result.
func (s *Service) RecalculateScore(ctx context.Context, resumeID, userID string) (ats.Score, error) {
	rec, err := s.owned(ctx, resumeID, userID)
	if err != nil {
		return ats.Score{}, err
	}
	now := s.now()
	score := ats.Evaluate(rec.Effective(), now)
	if err := s.Repo.SaveScore(ctx, rec.ID, score, now); err != nil {
		return ats.Score{}, fmt.Errorf("save score: %w", err)
	}
	metrics.ObserveATSOverall(score.Overall)
	return score, nil
}

// Open returns the original upload for download. Callers close the reader.
func (s *Service) Open(ctx context.Context, resumeID, userID string) (io.ReadCloser, OriginalFile, error) {
	rec, err := s.owned(ctx, resumeID, userID)
	if err != nil {
		return nil, OriginalFile{}, err
	}
	body, err := s.Store.Open(ctx, rec.OriginalFile.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, OriginalFile{}, fmt.Errorf("%w: stored file missing", ErrNotFound)
		}
		return nil, OriginalFile{}, fmt.Errorf("open stored file: %w", err)
	}
	return body, rec.OriginalFile, nil
}

// owned hides other users' and soft-deleted records behind ErrNotFound.
func (s *Service) owned(ctx context.Context, resumeID, userID string) (Resume, error) {
	if strings.TrimSpace(resumeID) == "" || strings.TrimSpace(userID) == "" {
		return Resume{}, ErrNotFound
	}
	rec, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return Resume{}, err
	}
	if rec.UserID != userID || !rec.IsActive {
		return Resume{}, ErrNotFound
	}
	return rec, nil
}

func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, invalidInput("tag %q is longer than %d characters", tag, maxTagLength)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, invalidInput("at most %d tags are allowed", maxTags)
	}
	return out, nil
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, skill := range in {
		out = append(out, strings.TrimSpace(skill))
	}
	return out
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = strings.ToValidUTF8(msg[:maxLen], "")
	}
	return msg
}
