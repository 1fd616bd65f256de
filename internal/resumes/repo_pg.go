package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

const pgUniqueViolation = "23505"

const resumeColumns = `id, user_id, job_id, storage_key, file_name, file_size, mime_type, file_hash,
       ai_data, user_edits, ats_score, status, ai_extraction_complete, ats_analysis_complete,
       error_message, started_at, completed_at, version, is_active, tags, visibility,
       created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, rec Resume) error {
	const query = `
INSERT INTO resumes (
	id, user_id, job_id, storage_key, file_name, file_size, mime_type, file_hash,
	status, version, is_active, tags, visibility, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	tags, err := json.Marshal(nonNilTags(rec.Tags))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		nullString(rec.JobID),
		rec.OriginalFile.StorageKey,
		rec.OriginalFile.FileName,
		rec.OriginalFile.Size,
		rec.OriginalFile.MimeType,
		rec.OriginalFile.Hash,
		rec.Processing.Status,
		rec.Version,
		rec.IsActive,
		tags,
		rec.Visibility,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		existing, lookupErr := r.FindByHash(ctx, rec.UserID, rec.OriginalFile.Hash)
		if lookupErr != nil {
			return fmt.Errorf("%w: %v", ErrDuplicateResume, lookupErr)
		}
		return &DuplicateError{ExistingID: existing.ID}
	}
	return err
}

// GetByID returns a resume by ID, soft-deleted records included.
func (r *PGRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	query := `
SELECT ` + resumeColumns + `
FROM resumes
WHERE id = $1
LIMIT 1`
	return getOne(ctx, r.DB, query, resumeID)
}

func (r *PGRepo) FindByHash(ctx context.Context, userID, hash string) (Resume, error) {
	query := `
SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1 AND file_hash = $2
LIMIT 1`
	return getOne(ctx, r.DB, query, userID, hash)
}

// List returns active resumes for a user ordered newest-first.
func (r *PGRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error) {
	filter = normalizePage(filter)
	where, args, err := listWhere(userID, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitArg := len(args) + 1
	query := `
SELECT ` + resumeColumns + `
FROM resumes
WHERE ` + where + `
ORDER BY created_at DESC, id DESC
LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(limitArg+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func listWhere(userID string, filter ListFilter) (string, []any, error) {
	clauses := []string{"user_id = $1", "is_active = TRUE"}
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if len(filter.Tags) > 0 {
		payload, err := json.Marshal(filter.Tags)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		clauses = append(clauses, "tags @> $"+strconv.Itoa(len(args))+"::jsonb")
	}
	return strings.Join(clauses, " AND "), args, nil
}

// StartProcessing is a conditional update: it only succeeds when the current
// status is one of from.
func (r *PGRepo) StartProcessing(ctx context.Context, resumeID string, from []string, at time.Time) (Resume, error) {
	if len(from) == 0 {
		return Resume{}, fmt.Errorf("%w: no source status", ErrInvalidTransition)
	}
	args := []any{at, resumeID}
	placeholders := make([]string, 0, len(from))
	for _, status := range from {
		args = append(args, status)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	query := `
UPDATE resumes
SET status = 'processing',
    ai_extraction_complete = FALSE,
    ats_analysis_complete = FALSE,
    error_message = NULL,
    started_at = $1,
    completed_at = NULL,
    updated_at = $1
WHERE id = $2 AND is_active = TRUE AND status IN (` + strings.Join(placeholders, ", ") + `)
RETURNING ` + resumeColumns

	rec, err := getOne(ctx, r.DB, query, args...)
	if errors.Is(err, ErrNotFound) {
		current, lookupErr := r.GetByID(ctx, resumeID)
		if lookupErr != nil {
			return Resume{}, lookupErr
		}
		return Resume{}, fmt.Errorf("%w: %s->%s", ErrInvalidTransition, current.Processing.Status, StatusProcessing)
	}
	return rec, err
}

// SaveExtraction stores the structured extraction of a processing record.
func (r *PGRepo) SaveExtraction(ctx context.Context, resumeID string, ai model.AIData, at time.Time) error {
	const query = `
UPDATE resumes
SET ai_data = $1::jsonb,
    ai_extraction_complete = TRUE,
    updated_at = $2
WHERE id = $3 AND status = 'processing'`
	payload, err := json.Marshal(ai)
	if err != nil {
		return err
	}
	return r.execProcessing(ctx, query, payload, at, resumeID)
}

// Complete moves a processing record to completed with its score.
func (r *PGRepo) Complete(ctx context.Context, resumeID string, score ats.Score, at time.Time) error {
	const query = `
UPDATE resumes
SET ats_score = $1::jsonb,
    ats_analysis_complete = TRUE,
    status = 'completed',
    completed_at = $2,
    updated_at = $2
WHERE id = $3 AND status = 'processing'`
	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return r.execProcessing(ctx, query, payload, at, resumeID)
}

// Fail moves a processing record to failed with the error message.
func (r *PGRepo) Fail(ctx context.Context, resumeID, message string, at time.Time) error {
	const query = `
UPDATE resumes
SET status = 'failed',
    error_message = $1,
    completed_at = $2,
    updated_at = $2
WHERE id = $3 AND status = 'processing'`
	return r.execProcessing(ctx, query, message, at, resumeID)
}

func (r *PGRepo) execProcessing(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: record is not processing", ErrInvalidTransition)
	}
	return nil
}

// UpdateOverlay writes the user-owned fields of an active record.
func (r *PGRepo) UpdateOverlay(ctx context.Context, rec Resume) error {
	const query = `
UPDATE resumes
SET user_edits = $1::jsonb,
    tags = $2::jsonb,
    visibility = $3,
    ats_score = $4::jsonb,
    updated_at = $5
WHERE id = $6 AND is_active = TRUE`
	edits, err := marshalNullableJSONB(rec.UserEdits)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(nonNilTags(rec.Tags))
	if err != nil {
		return err
	}
	score, err := marshalNullableJSONB(rec.ATSScore)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, edits, tags, rec.Visibility, score, rec.UpdatedAt, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SaveScore(ctx context.Context, resumeID string, score ats.Score, at time.Time) error {
	const query = `
UPDATE resumes
SET ats_score = $1::jsonb,
    updated_at = $2
WHERE id = $3 AND is_active = TRUE`
	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, payload, at, resumeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags the record inactive; the row and its hash remain.
func (r *PGRepo) SoftDelete(ctx context.Context, resumeID string, at time.Time) error {
	const query = `
UPDATE resumes
SET is_active = FALSE,
    updated_at = $1
WHERE id = $2 AND is_active = TRUE`
	res, err := r.DB.ExecContext(ctx, query, at, resumeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListStale(ctx context.Context, status string, before time.Time, limit int) ([]Resume, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	query := `
SELECT ` + resumeColumns + `
FROM resumes
WHERE status = $1 AND is_active = TRUE AND COALESCE(started_at, created_at) < $2
ORDER BY created_at ASC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, status, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

func getOne(ctx context.Context, q queryer, query string, args ...any) (Resume, error) {
	rec, err := scanResume(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return rec, nil
}

func scanResume(row rowScanner) (Resume, error) {
	var rec Resume
	var jobID sql.NullString
	var aiData []byte
	var userEdits []byte
	var atsScore []byte
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	var tags []byte
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&jobID,
		&rec.OriginalFile.StorageKey,
		&rec.OriginalFile.FileName,
		&rec.OriginalFile.Size,
		&rec.OriginalFile.MimeType,
		&rec.OriginalFile.Hash,
		&aiData,
		&userEdits,
		&atsScore,
		&rec.Processing.Status,
		&rec.Processing.AIExtractionComplete,
		&rec.Processing.ATSAnalysisComplete,
		&errorMessage,
		&startedAt,
		&completedAt,
		&rec.Version,
		&rec.IsActive,
		&tags,
		&rec.Visibility,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	if jobID.Valid {
		rec.JobID = jobID.String
	}
	if len(aiData) > 0 {
		var ai model.AIData
		if err := json.Unmarshal(aiData, &ai); err != nil {
			return Resume{}, fmt.Errorf("decode ai_data for %s: %w", rec.ID, err)
		}
		rec.AIData = &ai
	}
	if len(userEdits) > 0 {
		var edits model.UserEdits
		if err := json.Unmarshal(userEdits, &edits); err != nil {
			return Resume{}, fmt.Errorf("decode user_edits for %s: %w", rec.ID, err)
		}
		rec.UserEdits = &edits
	}
	if len(atsScore) > 0 {
		var score ats.Score
		if err := json.Unmarshal(atsScore, &score); err != nil {
			return Resume{}, fmt.Errorf("decode ats_score for %s: %w", rec.ID, err)
		}
		rec.ATSScore = &score
	}
	if errorMessage.Valid {
		rec.Processing.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.Processing.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.Processing.CompletedAt = &t
	}
	rec.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return Resume{}, fmt.Errorf("decode tags for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func marshalNullableJSONB[T any](value *T) (any, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
