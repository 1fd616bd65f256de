package resumes

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"resume-ats/internal/ats"
	"resume-ats/resume/model"
)

var pgColumns = []string{
	"id", "user_id", "job_id", "storage_key", "file_name", "file_size", "mime_type", "file_hash",
	"ai_data", "user_edits", "ats_score", "status", "ai_extraction_complete", "ats_analysis_complete",
	"error_message", "started_at", "completed_at", "version", "is_active", "tags", "visibility",
	"created_at", "updated_at",
}

func pgRow(id, status string, created time.Time) []driver.Value {
	return []driver.Value{
		id, "user-1", nil, "u/" + id, "cv.pdf", int64(42), "application/pdf", "hash-" + id,
		nil, nil, nil, status, false, false,
		nil, nil, nil, int64(1), true, []byte(`["go"]`), VisibilityPrivate,
		created, created,
	}
}

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rec := memRecord("r1", "user-1", "abc", now)
	rec.JobID = "job-1"

	mock.ExpectExec("INSERT INTO resumes").
		WithArgs(
			rec.ID,
			rec.UserID,
			"job-1",
			rec.OriginalFile.StorageKey,
			rec.OriginalFile.FileName,
			rec.OriginalFile.Size,
			rec.OriginalFile.MimeType,
			rec.OriginalFile.Hash,
			StatusPending,
			1,
			true,
			sqlmock.AnyArg(), // tags
			VisibilityPrivate,
			now,
			now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateUniqueViolationIsDuplicate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rec := memRecord("r2", "user-1", "hash-r1", now)

	mock.ExpectExec("INSERT INTO resumes").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "resumes_user_hash_key"})
	mock.ExpectQuery("FROM resumes\\s+WHERE user_id = \\$1 AND file_hash = \\$2").
		WithArgs("user-1", "hash-r1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(pgRow("r1", StatusCompleted, now)...))

	err := repo.Create(context.Background(), rec)
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dup.ExistingID != "r1" {
		t.Fatalf("expected existing id r1, got %s", dup.ExistingID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesJSONB(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	row := pgRow("r1", StatusCompleted, now)
	row[8] = []byte(`{"personalInfo":{"email":"a@b.co","location":{}},"skills":["Go"]}`)
	row[9] = []byte(`{"modifiedSkills":["Rust"]}`)
	row[10] = []byte(`{"overall":83,"breakdown":{"formatting":95,"keywords":70,"structure":90,"readability":75}}`)
	row[14] = "old failure"

	mock.ExpectQuery("FROM resumes\\s+WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(row...))

	rec, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.AIData == nil || rec.AIData.PersonalInfo.Email != "a@b.co" {
		t.Fatalf("unexpected ai data %+v", rec.AIData)
	}
	if rec.UserEdits == nil || rec.UserEdits.ModifiedSkills[0] != "Rust" {
		t.Fatalf("unexpected user edits %+v", rec.UserEdits)
	}
	if rec.ATSScore == nil || rec.ATSScore.Overall != 83 {
		t.Fatalf("unexpected score %+v", rec.ATSScore)
	}
	if got := rec.Effective().Skills; len(got) != 1 || got[0] != "Rust" {
		t.Fatalf("expected edited skills in effective view, got %v", got)
	}
	if rec.Processing.ErrorMessage != "old failure" {
		t.Fatalf("unexpected error message %q", rec.Processing.ErrorMessage)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "go" {
		t.Fatalf("unexpected tags %v", rec.Tags)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM resumes").WithArgs("nope").WillReturnRows(sqlmock.NewRows(pgColumns))

	if _, err := repo.GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoStartProcessingConditional(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE resumes\\s+SET status = 'processing'").
		WithArgs(now, "r1", StatusPending, StatusFailed).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(pgRow("r1", StatusProcessing, now)...))

	rec, err := repo.StartProcessing(context.Background(), "r1", []string{StatusPending, StatusFailed}, now)
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if rec.Processing.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", rec.Processing.Status)
	}

	mock.ExpectQuery("UPDATE resumes\\s+SET status = 'processing'").
		WithArgs(now, "r1", StatusPending).
		WillReturnRows(sqlmock.NewRows(pgColumns))
	mock.ExpectQuery("FROM resumes\\s+WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(pgRow("r1", StatusCompleted, now)...))

	_, err = repo.StartProcessing(context.Background(), "r1", []string{StatusPending}, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteRequiresProcessing(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE resumes\\s+SET ats_score = \\$1::jsonb,\\s+ats_analysis_complete = TRUE").
		WithArgs(sqlmock.AnyArg(), now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), "r1", ats.Score{Overall: 78}, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	mock.ExpectExec("UPDATE resumes\\s+SET ai_data = \\$1::jsonb").
		WithArgs(sqlmock.AnyArg(), now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SaveExtraction(context.Background(), "r1", model.AIData{}, now); err != nil {
		t.Fatalf("SaveExtraction: %v", err)
	}

	mock.ExpectExec("UPDATE resumes\\s+SET status = 'failed'").
		WithArgs("boom", now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Fail(context.Background(), "r1", "boom", now); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateOverlay(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rec := memRecord("r1", "user-1", "h", now)
	rec.UpdatedAt = now
	rec.UserEdits = &model.UserEdits{ModifiedSkills: []string{"Go"}}

	mock.ExpectExec("UPDATE resumes\\s+SET user_edits = \\$1::jsonb,.*updated_at = \\$5\\s+WHERE id = \\$6 AND is_active = TRUE$").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), VisibilityPrivate, nil, now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateOverlay(context.Background(), rec); err != nil {
		t.Fatalf("UpdateOverlay: %v", err)
	}

	mock.ExpectExec("UPDATE resumes\\s+SET user_edits").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), VisibilityPrivate, nil, now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateOverlay(context.Background(), rec); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive record, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListAppliesFilters(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resumes WHERE user_id = \\$1 AND is_active = TRUE AND status = \\$2 AND tags @> \\$3::jsonb").
		WithArgs("user-1", StatusCompleted, []byte(`["go"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY created_at DESC, id DESC\\s+LIMIT \\$4 OFFSET \\$5").
		WithArgs("user-1", StatusCompleted, []byte(`["go"]`), 2, 1).
		WillReturnRows(sqlmock.NewRows(pgColumns).
			AddRow(pgRow("r3", StatusCompleted, now)...).
			AddRow(pgRow("r2", StatusCompleted, now.Add(-time.Minute))...))

	items, total, err := repo.List(context.Background(), "user-1", ListFilter{Status: StatusCompleted, Tags: []string{"go"}, Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("unexpected total=%d items=%d", total, len(items))
	}
	if items[0].ID != "r3" {
		t.Fatalf("unexpected order %s", items[0].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSoftDeleteNotFound(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec("UPDATE resumes\\s+SET is_active = FALSE").
		WithArgs(now, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SoftDelete(context.Background(), "r1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListStale(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Now().UTC()
	mock.ExpectQuery("COALESCE\\(started_at, created_at\\) < \\$2").
		WithArgs(StatusProcessing, cutoff, 100).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(pgRow("r1", StatusProcessing, cutoff.Add(-time.Hour))...))

	items, err := repo.ListStale(context.Background(), StatusProcessing, cutoff, 0)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(items) != 1 || items[0].ID != "r1" {
		t.Fatalf("unexpected items %+v", items)
	}
}
