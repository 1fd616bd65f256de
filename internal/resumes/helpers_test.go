package resumes

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resume-ats/internal/ats"
	"resume-ats/internal/llm"
	"resume-ats/internal/shared/storage/object/local"
)

const annResponse = `{
  "personal_info": {"name": "Ann Lee", "email": "ann@example.com", "phone": "+14155550100"},
  "technical_skills": ["Go", "SQL"],
  "soft_skills": ["Mentoring"],
  "work_experience": [{"title": "Engineer", "company": "Acme", "start_date": "2020-01-01", "end_date": "present"}],
  "education": [],
  "total_experience_years": 4
}`

type stubProvider struct {
	mu       sync.Mutex
	out      string
	err      error
	panicMsg string
	block    chan struct{}
	calls    atomic.Int32
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.out, p.err
}

func (p *stubProvider) set(out string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out, p.err = out, err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

type dispatchCall struct {
	ResumeID string
	Retry    bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, resumeID string, retry bool) *Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{ResumeID: resumeID, Retry: retry})
	return finishedTask(nil)
}

func (d *recordingDispatcher) Calls() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

func newTestService(t *testing.T, provider llm.Provider) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := &Service{
		Repo:      repo,
		Store:     local.New(t.TempDir()),
		Extractor: llm.NewExtractor(provider),
	}
	return svc, repo
}

func submit(t *testing.T, svc *Service, userID, name string, data []byte) (Resume, *Task) {
	t.Helper()
	rec, task, err := svc.Submit(context.Background(), SubmitInput{
		UserID:   userID,
		FileName: name,
		Body:     bytes.NewReader(data),
	})
	require.NoError(t, err)
	return rec, task
}

func waitTask(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

// transitionRepo records every status a record is written with.
type transitionRepo struct {
	*MemoryRepo
	mu       sync.Mutex
	statuses map[string][]string
}

func newTransitionRepo() *transitionRepo {
	return &transitionRepo{MemoryRepo: NewMemoryRepo(), statuses: make(map[string][]string)}
}

func (r *transitionRepo) record(resumeID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[resumeID] = append(r.statuses[resumeID], status)
}

func (r *transitionRepo) Statuses(resumeID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses[resumeID]...)
}

func (r *transitionRepo) Create(ctx context.Context, rec Resume) error {
	if err := r.MemoryRepo.Create(ctx, rec); err != nil {
		return err
	}
	r.record(rec.ID, rec.Processing.Status)
	return nil
}

func (r *transitionRepo) StartProcessing(ctx context.Context, resumeID string, from []string, at time.Time) (Resume, error) {
	rec, err := r.MemoryRepo.StartProcessing(ctx, resumeID, from, at)
	if err == nil {
		r.record(resumeID, rec.Processing.Status)
	}
	return rec, err
}

func (r *transitionRepo) Complete(ctx context.Context, resumeID string, score ats.Score, at time.Time) error {
	if err := r.MemoryRepo.Complete(ctx, resumeID, score, at); err != nil {
		return err
	}
	r.record(resumeID, StatusCompleted)
	return nil
}

func (r *transitionRepo) Fail(ctx context.Context, resumeID, message string, at time.Time) error {
	if err := r.MemoryRepo.Fail(ctx, resumeID, message, at); err != nil {
		return err
	}
	r.record(resumeID, StatusFailed)
	return nil
}

// overlayHookRepo runs beforeWrite once, ahead of the first overlay write.
type overlayHookRepo struct {
	*MemoryRepo
	beforeWrite func()
}

func (r *overlayHookRepo) UpdateOverlay(ctx context.Context, rec Resume) error {
	if hook := r.beforeWrite; hook != nil {
		r.beforeWrite = nil
		hook()
	}
	return r.MemoryRepo.UpdateOverlay(ctx, rec)
}
