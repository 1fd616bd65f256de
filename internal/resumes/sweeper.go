package resumes

import (
	"context"
	"fmt"
	"time"

	"resume-ats/internal/shared/metrics"
	"resume-ats/internal/shared/telemetry"
)

const (
	DefaultStuckAfter    = 10 * time.Minute
	DefaultSweepInterval = time.Minute

	sweepPageSize = 100
)

// Sweeper settles records that were abandoned mid-pipeline, for example by a
// crashed worker. Processing records past StuckAfter are failed; pending
// records that never started are dispatched again.
type Sweeper struct {
	service    *Service
	stuckAfter time.Duration
	interval   time.Duration
}

// NewSweeper returns nil when there is no service to sweep.
func NewSweeper(service *Service, stuckAfter, interval time.Duration) *Sweeper {
	if service == nil || service.Repo == nil {
		return nil
	}
	if stuckAfter <= 0 {
		stuckAfter = DefaultStuckAfter
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{service: service, stuckAfter: stuckAfter, interval: interval}
}

// Run sweeps once immediately, then every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			telemetry.Info("resume.sweeper_stopped", nil)
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass and reports how many records it failed and
// re-dispatched.
func (s *Sweeper) SweepOnce(ctx context.Context) (failed, redispatched int) {
	now := s.service.now()
	cutoff := now.Add(-s.stuckAfter)

	stuck, err := s.service.Repo.ListStale(ctx, StatusProcessing, cutoff, sweepPageSize)
	if err != nil {
		telemetry.Error("resume.sweep_failed", map[string]any{"status": StatusProcessing, "err": err.Error()})
	}
	msg := fmt.Sprintf("processing exceeded %v; marked failed by sweeper", s.stuckAfter)
	for _, rec := range stuck {
		if s.service.isInflight(rec.ID) {
			continue
		}
		if err := s.service.Repo.Fail(ctx, rec.ID, msg, now); err != nil {
			telemetry.Error("resume.sweep_fail_update", map[string]any{"resume_id": rec.ID, "err": err.Error()})
			continue
		}
		failed++
		metrics.IncProcessingFailed()
		telemetry.Info("resume.status", map[string]any{
			"user_id":           rec.UserID,
			"resume_id":         rec.ID,
			"status":            StatusFailed,
			"status_transition": transitionLabel(StatusProcessing, StatusFailed),
			"error":             msg,
		})
	}

	pending, err := s.service.Repo.ListStale(ctx, StatusPending, cutoff, sweepPageSize)
	if err != nil {
		telemetry.Error("resume.sweep_failed", map[string]any{"status": StatusPending, "err": err.Error()})
	}
	for _, rec := range pending {
		if s.service.isInflight(rec.ID) {
			continue
		}
		s.service.dispatch(context.Background(), rec.ID, false)
		redispatched++
	}

	if failed > 0 || redispatched > 0 {
		telemetry.Info("resume.sweep", map[string]any{
			"failed":       failed,
			"redispatched": redispatched,
		})
	}
	return failed, redispatched
}
