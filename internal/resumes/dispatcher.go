package resumes

import (
	"context"
	"time"

	"resume-ats/internal/queue"
	"resume-ats/internal/shared/telemetry"
)

// Processor runs the pipeline for one record. Process only starts pending
// records; Reprocess also restarts failed ones.
type Processor interface {
	Process(ctx context.Context, resumeID string) error
	Reprocess(ctx context.Context, resumeID string) error
}

// Dispatcher schedules processing of a record outside the caller's request.
type Dispatcher interface {
	Dispatch(ctx context.Context, resumeID string, retry bool) *Task
}

// InProcessDispatcher runs every record in its own goroutine.
type InProcessDispatcher struct {
	Processor Processor
}

func (d InProcessDispatcher) Dispatch(ctx context.Context, resumeID string, retry bool) *Task {
	task := newTask()
	go func() {
		var err error
		if retry {
			err = d.Processor.Reprocess(ctx, resumeID)
		} else {
			err = d.Processor.Process(ctx, resumeID)
		}
		if err != nil {
			telemetry.Error("resume.process_error", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"resume_id":  resumeID,
				"err":        err.Error(),
			})
		}
		task.finish(err)
	}()
	return task
}

// QueueDispatcher publishes a job message; a worker process picks it up.
// The returned task completes as soon as the message is sent.
type QueueDispatcher struct {
	Queue queue.Client
	Now   func() time.Time
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, resumeID string, retry bool) *Task {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	msg := queue.Message{
		ResumeID:   resumeID,
		Retry:      retry,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	err := d.Queue.Send(ctx, msg)
	if err != nil {
		telemetry.Error("resume.enqueue_failed", map[string]any{
			"request_id": msg.RequestID,
			"resume_id":  resumeID,
			"err":        err.Error(),
		})
	} else {
		telemetry.Info("resume.enqueued", map[string]any{
			"request_id": msg.RequestID,
			"resume_id":  resumeID,
			"retry":      retry,
		})
	}
	return finishedTask(err)
}
