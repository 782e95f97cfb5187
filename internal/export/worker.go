package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/profileai/internal/storage"
)

// DefaultDelay is how long a simulated export takes.
const DefaultDelay = 1500 * time.Millisecond

// Notification reports the outcome of a request to the user.
type Notification struct {
	JobID    string `json:"jobId"`
	Kind     Kind   `json:"kind"`
	Target   string `json:"target"`
	FileName string `json:"fileName,omitempty"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// Worker processes export and share jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	delay  time.Duration
	poll   time.Duration
	notify func(Notification)
	logger *slog.Logger
}

// NewWorker creates a Worker. A negative delay means DefaultDelay.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, delay, pollInterval time.Duration) *Worker {
	if delay < 0 {
		delay = DefaultDelay
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		delay:  delay,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// OnNotify registers fn to receive every completion or failure notification.
// Must be called before Run.
func (w *Worker) OnNotify(fn func(Notification)) {
	w.notify = fn
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("export worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single export or share job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeExport, JobTypeShare})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	p, err := w.processJob(ctx, job)
	if err != nil {
		w.logger.Warn("export job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
			return true, nil
		}
		if j, getErr := w.store.GetJob(job.ID); getErr == nil && j.Status == storage.JobFailed {
			w.emit(Notification{
				JobID:   job.ID,
				Kind:    p.Kind,
				Target:  p.Target,
				Success: false,
				Message: "Something went wrong: " + err.Error(),
			})
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	n := Notification{
		JobID:   job.ID,
		Kind:    p.Kind,
		Target:  p.Target,
		Success: true,
		Message: successMessage(p),
	}
	if p.Kind == KindExport {
		n.FileName = p.FileName
	}
	w.emit(n)
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &p); err != nil {
		return p, fmt.Errorf("parsing payload: %w", err)
	}
	if _, err := validateTarget(p.Kind, p.Target); err != nil {
		return p, err
	}

	w.logger.Info("processing request", "job_id", job.ID, "kind", p.Kind, "target", p.Target)
	if err := sleep(ctx, w.delay); err != nil {
		return p, fmt.Errorf("interrupted: %w", err)
	}
	return p, nil
}

func (w *Worker) emit(n Notification) {
	level := slog.LevelInfo
	if !n.Success {
		level = slog.LevelWarn
	}
	w.logger.Log(context.Background(), level, n.Message, "job_id", n.JobID, "kind", n.Kind, "target", n.Target)
	if w.notify != nil {
		w.notify(n)
	}
}

func successMessage(p Payload) string {
	switch {
	case p.Kind == KindExport:
		return fmt.Sprintf("Resume downloaded as %s (%s)", strings.ToUpper(p.Target), p.FileName)
	case p.Target == "email":
		return "Resume shared by email"
	default:
		return "Share link generated"
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
