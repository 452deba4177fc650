// Package worker runs data backups on a fixed interval, retrying failed runs
// with exponential backoff.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/perfeval/internal/backup"
)

// Backuper is satisfied by *backup.Runner.
type Backuper interface {
	Run(ctx context.Context) (backup.Result, error)
}

type Config struct {
	Interval   time.Duration
	RunOnStart bool
}

type Worker struct {
	cfg Config
	job Backuper
	log *slog.Logger

	mu       sync.RWMutex
	ready    bool
	failures int
	last     backup.Result

	backoff func(attempt int) time.Duration
}

func New(cfg Config, job Backuper, log *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:     cfg,
		job:     job,
		log:     log.With("component", "backup_worker"),
		backoff: ExponentialBackoff,
	}
}

// Run blocks until ctx is cancelled. A failed backup is retried after a
// backoff delay instead of waiting for the next interval.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	next := w.cfg.Interval
	if w.cfg.RunOnStart {
		next = 0
	}

	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-timer.C:
			if err := w.ProcessOne(ctx); err != nil {
				timer.Reset(w.retryDelay())
				continue
			}
			timer.Reset(w.cfg.Interval)
		}
	}
}

// ProcessOne runs a single backup and records the outcome.
func (w *Worker) ProcessOne(ctx context.Context) error {
	start := time.Now()

	res, err := w.job.Run(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.failures++
		w.log.ErrorContext(ctx, "backup failed", "attempt", w.failures, "err", err)
		return err
	}

	w.failures = 0
	w.last = res
	w.log.InfoContext(ctx, "backup completed",
		"dir", res.Dir, "files", len(res.Files), "uploaded", res.Uploaded,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) retryDelay() time.Duration {
	w.mu.RLock()
	attempt := w.failures - 1
	w.mu.RUnlock()

	d := w.backoff(attempt)
	if d > w.cfg.Interval {
		d = w.cfg.Interval
	}
	return d
}

// Last returns the result of the most recent successful backup.
func (w *Worker) Last() backup.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *Worker) Ready() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

func (w *Worker) setReady(v bool) {
	w.mu.Lock()
	w.ready = v
	w.mu.Unlock()
}
