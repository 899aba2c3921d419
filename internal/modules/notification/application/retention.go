package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/saransh1220/talentbook/internal/shared/logging"
)

const DefaultRetentionInterval = 24 * time.Hour

var ErrSweepInProgress = errors.New("retention sweep already in progress")

// Purger deletes notifications older than a number of days.
type Purger interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// RetentionRunner owns the periodic retention schedule. At most one sweep runs at a time.
type RetentionRunner struct {
	purger   Purger
	days     int
	interval time.Duration
	log      logging.Logger
	mu       sync.Mutex
}

func NewRetentionRunner(purger Purger, days int, interval time.Duration, log logging.Logger) *RetentionRunner {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}
	return &RetentionRunner{
		purger:   purger,
		days:     days,
		interval: interval,
		log:      logging.OrDefault(log).With("component", "notification.retention"),
	}
}

// Sweep runs one retention pass, or returns ErrSweepInProgress if another is running.
func (r *RetentionRunner) Sweep(ctx context.Context) (int64, error) {
	if !r.mu.TryLock() {
		retentionSweeps.WithLabelValues("skipped").Inc()
		return 0, ErrSweepInProgress
	}
	defer r.mu.Unlock()

	start := time.Now()
	deleted, err := r.purger.DeleteOlderThan(ctx, r.days)
	if err != nil {
		retentionSweeps.WithLabelValues("error").Inc()
		r.log.Error("retention sweep failed", "days", r.days, "error", err)
		return 0, err
	}
	retentionSweeps.WithLabelValues("ok").Inc()
	retentionDeleted.Add(float64(deleted))
	r.log.Info("retention sweep finished", "days", r.days, "deleted", deleted, "took", time.Since(start).String())
	return deleted, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *RetentionRunner) Run(ctx context.Context) error {
	r.log.Info("retention runner started", "days", r.days, "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		// failures are logged by Sweep; the next tick retries
		_, _ = r.Sweep(ctx)

		select {
		case <-ctx.Done():
			r.log.Info("retention runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
