package cleanup

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/logger"
)

const (
	defaultInterval  = time.Hour
	defaultRetention = 30 * 24 * time.Hour
)

type tokenDeleter interface {
	DeleteExpired(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// Job deletes refresh tokens that expired longer than the retention window
// ago. Recently expired tokens are kept around so a rotation race or an
// investigation can still see them.
type Job struct {
	interval  time.Duration
	retention time.Duration

	refreshRepo tokenDeleter
	now         func() time.Time
	logger      logger.Logger
}

func New(refreshRepo tokenDeleter, logger logger.Logger) *Job {
	return &Job{
		interval:    defaultInterval,
		retention:   defaultRetention,
		refreshRepo: refreshRepo,
		now:         time.Now,
		logger:      logger,
	}
}

// Run fires RunOnce on every tick until the context is done. The returned
// channel closes after the loop has stopped.
func (j *Job) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	j.logger.Debug("Starting token cleanup", "interval", j.interval, "retention", j.retention)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Debug("Token cleanup stopped by context")
				return

			case <-ticker.C:
				if err := j.RunOnce(ctx); err != nil {
					j.logger.Error("Token cleanup failed", "error", err)
				}
			}
		}
	}()

	return idleStopped
}

func (j *Job) RunOnce(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	deleted, err := j.refreshRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	if deleted > 0 {
		j.logger.Info("Expired refresh tokens deleted", "count", deleted, "cutoff", cutoff)
	}
	return nil
}
