package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/nimbusboard/nimbusboard/internal/application"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

const sweepLockName = "login_code_sweep"

// CodeSweepWorker periodically deletes expired login codes. Login codes
// deliberately outlive their first use, so this sweep is what bounds table
// growth. The lock keeps multiple worker replicas from sweeping at once;
// losing the race is not an error, the winner does the work.
type CodeSweepWorker struct {
	logger   *slog.Logger
	service  *application.Service
	lock     ports.SweepLock
	interval time.Duration
}

func NewCodeSweepWorker(
	logger *slog.Logger,
	service *application.Service,
	lock ports.SweepLock,
	interval time.Duration,
) *CodeSweepWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CodeSweepWorker{
		logger:   logger,
		service:  service,
		lock:     lock,
		interval: interval,
	}
}

func (w *CodeSweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *CodeSweepWorker) sweepOnce(ctx context.Context) {
	if w.lock != nil {
		acquired, err := w.lock.TryAcquire(ctx, sweepLockName, w.interval)
		if err != nil || !acquired {
			if err != nil {
				w.logger.WarnContext(ctx, "sweep lock acquire failed",
					"module", "events.code_sweep_worker",
					"layer", "adapter",
					"operation", "sweep_lock_acquire",
					"outcome", "failure",
					"error", err,
				)
			}
			return
		}
		defer func() { _ = w.lock.Release(ctx, sweepLockName) }()
	}

	deleted, err := w.service.SweepExpiredLoginCodes(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "login code sweep failed",
			"module", "events.code_sweep_worker",
			"layer", "adapter",
			"operation", "sweep_expired_login_codes",
			"outcome", "failure",
			"error", err,
		)
		return
	}
	if deleted > 0 {
		w.logger.InfoContext(ctx, "expired login codes swept",
			"module", "events.code_sweep_worker",
			"layer", "adapter",
			"operation", "sweep_expired_login_codes",
			"outcome", "success",
			"deleted_count", deleted,
		)
	}
}
