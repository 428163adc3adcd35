package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// OutboxWorker drains durable outbox rows into the event publisher.
// Rows are claimed with a per-iteration token so concurrent workers never
// double-publish; a row that keeps failing is parked in the dead-letter
// state once it exhausts its retries.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run drains on a fixed interval until the context ends.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox drain failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_drain",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type deliveryOutcome int

const (
	deliveredOK deliveryOutcome = iota
	deliveryRetried
	deliveryDead
)

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	token := uuid.NewString()
	now := time.Now().UTC()
	batch, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, token, now.Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	var published, retried, dead int
	for _, rec := range batch {
		switch w.deliver(ctx, rec, token, now) {
		case deliveredOK:
			published++
		case deliveryRetried:
			retried++
		case deliveryDead:
			dead++
		}
	}

	w.logger.InfoContext(ctx, "outbox batch drained",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "outbox_drain",
		"outcome", "success",
		"claimed", len(batch),
		"published", published,
		"retried", retried,
		"dead_lettered", dead,
	)
	return nil
}

// deliver publishes one claimed row and records its new state. A row can
// sit at the retry ceiling without ever being published (claims expiring
// under a crashing publisher); those are parked without another attempt.
func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, token string, now time.Time) deliveryOutcome {
	if rec.RetryCount >= w.maxRetries {
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, token, "retries exhausted before publish", now)
		return deliveryDead
	}

	err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
	if err == nil {
		_ = w.outbox.MarkPublished(ctx, rec.OutboxID, token, now)
		return deliveredOK
	}

	attempts := rec.RetryCount + 1
	fields := []any{
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"attempts", attempts,
		"error", err,
	}
	if attempts >= w.maxRetries {
		w.logger.ErrorContext(ctx, "outbox row dead-lettered", fields...)
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, token, err.Error(), now)
		return deliveryDead
	}
	w.logger.WarnContext(ctx, "outbox publish failed, will retry", fields...)
	_ = w.outbox.MarkFailed(ctx, rec.OutboxID, token, err.Error(), now)
	return deliveryRetried
}
