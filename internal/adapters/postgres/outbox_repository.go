package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := authOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// ClaimUnpublished marks a batch with a claim token so concurrent workers
// do not double-publish, then returns the claimed rows.
func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	now := time.Now().UTC()
	var rows []authOutboxModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&authOutboxModel{}).
			Select("outbox_id").
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("created_at ASC").
			Limit(limit)
		if err := tx.Model(&authOutboxModel{}).
			Where("outbox_id IN (?)", sub).
			Updates(map[string]any{"claim_token": claimToken, "claim_until": claimUntil}).Error; err != nil {
			return err
		}
		return tx.Where("claim_token = ?", claimToken).
			Where("published_at IS NULL").
			Order("created_at ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	records := make([]ports.OutboxRecord, 0, len(rows))
	for _, rec := range rows {
		records = append(records, ports.OutboxRecord{
			OutboxID:       rec.OutboxID,
			EventType:      rec.EventType,
			PartitionKey:   rec.PartitionKey,
			Payload:        []byte(rec.Payload),
			RetryCount:     rec.RetryCount,
			LastError:      rec.LastError,
			CreatedAt:      rec.CreatedAt,
			PublishedAt:    rec.PublishedAt,
			LastErrorAt:    rec.LastErrorAt,
			ClaimToken:     rec.ClaimToken,
			ClaimUntil:     rec.ClaimUntil,
			DeadLetteredAt: rec.DeadLetteredAt,
		})
	}
	return records, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&authOutboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{"published_at": at, "claim_token": nil, "claim_until": nil}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&authOutboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

func (r *outboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&authOutboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"dead_lettered_at": at,
			"last_error":       errMsg,
			"last_error_at":    at,
			"claim_token":      nil,
			"claim_until":      nil,
		}).Error
}
