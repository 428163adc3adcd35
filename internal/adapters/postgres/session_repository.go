package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/domain"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	// Missing identity or expiry is a programmer error, not a storage
	// condition; it must never produce a half-formed session row.
	if params.UserID == uuid.Nil {
		return domain.Session{}, fmt.Errorf("%w: userID", domain.ErrMissingRequiredField)
	}
	if params.ExpiresAt.IsZero() {
		return domain.Session{}, fmt.Errorf("%w: expiresAt", domain.ErrMissingRequiredField)
	}

	sessionID := params.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	rec := sessionModel{
		SessionID:  sessionID,
		UserID:     params.UserID,
		IPAddress:  nullableString(params.Metadata.IPAddress),
		Browser:    params.Metadata.Browser,
		OS:         params.Metadata.OS,
		UserAgent:  params.Metadata.UserAgent,
		GeoCity:    params.Metadata.GeoCity,
		GeoRegion:  params.Metadata.GeoRegion,
		GeoCountry: params.Metadata.GeoCountry,
		CreatedAt:  params.CreatedAt,
		UpdatedAt:  params.CreatedAt,
		ExpiresAt:  params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

// GetByID returns the row as stored. Expired rows come back too: the
// channel layer owns the refresh-versus-delete decision.
func (r *sessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) Update(ctx context.Context, sessionID uuid.UUID, params ports.SessionUpdateParams) error {
	updates := map[string]any{"updated_at": params.UpdatedAt}
	if params.ExpiresAt != nil {
		updates["expires_at"] = *params.ExpiresAt
	}
	if params.IPAddress != nil {
		updates["ip_address"] = *params.IPAddress
	}
	if params.Browser != nil {
		updates["browser"] = *params.Browser
	}
	if params.OS != nil {
		updates["os"] = *params.OS
	}
	if params.UserAgent != nil {
		updates["user_agent"] = *params.UserAgent
	}
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
}

// Delete is idempotent; a second delete of the same id is a no-op.
func (r *sessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&sessionModel{}).Error
}

func (r *sessionRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Session, error) {
	var rows []sessionModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("expires_at > ?", now).
		Order("updated_at DESC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}

func (r *sessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&sessionModel{}).Error
}
