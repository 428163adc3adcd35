package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

type oauthAccountRepository struct {
	db *gorm.DB
}

func (r *oauthAccountRepository) QueryOAuthAccount(ctx context.Context, provider, subject string) (domain.OAuthAccount, error) {
	var rec oauthAccountModel
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Where("subject = ?", subject).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.OAuthAccount{}, domain.ErrNotFound
		}
		return domain.OAuthAccount{}, err
	}
	return toDomainOAuthAccount(rec), nil
}

// CreateOAuthAccount inserts under the unique (provider, subject)
// constraint, keeping at most one local user per provider identity. An
// insert that loses the race is treated as already-linked, not an error.
func (r *oauthAccountRepository) CreateOAuthAccount(ctx context.Context, userID uuid.UUID, provider, subject, providerEmail string, linkedAt time.Time) error {
	rec := oauthAccountModel{
		UserID:        userID,
		Provider:      provider,
		Subject:       subject,
		ProviderEmail: providerEmail,
		LinkedAt:      linkedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}
