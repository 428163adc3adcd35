package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

type loginCodeRepository struct {
	db *gorm.DB
}

func (r *loginCodeRepository) CreateLoginCode(ctx context.Context, email, codeHash string, createdAt time.Time) error {
	rec := loginCodeModel{
		Email:     email,
		CodeHash:  codeHash,
		CreatedAt: createdAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *loginCodeRepository) GetLoginCode(ctx context.Context, email, codeHash string) (domain.LoginCode, error) {
	var rec loginCodeModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Where("code_hash = ?", codeHash).
		Order("created_at DESC").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoginCode{}, domain.ErrNotFound
		}
		return domain.LoginCode{}, err
	}
	return toDomainLoginCode(rec), nil
}

func (r *loginCodeRepository) DeleteLoginCodesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&loginCodeModel{})
	return res.RowsAffected, res.Error
}

func (r *loginCodeRepository) CreateEmailChangeCode(ctx context.Context, userID uuid.UUID, newEmail, codeHash string, createdAt time.Time) error {
	rec := emailChangeCodeModel{
		UserID:    userID,
		NewEmail:  newEmail,
		CodeHash:  codeHash,
		CreatedAt: createdAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *loginCodeRepository) GetEmailChangeCode(ctx context.Context, userID uuid.UUID, codeHash string) (domain.EmailChangeCode, error) {
	var rec emailChangeCodeModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("code_hash = ?", codeHash).
		Order("created_at DESC").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EmailChangeCode{}, domain.ErrNotFound
		}
		return domain.EmailChangeCode{}, err
	}
	return toDomainEmailChangeCode(rec), nil
}

func (r *loginCodeRepository) DeleteEmailChangeCode(ctx context.Context, codeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("code_id = ?", codeID).
		Delete(&emailChangeCodeModel{}).Error
}
