package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) QueryUser(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) QueryUserWithEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// CreateUser inserts against the unique email constraint. The translated
// duplicate-key error maps to ErrEmailAlreadyInUse so racing creators can
// requery and converge on the winner's row.
func (r *userRepository) CreateUser(ctx context.Context, email, name string, emailVerified bool, createdAt time.Time) (domain.User, error) {
	rec := userModel{
		Email:         email,
		Name:          name,
		EmailVerified: emailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, domain.ErrEmailAlreadyInUse
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) UpdateEmail(ctx context.Context, userID uuid.UUID, email string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"email": email, "updated_at": updatedAt})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailAlreadyInUse
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
