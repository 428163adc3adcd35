package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

type customerRepository struct {
	db *gorm.DB
}

func (r *customerRepository) QueryCustomerByUserID(ctx context.Context, userID uuid.UUID) (domain.CustomerProfile, error) {
	var rec customerModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CustomerProfile{}, domain.ErrNotFound
		}
		return domain.CustomerProfile{}, err
	}
	return toDomainCustomer(rec), nil
}

// CreateCustomer races safely on the unique user_id constraint: a duplicate
// insert means another request healed the profile first, so return theirs.
func (r *customerRepository) CreateCustomer(ctx context.Context, userID uuid.UUID, createdAt time.Time) (domain.CustomerProfile, error) {
	rec := customerModel{
		UserID:    userID,
		CreatedAt: createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.QueryCustomerByUserID(ctx, userID)
		}
		return domain.CustomerProfile{}, err
	}
	return toDomainCustomer(rec), nil
}
