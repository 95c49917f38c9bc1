package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"push-backend/internal/subscription/domain"
	"push-backend/pkg/apperror"
)

// gormUserRepository implements UserRepository interface
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new instance of gormUserRepository
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to find user %s", id)
	}
	return &user, nil
}

// gormSubscriptionRepository implements SubscriptionRepository interface
type gormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new instance of gormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{db: db}
}

func (r *gormSubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to find subscription for user %s", userID)
	}
	return &sub, nil
}

// Save upserts the ledger entry (INSERT ... ON CONFLICT (user_id) DO UPDATE)
func (r *gormSubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	sub.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "topics", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to save subscription for user %s", sub.UserID)
	}
	return nil
}

// SaveIfAbsent inserts the ledger entry with ON CONFLICT (user_id) DO NOTHING
func (r *gormSubscriptionRepository) SaveIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	sub.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(sub)
	if res.Error != nil {
		return false, apperror.Wrapf(apperror.KindStore, res.Error, "failed to create subscription for user %s", sub.UserID)
	}
	return res.RowsAffected == 1, nil
}
