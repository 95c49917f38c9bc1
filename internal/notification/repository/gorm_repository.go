package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"push-backend/internal/notification/domain"
	"push-backend/pkg/apperror"
)

// gormNotificationRepository implements NotificationRepository using GORM
type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-based NotificationRepository
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = domain.StatusPending
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to create notification")
	}
	return nil
}

func (r *gormNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to find notification %s", id)
	}
	return &n, nil
}

func (r *gormNotificationRepository) FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error) {
	if !queryableFields[field] {
		return nil, apperror.New(apperror.KindStore, "field %q is not indexed", field)
	}

	var records []*domain.Notification
	// field is one of the whitelisted column names above
	err := r.db.WithContext(ctx).Where(field+" = ?", value).Order("id").Find(&records).Error
	if err != nil {
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to query notifications by %s", field)
	}
	return records, nil
}

// ApplyStatus issues one UPDATE for all ids, restricted to rows that are
// still pending.
func (r *gormNotificationRepository) ApplyStatus(ctx context.Context, update domain.StatusUpdate, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id IN ? AND status = ?", ids, domain.StatusPending).
		Updates(update.Columns()).Error
	if err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to update %d notification(s)", len(ids))
	}
	return nil
}

// Claim is a conditional UPDATE; only one caller can flip attempted_at from NULL.
func (r *gormNotificationRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND status = ? AND attempted_at IS NULL", id, domain.StatusPending).
		Update("attempted_at", at.UTC())
	if res.Error != nil {
		return false, apperror.Wrapf(apperror.KindStore, res.Error, "failed to claim notification %s", id)
	}
	return res.RowsAffected == 1, nil
}
