package repository

import (
	"context"
	"time"

	"push-backend/internal/notification/domain"
)

// NotificationRepository defines the interface for notification record access
type NotificationRepository interface {
	// Create stores a new record and assigns its ID
	Create(ctx context.Context, n *domain.Notification) error

	// FindByID returns the record with the given ID, or nil if it does not exist
	FindByID(ctx context.Context, id string) (*domain.Notification, error)

	// FindByField returns every record whose field equals value.
	// Only domain.FieldTitle and domain.FieldStatus are indexed.
	FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error)

	// ApplyStatus writes the status fields of update to every listed record
	// as a single batched write. No ids is a no-op.
	ApplyStatus(ctx context.Context, update domain.StatusUpdate, ids ...string) error

	// Claim sets attempted_at on a pending, unclaimed record. It reports
	// false when the record is missing, no longer pending, or already claimed.
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
}

var queryableFields = map[string]bool{
	domain.FieldTitle:  true,
	domain.FieldStatus: true,
}
