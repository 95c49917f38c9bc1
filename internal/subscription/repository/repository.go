package repository

import (
	"context"

	"push-backend/internal/subscription/domain"
)

// UserRepository defines read access to user records
type UserRepository interface {
	// FindByID returns the user, or nil if the record does not exist
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// SubscriptionRepository stores the per-user topic membership ledger
type SubscriptionRepository interface {
	// FindByUserID returns the user's ledger entry, or nil if there is none
	FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error)

	// Save creates or replaces the user's ledger entry
	Save(ctx context.Context, sub *domain.Subscription) error

	// SaveIfAbsent creates the entry only if the user has none yet and
	// reports whether it was written
	SaveIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error)
}
