package usecase

import (
	"context"

	"push-backend/internal/event"
	"push-backend/internal/subscription/domain"
)

// SubscriptionUsecase keeps device topic memberships in line with user
// records. Both entries report through event.Result and never return errors.
type SubscriptionUsecase interface {
	// OnUserCreated subscribes the user id, as a provisional token, to the
	// topics of the user's role
	OnUserCreated(ctx context.Context, userID string, user *domain.User) event.Result

	// OnTokenWritten subscribes a newly written device token to the topics of
	// the user's current role
	OnTokenWritten(ctx context.Context, userID, before, after string) event.Result
}

// TopicGateway manages topic membership on the push transport
type TopicGateway interface {
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
}
