package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"push-backend/internal/event"
	"push-backend/internal/subscription/domain"
	"push-backend/internal/subscription/policy"
	"push-backend/internal/subscription/repository"
)

// synchronizer implements SubscriptionUsecase interface
type synchronizer struct {
	users    repository.UserRepository
	ledger   repository.SubscriptionRepository
	resolver *policy.Resolver
	gateway  TopicGateway
	logger   *slog.Logger
}

// NewSubscriptionUsecase creates a new instance of synchronizer. A nil ledger
// disables membership tracking and previous tokens are never unsubscribed.
func NewSubscriptionUsecase(
	users repository.UserRepository,
	ledger repository.SubscriptionRepository,
	resolver *policy.Resolver,
	gateway TopicGateway,
	logger *slog.Logger,
) SubscriptionUsecase {
	return &synchronizer{
		users:    users,
		ledger:   ledger,
		resolver: resolver,
		gateway:  gateway,
		logger:   logger.With("component", "subscription"),
	}
}

func (s *synchronizer) OnUserCreated(ctx context.Context, userID string, user *domain.User) event.Result {
	var role string
	if user != nil {
		role = user.Role
	}
	topics := s.resolver.Resolve(role)
	log := s.logger.With("user_id", userID, "role", role)

	if err := s.subscribeAll(ctx, log, userID, topics); err != nil {
		return event.Failure(err)
	}

	s.trackIfAbsent(ctx, log, userID, userID, topics)
	log.Info("User subscribed to topics", "topics", topics)
	return event.Result{Success: true, Topics: topics}
}

func (s *synchronizer) OnTokenWritten(ctx context.Context, userID, before, after string) event.Result {
	if after == "" || after == before {
		return event.Skip()
	}

	log := s.logger.With("user_id", userID)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		log.Error("Failed to read user", "error", err)
		return event.Failure(err)
	}
	if user == nil {
		log.Warn("Token written for unknown user")
		return event.Skip()
	}

	topics := s.resolver.Resolve(user.Role)
	log = log.With("role", user.Role)

	s.releasePrevious(ctx, log, userID, after)

	if err := s.subscribeAll(ctx, log, after, topics); err != nil {
		return event.Failure(err)
	}

	s.track(ctx, log, userID, after, topics)
	log.Info("Device token subscribed to topics", "topics", topics)
	return event.Result{Success: true, Topics: topics}
}

// subscribeAll issues one call per topic, in order. The first failure stops
// the loop; earlier subscriptions stay in place.
func (s *synchronizer) subscribeAll(ctx context.Context, log *slog.Logger, token string, topics []string) error {
	for _, topic := range topics {
		if err := s.gateway.SubscribeToTopic(ctx, []string{token}, topic); err != nil {
			log.Error("Failed to subscribe to topic", "topic", topic, "error", err)
			return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
		}
	}
	return nil
}

// releasePrevious unsubscribes the token recorded in the ledger when it is
// being replaced. Failures are logged only.
func (s *synchronizer) releasePrevious(ctx context.Context, log *slog.Logger, userID, next string) {
	if s.ledger == nil {
		return
	}

	prev, err := s.ledger.FindByUserID(ctx, userID)
	if err != nil {
		log.Warn("Failed to read subscription ledger", "error", err)
		return
	}
	if prev == nil || prev.Token == "" || prev.Token == next {
		return
	}

	for _, topic := range prev.Topics {
		if err := s.gateway.UnsubscribeFromTopic(ctx, []string{prev.Token}, topic); err != nil {
			log.Warn("Failed to unsubscribe previous token", "topic", topic, "error", err)
		}
	}
}

func (s *synchronizer) track(ctx context.Context, log *slog.Logger, userID, token string, topics []string) {
	if s.ledger == nil {
		return
	}

	sub := &domain.Subscription{UserID: userID, Token: token, Topics: topics}
	if err := s.ledger.Save(ctx, sub); err != nil {
		log.Warn("Failed to save subscription ledger", "error", err)
	}
}

// trackIfAbsent records the provisional token without replacing an entry a
// token write may already have saved.
func (s *synchronizer) trackIfAbsent(ctx context.Context, log *slog.Logger, userID, token string, topics []string) {
	if s.ledger == nil {
		return
	}

	sub := &domain.Subscription{UserID: userID, Token: token, Topics: topics}
	saved, err := s.ledger.SaveIfAbsent(ctx, sub)
	if err != nil {
		log.Warn("Failed to save subscription ledger", "error", err)
		return
	}
	if !saved {
		log.Debug("Subscription ledger already present, keeping it")
	}
}
