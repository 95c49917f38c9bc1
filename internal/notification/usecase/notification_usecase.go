package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"push-backend/internal/event"
	"push-backend/internal/notification/domain"
	"push-backend/internal/notification/repository"
	"push-backend/pkg/apperror"
	"push-backend/pkg/fcm"
)

const dispatchSucceeded = "Push notification sent successfully"

// notificationUsecase implements NotificationUsecase interface
type notificationUsecase struct {
	repo    repository.NotificationRepository
	matcher *Matcher
	gateway Gateway
	logger  *slog.Logger
	now     func() time.Time

	deliverOnEnqueue bool
}

// Option configures a NotificationUsecase
type Option func(*notificationUsecase)

// WithDeliverOnEnqueue makes Enqueue deliver the record it creates. Use it
// with stores that do not emit a creation event of their own.
func WithDeliverOnEnqueue() Option {
	return func(u *notificationUsecase) {
		u.deliverOnEnqueue = true
	}
}

// NewNotificationUsecase creates a new instance of notificationUsecase
func NewNotificationUsecase(repo repository.NotificationRepository, gateway Gateway, logger *slog.Logger, opts ...Option) NotificationUsecase {
	u := &notificationUsecase{
		repo:    repo,
		matcher: NewMatcher(repo),
		gateway: gateway,
		logger:  logger.With("component", "notification"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *notificationUsecase) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	if err := validateContent(req.content()); err != nil {
		return nil, err
	}

	if req.NotificationID != "" {
		n, err := u.repo.FindByID(ctx, req.NotificationID)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, err, "failed to load notification: "+err.Error())
		}
		if n == nil {
			return nil, apperror.New(apperror.KindInvalidArgument, "notification %s not found", req.NotificationID)
		}
		if n.Status != domain.StatusPending {
			return nil, apperror.New(apperror.KindFailedPrecondition, "notification %s is already %s", n.ID, n.Status)
		}
		claimed, err := u.repo.Claim(ctx, n.ID, u.now())
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, err, "failed to claim notification: "+err.Error())
		}
		if !claimed {
			return nil, apperror.New(apperror.KindFailedPrecondition, "notification %s is already being delivered", n.ID)
		}
	}

	log := u.logger.With("title", req.Title, "topic", req.Topic)

	messageID, err := u.gateway.Send(ctx, fcm.Message{
		Title: req.Title,
		Body:  req.Body,
		Topic: req.Topic,
		Data:  req.Data,
	})
	if err != nil {
		reason := err.Error()
		log.Error("Failed to send push notification", "error", reason)

		// The delivery error is what the caller must see
		if uerr := u.recordOutcome(ctx, req, domain.FailedUpdate(reason)); uerr != nil {
			log.Error("Failed to record failed status", "error", uerr)
		}
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to send push notification: "+reason)
	}

	if err := u.recordOutcome(ctx, req, domain.SentUpdate(messageID, u.now())); err != nil {
		log.Error("Failed to record sent status", "message_id", messageID, "error", err)
		return nil, apperror.Wrap(apperror.KindInternal, err,
			fmt.Sprintf("push notification %s sent but its status could not be recorded: %v", messageID, err))
	}

	log.Info("Push notification dispatched", "message_id", messageID)
	return &DispatchResponse{
		Success:   true,
		MessageID: messageID,
		Message:   dispatchSucceeded,
	}, nil
}

// recordOutcome applies update to the pending records owned by a direct
// dispatch, in one batched write.
func (u *notificationUsecase) recordOutcome(ctx context.Context, req DispatchRequest, update domain.StatusUpdate) error {
	targets, err := u.targets(ctx, req)
	if err != nil {
		return err
	}

	var ids []string
	for _, n := range targets {
		if n.Status.CanTransitionTo(update.Status) {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		u.logger.Debug("No pending records to update", "title", req.Title, "topic", req.Topic, "status", update.Status)
		return nil
	}

	u.logger.Debug("Updating notification records", "ids", ids, "status", update.Status)
	return u.repo.ApplyStatus(ctx, update, ids...)
}

// targets resolves the records a direct dispatch writes back to: the
// correlated record if one was named, otherwise every content match.
func (u *notificationUsecase) targets(ctx context.Context, req DispatchRequest) ([]*domain.Notification, error) {
	if req.NotificationID == "" {
		return u.matcher.Match(ctx, req.content())
	}

	n, err := u.repo.FindByID(ctx, req.NotificationID)
	if err != nil || n == nil {
		return nil, err
	}
	return []*domain.Notification{n}, nil
}

func (u *notificationUsecase) ProcessCreated(ctx context.Context, n *domain.Notification) event.Result {
	if n == nil || n.Status != domain.StatusPending {
		if n != nil {
			u.logger.Debug("Skipping non-pending notification", "notification_id", n.ID, "status", n.Status)
		}
		return event.Skip()
	}

	log := u.logger.With("notification_id", n.ID, "topic", n.Topic)

	// At most one worker sends a record. A crash after the claim leaves it
	// pending and claimed, so it is never resent automatically.
	claimed, err := u.repo.Claim(ctx, n.ID, u.now())
	if err != nil {
		log.Error("Failed to claim notification", "error", err)
		return event.Result{Error: "claiming notification: " + err.Error()}
	}
	if !claimed {
		log.Debug("Skipping notification claimed elsewhere")
		return event.Skip()
	}

	messageID, err := u.gateway.Send(ctx, fcm.Message{
		Title: n.Title,
		Body:  n.Body,
		Topic: n.Topic,
		Data:  n.Data,
	})
	if err != nil {
		reason := err.Error()
		log.Error("Failed to process push notification", "error", reason)

		if uerr := u.repo.ApplyStatus(ctx, domain.FailedUpdate(reason), n.ID); uerr != nil {
			log.Error("Failed to record failed status", "error", uerr)
			return event.Result{Error: fmt.Sprintf("%s (recording failed status: %v)", reason, uerr)}
		}
		return event.Result{Error: reason}
	}

	if err := u.repo.ApplyStatus(ctx, domain.SentUpdate(messageID, u.now()), n.ID); err != nil {
		log.Error("Failed to record sent status", "message_id", messageID, "error", err)
		return event.Result{MessageID: messageID, Error: "recording sent status: " + err.Error()}
	}

	log.Info("Push notification processed", "message_id", messageID)
	return event.Result{Success: true, MessageID: messageID}
}

func (u *notificationUsecase) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Notification, error) {
	if err := validateContent(domain.Content{Title: req.Title, Body: req.Body, Topic: req.Topic}); err != nil {
		return nil, err
	}

	createdAt := u.now().UTC()
	n := &domain.Notification{
		Title:     req.Title,
		Body:      req.Body,
		Topic:     req.Topic,
		Data:      req.Data,
		Status:    domain.StatusPending,
		CreatedAt: &createdAt,
	}
	if err := u.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	u.logger.Info("Notification enqueued", "notification_id", n.ID, "topic", n.Topic)
	if !u.deliverOnEnqueue {
		return n, nil
	}

	res := u.ProcessCreated(ctx, n)
	if res.Error != "" {
		u.logger.Warn("Enqueued notification was not delivered", "notification_id", n.ID, "error", res.Error)
	}
	current, err := u.repo.FindByID(ctx, n.ID)
	if err != nil || current == nil {
		return n, nil
	}
	return current, nil
}

func (u *notificationUsecase) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return u.repo.FindByID(ctx, id)
}

func validateContent(c domain.Content) error {
	var missing []string
	if c.Title == "" {
		missing = append(missing, "title")
	}
	if c.Body == "" {
		missing = append(missing, "body")
	}
	if c.Topic == "" {
		missing = append(missing, "topic")
	}
	if len(missing) > 0 {
		return apperror.New(apperror.KindInvalidArgument, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
