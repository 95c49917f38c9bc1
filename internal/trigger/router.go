// Package trigger turns store change events into calls on the notification
// and subscription usecases.
package trigger

import (
	"context"
	"encoding/json"
	"log/slog"

	"push-backend/internal/event"
	notifDomain "push-backend/internal/notification/domain"
	notifUsecase "push-backend/internal/notification/usecase"
	subDomain "push-backend/internal/subscription/domain"
	subUsecase "push-backend/internal/subscription/usecase"
	"push-backend/pkg/apperror"
	"push-backend/pkg/metrics"
)

// Router dispatches events by type
type Router struct {
	notifications notifUsecase.NotificationUsecase
	subscriptions subUsecase.SubscriptionUsecase
	logger        *slog.Logger
}

func NewRouter(notifications notifUsecase.NotificationUsecase, subscriptions subUsecase.SubscriptionUsecase, logger *slog.Logger) *Router {
	return &Router{
		notifications: notifications,
		subscriptions: subscriptions,
		logger:        logger.With("component", "trigger"),
	}
}

// Route runs the handler for evt. The error is only set for events that
// cannot be decoded; handler outcomes are reported in the result.
func (r *Router) Route(ctx context.Context, evt event.Event) (event.Result, error) {
	res, err := r.route(ctx, evt)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeMalformed
	case res.Skipped:
		outcome = metrics.OutcomeSkipped
	case !res.Success:
		outcome = metrics.OutcomeFailure
	}
	metrics.TriggerEvents.WithLabelValues(typeLabel(evt.Type), outcome).Inc()

	return res, err
}

// typeLabel keeps arbitrary client-supplied types out of metric labels
func typeLabel(t event.Type) string {
	switch t {
	case event.TypeNotificationCreated, event.TypeUserCreated, event.TypeTokenWritten:
		return string(t)
	}
	return "unknown"
}

func (r *Router) route(ctx context.Context, evt event.Event) (event.Result, error) {
	log := r.logger.With("event_id", evt.ID, "type", evt.Type)

	var res event.Result
	switch evt.Type {
	case event.TypeNotificationCreated:
		id, err := evt.Param(event.ParamNotificationID)
		if err != nil {
			return event.Result{}, apperror.Wrap(apperror.KindInvalidArgument, err, "")
		}
		n, err := decodeNotification(evt.Data)
		if err != nil {
			return event.Result{}, apperror.Wrapf(apperror.KindInvalidArgument, err, "invalid notification %s", id)
		}
		if n == nil {
			log.Debug("Notification created event without data", "notification_id", id)
			return event.Skip(), nil
		}
		n.ID = id
		res = r.notifications.ProcessCreated(ctx, n)

	case event.TypeUserCreated:
		userID, err := evt.Param(event.ParamUserID)
		if err != nil {
			return event.Result{}, apperror.Wrap(apperror.KindInvalidArgument, err, "")
		}
		user, err := decodeUser(evt.Data)
		if err != nil {
			return event.Result{}, apperror.Wrapf(apperror.KindInvalidArgument, err, "invalid user %s", userID)
		}
		res = r.subscriptions.OnUserCreated(ctx, userID, user)

	case event.TypeTokenWritten:
		userID, err := evt.Param(event.ParamUserID)
		if err != nil {
			return event.Result{}, apperror.Wrap(apperror.KindInvalidArgument, err, "")
		}
		before, err := event.DecodeString(evt.Before)
		if err != nil {
			return event.Result{}, apperror.Wrapf(apperror.KindInvalidArgument, err, "invalid previous token for user %s", userID)
		}
		after, err := event.DecodeString(evt.After)
		if err != nil {
			return event.Result{}, apperror.Wrapf(apperror.KindInvalidArgument, err, "invalid token for user %s", userID)
		}
		res = r.subscriptions.OnTokenWritten(ctx, userID, before, after)

	default:
		return event.Result{}, apperror.New(apperror.KindInvalidArgument, "unknown event type %q", evt.Type)
	}

	if res.Success {
		log.Info("Event handled", "skipped", res.Skipped)
	} else {
		log.Warn("Event handler reported failure", "error", res.Error)
	}
	return res, nil
}

func decodeNotification(raw json.RawMessage) (*notifDomain.Notification, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var n *notifDomain.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeUser(raw json.RawMessage) (*subDomain.User, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var u *subDomain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return u, nil
}
