package usecase

import (
	"context"

	"push-backend/internal/event"
	"push-backend/internal/notification/domain"
	"push-backend/pkg/fcm"
)

// NotificationUsecase drives notification records through their lifecycle
type NotificationUsecase interface {
	// Dispatch sends a notification on behalf of a live caller and records the
	// outcome on the matching pending records. It is the only entry that
	// returns errors: INVALID_ARGUMENT, FAILED_PRECONDITION or INTERNAL.
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error)

	// ProcessCreated delivers a newly created record and moves it to sent or
	// failed. Non-pending records are skipped.
	ProcessCreated(ctx context.Context, n *domain.Notification) event.Result

	// Enqueue stores a new pending record
	Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Notification, error)

	// GetByID returns a record or nil
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
}

// Gateway is the push transport
type Gateway interface {
	Send(ctx context.Context, msg fcm.Message) (string, error)
}

// DispatchRequest is the direct dispatch payload
type DispatchRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Topic string            `json:"topic"`
	Data  map[string]string `json:"data,omitempty"`
	// NotificationID pins the write-back to one record instead of matching
	// on content.
	NotificationID string `json:"notificationId,omitempty"`
}

func (r DispatchRequest) content() domain.Content {
	return domain.Content{Title: r.Title, Body: r.Body, Topic: r.Topic}
}

// DispatchResponse is returned on successful direct dispatch
type DispatchResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

// EnqueueRequest creates a pending record
type EnqueueRequest struct {
	Title string            `json:"title" binding:"required"`
	Body  string            `json:"body" binding:"required"`
	Topic string            `json:"topic" binding:"required"`
	Data  map[string]string `json:"data"`
}
