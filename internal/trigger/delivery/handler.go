package delivery

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"push-backend/internal/event"
	"push-backend/internal/trigger"
	"push-backend/pkg/apperror"
)

// EventRouter routes a decoded store event
type EventRouter interface {
	Route(ctx context.Context, evt event.Event) (event.Result, error)
}

// TriggerHandler receives store events pushed over HTTP
type TriggerHandler struct {
	router EventRouter
	logger *slog.Logger
}

// NewTriggerHandler creates a new TriggerHandler
func NewTriggerHandler(router EventRouter, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		router: router,
		logger: logger.With("component", "trigger_http"),
	}
}

// PushEnvelope is the body of a Pub/Sub push delivery
type PushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// HandleEvent handles one raw event
// POST /api/triggers/events
func (h *TriggerHandler) HandleEvent(c *gin.Context) {
	var evt event.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.router.Route(c.Request.Context(), evt)
	if err != nil {
		c.JSON(apperror.HTTPStatus(apperror.KindOf(err)), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

// HandlePubSubPush handles a Pub/Sub push delivery. It answers 200 even for
// payloads it cannot use so they are not redelivered.
// POST /api/triggers/pubsub
func (h *TriggerHandler) HandlePubSubPush(c *gin.Context) {
	var envelope PushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Error("Invalid push envelope", "error", err)
		c.JSON(http.StatusOK, event.Failure(err))
		return
	}

	msg := envelope.Message
	evt, err := trigger.DecodeMessage(msg.Data, msg.Attributes, msg.MessageID)
	if err != nil {
		h.logger.Error("Dropping undecodable push message", "message_id", msg.MessageID, "error", err)
		c.JSON(http.StatusOK, event.Failure(err))
		return
	}

	res, err := h.router.Route(c.Request.Context(), evt)
	if err != nil {
		h.logger.Error("Dropping malformed push event", "message_id", msg.MessageID, "type", evt.Type, "error", err)
		c.JSON(http.StatusOK, event.Failure(err))
		return
	}

	c.JSON(http.StatusOK, res)
}
