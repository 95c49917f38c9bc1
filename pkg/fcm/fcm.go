package fcm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"firebase.google.com/go/v4/messaging"

	"push-backend/pkg/apperror"
	"push-backend/pkg/metrics"
)

// messagingAPI is the subset of *messaging.Client the gateway uses.
type messagingAPI interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient messagingAPI
	dryRun          bool
	logger          *slog.Logger
}

// NewClient wraps an initialized messaging client. With dryRun set, messages
// are validated by FCM but not delivered.
func NewClient(messagingClient *messaging.Client, dryRun bool, logger *slog.Logger) *Client {
	return newClient(messagingClient, dryRun, logger)
}

func newClient(api messagingAPI, dryRun bool, logger *slog.Logger) *Client {
	return &Client{
		messagingClient: api,
		dryRun:          dryRun,
		logger:          logger.With("component", "fcm"),
	}
}

// Message is a topic broadcast.
type Message struct {
	Title string
	Body  string
	Topic string
	Data  map[string]string // Custom data payload
}

func (m Message) toMessaging() *messaging.Message {
	data := m.Data
	if data == nil {
		data = map[string]string{}
	}
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data:  data,
		Topic: m.Topic,
	}
}

// Send publishes a message to its topic and returns the FCM message id.
// Failures are DELIVERY_FAILURE errors carrying the FCM error text unchanged.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	send := c.messagingClient.Send
	if c.dryRun {
		send = c.messagingClient.SendDryRun
	}

	response, err := send(ctx, msg.toMessaging())
	metrics.GatewayCalls.WithLabelValues("send", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error("Failed to send FCM message", "topic", msg.Topic, "error", err)
		return "", apperror.Wrap(apperror.KindDelivery, err, "")
	}

	c.logger.Info("Message sent successfully", "topic", msg.Topic, "message_id", response, "dry_run", c.dryRun)
	return response, nil
}

// SubscribeToTopic subscribes tokens to topic. Any rejected token makes the
// whole call fail.
func (c *Client) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := c.messagingClient.SubscribeToTopic(ctx, tokens, topic)
	if err == nil {
		err = topicResponseError(resp)
	}
	metrics.GatewayCalls.WithLabelValues("subscribe", metrics.Outcome(err)).Inc()
	if err != nil {
		return apperror.Wrap(apperror.KindDelivery, err, "")
	}
	c.logger.Debug("Subscribed to topic", "topic", topic, "tokens", len(tokens))
	return nil
}

// UnsubscribeFromTopic removes tokens from topic.
func (c *Client) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := c.messagingClient.UnsubscribeFromTopic(ctx, tokens, topic)
	if err == nil {
		err = topicResponseError(resp)
	}
	metrics.GatewayCalls.WithLabelValues("unsubscribe", metrics.Outcome(err)).Inc()
	if err != nil {
		return apperror.Wrap(apperror.KindDelivery, err, "")
	}
	c.logger.Debug("Unsubscribed from topic", "topic", topic, "tokens", len(tokens))
	return nil
}

// topicResponseError turns per-token failures into a single error.
func topicResponseError(resp *messaging.TopicManagementResponse) error {
	if resp == nil || resp.FailureCount == 0 {
		return nil
	}

	reasons := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		reasons = append(reasons, e.Reason)
	}
	return fmt.Errorf("%d of %d tokens rejected: %s",
		resp.FailureCount, resp.FailureCount+resp.SuccessCount, strings.Join(reasons, "; "))
}
