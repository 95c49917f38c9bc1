package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Consumer pulls store events from a Pub/Sub subscription
type Consumer struct {
	client  *pubsub.Client
	subName string
	router  *Router
	logger  *slog.Logger
}

func NewConsumer(ctx context.Context, projectID, subName, credentialsFile string, router *Router, logger *slog.Logger) (*Consumer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Consumer{
		client:  client,
		subName: subName,
		router:  router,
		logger:  logger.With("component", "pubsub", "subscription", subName),
	}, nil
}

// Start blocks until ctx is cancelled or the receive loop fails.
func (c *Consumer) Start(ctx context.Context) error {
	sub := c.client.Subscription(c.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription %s: %w", c.subName, err)
	}
	if !exists {
		return fmt.Errorf("subscription %s does not exist", c.subName)
	}

	c.logger.Info("Listening for events")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.handleMessage(ctx, msg.ID, msg.Data, msg.Attributes)
		// Redelivery cannot fix a bad payload and handlers record their own
		// failures, so every message is acked.
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}
	c.logger.Info("Stopped listening for events")
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, id string, data []byte, attrs map[string]string) {
	evt, err := DecodeMessage(data, attrs, id)
	if err != nil {
		c.logger.Error("Dropping undecodable message", "message_id", id, "error", err)
		return
	}
	if _, err := c.router.Route(ctx, evt); err != nil {
		c.logger.Error("Dropping malformed event", "message_id", id, "type", evt.Type, "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.client.Close()
}
