package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

type syncer interface {
	SyncOrder(ctx context.Context, orderID uuid.UUID) (*Result, error)
}

// Consumer processes order-submitted notifications from Pub/Sub and runs a
// sync attempt per message. Malformed messages ack so they do not poison the
// subscription; retryable sync failures nack for redelivery.
type Consumer struct {
	syncer       syncer
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer bound to the orders subscription.
func NewConsumer(syncer syncer, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if syncer == nil {
		return nil, errors.New("sync service is required")
	}
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{syncer: syncer, subscription: subscription, logg: logg}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msgID string, attrs map[string]string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msgID,
		"event_type": attrs["event_type"],
	})

	if eventType := attrs["event_type"]; eventType != "" && eventType != EventOrderSubmitted {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var event OrderSubmittedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Warn(logCtx, "dropping undecodable order event: "+err.Error())
		return processResult{ack: true}
	}
	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		c.logg.Warn(logCtx, fmt.Sprintf("dropping order event with bad id %q", event.OrderID))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, orderID.String())
	result, err := c.syncer.SyncOrder(logCtx, orderID)
	if err != nil {
		if pkgerrors.Retryable(err) {
			c.logg.Warn(logCtx, "sync attempt failed, redelivering: "+err.Error())
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "sync attempt failed permanently", err)
		return processResult{ack: true}
	}

	if result != nil && !result.Synced() {
		c.logg.Warn(logCtx, "sync attempt left groups unsynced, redelivering")
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "order synced from queue")
	return processResult{ack: true}
}
