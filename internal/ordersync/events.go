package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

// EventOrderSubmitted marks a message as an intake notification. The sync
// worker consumes these and runs a sync attempt for the order.
const EventOrderSubmitted = "order.submitted"

const publishTimeout = 10 * time.Second

// OrderSubmittedEvent is the payload carried on an intake notification.
type OrderSubmittedEvent struct {
	OrderID string `json:"order_id"`
}

// Publisher emits order-submitted events to the orders topic.
type Publisher struct {
	pub  *pubsub.Publisher
	logg *logger.Logger
}

// NewPublisher wraps a Pub/Sub publisher handle for the orders topic.
func NewPublisher(pub *pubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("orders publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Publisher{pub: pub, logg: logg}, nil
}

// PublishOrderSubmitted emits one intake notification for the order.
func (p *Publisher) PublishOrderSubmitted(ctx context.Context, orderID uuid.UUID) error {
	payload, err := json.Marshal(OrderSubmittedEvent{OrderID: orderID.String()})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order event")
	}

	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type": EventOrderSubmitted,
			"order_id":   orderID.String(),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "orders topic publisher not configured")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish order event")
	}
	return nil
}
