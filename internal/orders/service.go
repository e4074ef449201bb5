package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
	"github.com/rockcreekarms/ordersync-backend/pkg/redis"
)

const (
	idempotencyScope = "orders"
	idempotencyTTL   = 24 * time.Hour

	sourceOrderIDConstraint = "idx_orders_source_order_id"
)

type orderStore interface {
	FindBySourceID(ctx context.Context, sourceOrderID string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
}

type eventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, orderID uuid.UUID) error
}

// Service ingests storefront orders. Intake is idempotent on the storefront's
// order id: the same payload submitted twice stores one order.
type Service struct {
	store       orderStore
	idempotency redis.IdempotencyStore
	events      eventPublisher
	numbering   config.NumberingConfig
	metrics     *metrics.SyncMetrics
	logger      *logger.Logger
}

// NewService builds the intake service. The event publisher may be nil; sync
// then only runs through the explicit sync endpoint. Numbering test mode
// forces sandbox numbering on every stored order regardless of payload.
func NewService(store orderStore, idempotency redis.IdempotencyStore, events eventPublisher, numbering config.NumberingConfig, m *metrics.SyncMetrics, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if idempotency == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	return &Service{store: store, idempotency: idempotency, events: events, numbering: numbering, metrics: m, logger: logg}, nil
}

// Submit stores a storefront order. A repeated source order id returns the
// original order instead of creating a second one.
func (s *Service) Submit(ctx context.Context, input SubmitOrderInput) (*SubmitResult, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	key := s.idempotency.IdempotencyKey(idempotencyScope, input.SourceOrderID)
	fresh, err := s.idempotency.SetNX(ctx, key, "1", idempotencyTTL)
	if err != nil {
		// redis being down must not block intake; the unique index still guards
		if s.logger != nil {
			s.logger.Warn(ctx, "idempotency check unavailable: "+err.Error())
		}
		fresh = true
	}
	if !fresh {
		existing, err := s.store.FindBySourceID(ctx, input.SourceOrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup prior order")
		}
		if existing != nil {
			return &SubmitResult{OrderID: existing.ID.String(), SourceOrderID: existing.SourceOrderID, Created: false}, nil
		}
	}

	order := s.buildOrder(input)
	if err := s.store.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, sourceOrderIDConstraint) {
			existing, lookupErr := s.store.FindBySourceID(ctx, input.SourceOrderID)
			if lookupErr == nil && existing != nil {
				return &SubmitResult{OrderID: existing.ID.String(), SourceOrderID: existing.SourceOrderID, Created: false}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store order")
	}

	if s.metrics != nil {
		s.metrics.IncOrdersReceived()
	}
	if s.logger != nil {
		s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()),
			fmt.Sprintf("order %s ingested with base sequence %d", order.SourceOrderID, order.BaseSequence))
	}
	if s.events != nil {
		if err := s.events.PublishOrderSubmitted(ctx, order.ID); err != nil && s.logger != nil {
			// sync is still reachable through the sync endpoint
			s.logger.Warn(ctx, "order event not published: "+err.Error())
		}
	}
	return &SubmitResult{OrderID: order.ID.String(), SourceOrderID: order.SourceOrderID, Created: true}, nil
}

// Get returns an order with its lines and sync group records.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *Service) normalize(input SubmitOrderInput) (SubmitOrderInput, error) {
	input.SourceOrderID = strings.TrimSpace(input.SourceOrderID)
	input.BuyerEmail = strings.ToLower(strings.TrimSpace(input.BuyerEmail))
	input.BuyerName = strings.TrimSpace(input.BuyerName)
	if input.SourceOrderID == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "source_order_id is required")
	}
	if input.BuyerEmail == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "buyer_email is required")
	}
	if input.BuyerName == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "buyer_name is required")
	}
	if len(input.Lines) == 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one line")
	}
	for i, line := range input.Lines {
		if strings.TrimSpace(line.Name) == "" {
			return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d is missing a name", i))
		}
		if line.Quantity <= 0 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d needs a positive quantity", i))
		}
		if line.UnitPrice.IsNegative() {
			return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d has a negative unit price", i))
		}
	}
	if input.BuyerTier != "" {
		if _, err := enums.ParseBuyerTier(input.BuyerTier); err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "unknown buyer_tier")
		}
	}
	if input.ShippingAddress != nil {
		normalized := input.ShippingAddress.Normalized()
		if err := normalized.Validate(); err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping_address")
		}
		input.ShippingAddress = &normalized
	}
	return input, nil
}

func (s *Service) buildOrder(input SubmitOrderInput) *models.Order {
	tier := enums.BuyerTierRetail
	if input.BuyerTier != "" {
		if parsed, err := enums.ParseBuyerTier(input.BuyerTier); err == nil {
			tier = parsed
		}
	}

	total := decimal.Zero
	lines := make([]models.OrderLine, len(input.Lines))
	for i, line := range input.Lines {
		lines[i] = models.OrderLine{
			MPN:              strings.TrimSpace(line.MPN),
			UPC:              strings.TrimSpace(line.UPC),
			StockNumber:      strings.TrimSpace(line.StockNumber),
			Name:             strings.TrimSpace(line.Name),
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			Regulated:        line.Regulated,
			DropShipEligible: line.DropShipEligible,
			InHouseOnly:      line.InHouseOnly,
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return &models.Order{
		SourceOrderID:   input.SourceOrderID,
		BuyerEmail:      input.BuyerEmail,
		BuyerName:       input.BuyerName,
		BuyerTier:       tier,
		ShippingAddress: input.ShippingAddress,
		DealerLicense:   input.DealerLicense,
		PaymentRef:      input.PaymentRef,
		Status:          enums.OrderStatusReceived,
		TestMode:        input.TestMode || s.numbering.TestMode,
		Total:           total,
		Lines:           lines,
	}
}
