package ordersync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/internal/catalog"
	"github.com/rockcreekarms/ordersync-backend/internal/crmproducts"
	"github.com/rockcreekarms/ordersync-backend/internal/ordersplit"
	"github.com/rockcreekarms/ordersync-backend/pkg/crm"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
)

type syncStore interface {
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveLineAssignment(ctx context.Context, line *models.OrderLine) error
	FindGroup(ctx context.Context, orderID uuid.UUID, key enums.FulfillmentPath) (*models.SyncGroupRecord, error)
	SaveGroup(ctx context.Context, record *models.SyncGroupRecord) error
}

type productResolver interface {
	Resolve(ctx context.Context, in catalog.Identity) (*models.CatalogProduct, error)
}

type productGateway interface {
	Ensure(ctx context.Context, product *models.CatalogProduct) (string, error)
}

type contactAPI interface {
	FindOrCreateContact(ctx context.Context, params crm.ContactCreateParams) (string, error)
}

type dealAPI interface {
	SearchDealByOrderNumber(ctx context.Context, orderNumber string) (*crm.Deal, error)
	CreateDeal(ctx context.Context, params crm.DealCreateParams) (string, error)
	UpdateDealStage(ctx context.Context, dealID, stage string) error
}

type holdEvaluator interface {
	Evaluate(ctx context.Context, order *models.Order) ([]enums.HoldType, error)
}

// GroupResult reports how one split group fared during a sync attempt.
type GroupResult struct {
	Key         enums.FulfillmentPath `json:"group_key"`
	OrderNumber string                `json:"order_number"`
	Status      enums.SyncStatus      `json:"status"`
	DealID      string                `json:"deal_id,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Result is the outcome of one sync attempt across every group of an order.
type Result struct {
	OrderID     uuid.UUID     `json:"order_id"`
	ParentLabel string        `json:"parent_label"`
	Groups      []GroupResult `json:"groups"`
}

// Synced reports whether every group reached synced.
func (r *Result) Synced() bool {
	for _, group := range r.Groups {
		if group.Status != enums.SyncStatusSynced {
			return false
		}
	}
	return len(r.Groups) > 0
}

// Service drives an order through split, numbering, and CRM writes. Buyer
// resolution happens once per order and strictly before any product or deal
// write; each group then succeeds or fails independently.
type Service struct {
	store    syncStore
	resolver productResolver
	products productGateway
	contacts contactAPI
	deals    dealAPI
	holds    holdEvaluator
	metrics  *metrics.SyncMetrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the sync orchestrator.
func NewService(store syncStore, resolver productResolver, products productGateway, contacts contactAPI, deals dealAPI, holds holdEvaluator, m *metrics.SyncMetrics, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("sync store required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if products == nil {
		return nil, fmt.Errorf("product gateway required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact api required")
	}
	if deals == nil {
		return nil, fmt.Errorf("deal api required")
	}
	if holds == nil {
		return nil, fmt.Errorf("hold evaluator required")
	}
	return &Service{
		store:    store,
		resolver: resolver,
		products: products,
		contacts: contacts,
		deals:    deals,
		holds:    holds,
		metrics:  m,
		logger:   logg,
		now:      time.Now,
	}, nil
}

// SyncOrder runs one sync attempt for the order. Re-running it is safe:
// groups already synced are left untouched, and deal creation is guarded by
// an order-number probe against the CRM.
func (s *Service) SyncOrder(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	order, err := s.store.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if s.logger != nil {
		ctx = s.logger.WithOrderID(ctx, order.ID.String())
	}

	if err := s.applyHolds(ctx, order); err != nil {
		return nil, err
	}

	groups, err := s.splitAndAssign(ctx, order)
	if err != nil {
		return nil, err
	}

	numbering, err := ordersplit.NumberOrder(order.BaseSequence, order.TestMode, ordersplit.Keys(groups))
	if err != nil {
		return nil, err
	}

	result := &Result{OrderID: order.ID, ParentLabel: numbering.Parent}

	contactID, err := s.resolveBuyer(ctx, order)
	if err != nil {
		// unstarted groups stay pending; groups synced earlier keep their state
		for _, group := range groups {
			status := enums.SyncStatusPending
			if record, _ := s.findGroup(ctx, order.ID, group.Key); record != nil && record.Status == enums.SyncStatusSynced {
				status = enums.SyncStatusSynced
			}
			result.Groups = append(result.Groups, GroupResult{
				Key:         group.Key,
				OrderNumber: numbering.Children[group.Key],
				Status:      status,
			})
		}
		return result, err
	}

	var syncErr error
	abort := false
	for _, group := range groups {
		number := numbering.Children[group.Key]
		if abort {
			result.Groups = append(result.Groups, GroupResult{Key: group.Key, OrderNumber: number, Status: enums.SyncStatusPending})
			continue
		}

		groupResult, err := s.syncGroup(ctx, order, group, number, contactID)
		result.Groups = append(result.Groups, groupResult)
		if err != nil {
			syncErr = multierr.Append(syncErr, err)
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				abort = true
			}
		}
	}

	if result.Synced() && order.Status == enums.OrderStatusReceived {
		order.Status = enums.OrderStatusProcessing
		if err := s.store.SaveOrder(ctx, order); err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
	}
	return result, syncErr
}

func (s *Service) applyHolds(ctx context.Context, order *models.Order) error {
	holds, err := s.holds.Evaluate(ctx, order)
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(holds))
	for _, hold := range holds {
		labels = append(labels, hold.String())
	}
	order.Holds = labels
	if len(holds) > 0 && (order.Status == enums.OrderStatusReceived || order.Status == enums.OrderStatusProcessing) {
		order.Status = enums.OrderStatusHold
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist holds")
	}
	return nil
}

// splitAndAssign partitions the order's lines and persists each line's group
// key so the stored order reflects how it was split.
func (s *Service) splitAndAssign(ctx context.Context, order *models.Order) ([]ordersplit.Group, error) {
	splitLines := make([]ordersplit.Line, len(order.Lines))
	for i, line := range order.Lines {
		splitLines[i] = ordersplit.Line{
			ID:               line.ID,
			Regulated:        line.Regulated,
			DropShipEligible: line.DropShipEligible,
			InHouseOnly:      line.InHouseOnly,
		}
	}
	groups, err := ordersplit.Split(splitLines)
	if err != nil {
		return nil, err
	}

	keyByLine := map[uuid.UUID]enums.FulfillmentPath{}
	for _, group := range groups {
		for _, l := range group.Lines {
			keyByLine[l.ID] = group.Key
		}
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		key := keyByLine[line.ID]
		if line.GroupKey == nil || *line.GroupKey != key {
			line.GroupKey = &key
			if err := s.store.SaveLineAssignment(ctx, line); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist line group")
			}
		}
	}
	return groups, nil
}

func (s *Service) resolveBuyer(ctx context.Context, order *models.Order) (string, error) {
	first, last := splitName(order.BuyerName)
	id, err := s.contacts.FindOrCreateContact(ctx, crm.ContactCreateParams{
		Email:     order.BuyerEmail,
		FirstName: first,
		LastName:  last,
		Tier:      order.BuyerTier.String(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) syncGroup(ctx context.Context, order *models.Order, group ordersplit.Group, number, contactID string) (GroupResult, error) {
	if s.logger != nil {
		ctx = s.logger.WithGroupKey(s.logger.WithOrderNumber(ctx, number), group.Key.String())
	}
	out := GroupResult{Key: group.Key, OrderNumber: number}

	record, err := s.findGroup(ctx, order.ID, group.Key)
	if err != nil {
		out.Status = enums.SyncStatusFailed
		return out, err
	}
	if record == nil {
		record = &models.SyncGroupRecord{
			OrderID:       order.ID,
			GroupKey:      group.Key,
			OrderNumber:   number,
			Suffix:        suffixOf(number),
			ConsigneeType: group.Consignee,
		}
		switch group.Key {
		case enums.FulfillmentPathDirect:
			record.ConsigneeAddress = order.ShippingAddress
		case enums.FulfillmentPathDealer:
			record.DealerLicense = order.DealerLicense
		}
	}
	if record.Status == enums.SyncStatusSynced {
		out.Status = enums.SyncStatusSynced
		out.DealID = strValue(record.CRMDealID)
		return out, nil
	}

	record.Attempts++
	record.CRMContactID = &contactID

	dealID, err := s.writeDeal(ctx, order, group, number, contactID)
	if err != nil {
		msg := err.Error()
		record.Status = enums.SyncStatusFailed
		record.LastError = &msg
		if saveErr := s.store.SaveGroup(ctx, record); saveErr != nil {
			err = multierr.Append(err, saveErr)
		}
		if s.metrics != nil {
			s.metrics.IncGroupOutcome("failed")
		}
		out.Status = enums.SyncStatusFailed
		out.Error = msg
		return out, err
	}

	syncedAt := s.now()
	record.Status = enums.SyncStatusSynced
	record.CRMDealID = &dealID
	record.LastError = nil
	record.SyncedAt = &syncedAt
	if err := s.store.SaveGroup(ctx, record); err != nil {
		out.Status = enums.SyncStatusFailed
		return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist group record")
	}
	if s.metrics != nil {
		s.metrics.IncGroupOutcome("synced")
	}
	if s.logger != nil {
		s.logger.Info(ctx, "group synced to crm")
	}
	out.Status = enums.SyncStatusSynced
	out.DealID = dealID
	return out, nil
}

// writeDeal resolves every line of the group to a CRM product, probes for an
// existing deal by order number, and creates the deal only when the probe
// comes back empty.
func (s *Service) writeDeal(ctx context.Context, order *models.Order, group ordersplit.Group, number, contactID string) (string, error) {
	lineByID := map[uuid.UUID]*models.OrderLine{}
	for i := range order.Lines {
		lineByID[order.Lines[i].ID] = &order.Lines[i]
	}

	dealLines := make([]crm.DealLine, 0, len(group.Lines))
	amount := decimal.Zero
	for _, member := range group.Lines {
		line := lineByID[member.ID]
		if line == nil {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "group references an unknown line")
		}
		product, err := s.resolver.Resolve(ctx, identityFor(line))
		if err != nil {
			return "", err
		}
		if line.ProductID == nil || *line.ProductID != product.ID {
			line.ProductID = &product.ID
			if err := s.store.SaveLineAssignment(ctx, line); err != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist line product")
			}
		}
		crmProductID, err := s.products.Ensure(ctx, product)
		if err != nil {
			return "", err
		}
		dealLines = append(dealLines, crm.DealLine{
			ProductID:   crmProductID,
			ProductCode: crmproducts.CodeFor(product),
			StockNumber: line.StockNumber,
			UPC:         line.UPC,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Regulated:   line.Regulated,
		})
		amount = amount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if existing, err := s.deals.SearchDealByOrderNumber(ctx, number); err != nil {
		return "", err
	} else if existing != nil {
		return existing.ID, s.refreshStage(ctx, existing, stageFor(order))
	}

	params := crm.DealCreateParams{
		OrderNumber:     number,
		ContactID:       contactID,
		Stage:           stageFor(order),
		Amount:          amount,
		FulfillmentPath: group.Key.String(),
		ConsigneeType:   group.Consignee.String(),
		HoldType:        strings.Join(order.Holds, "; "),
		Lines:           dealLines,
	}
	if group.Key == enums.FulfillmentPathDealer && order.DealerLicense != nil {
		params.DealerLicense = *order.DealerLicense
	}

	dealID, err := s.deals.CreateDeal(ctx, params)
	if err != nil {
		if !crm.IsDuplicate(err) {
			return "", err
		}
		// another attempt created it between probe and write
		existing, searchErr := s.deals.SearchDealByOrderNumber(ctx, number)
		if searchErr != nil {
			return "", searchErr
		}
		if existing == nil {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "crm reported a duplicate deal but none was found")
		}
		return existing.ID, s.refreshStage(ctx, existing, stageFor(order))
	}
	return dealID, nil
}

// refreshStage realigns an adopted deal with the order's current status, so a
// retried group does not leave a stale stage behind.
func (s *Service) refreshStage(ctx context.Context, deal *crm.Deal, stage string) error {
	if deal.Stage == stage {
		return nil
	}
	return s.deals.UpdateDealStage(ctx, deal.ID, stage)
}

func (s *Service) findGroup(ctx context.Context, orderID uuid.UUID, key enums.FulfillmentPath) (*models.SyncGroupRecord, error) {
	record, err := s.store.FindGroup(ctx, orderID, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group record")
	}
	return record, nil
}

func identityFor(line *models.OrderLine) catalog.Identity {
	return catalog.Identity{
		MPN:              line.MPN,
		UPC:              line.UPC,
		StockNumber:      line.StockNumber,
		Name:             line.Name,
		Regulated:        line.Regulated,
		DropShipEligible: line.DropShipEligible,
		InHouseOnly:      line.InHouseOnly,
		Price:            line.UnitPrice,
	}
}

func stageFor(order *models.Order) string {
	switch order.Status {
	case enums.OrderStatusHold:
		return "On Hold"
	case enums.OrderStatusShipped:
		return "Shipped"
	case enums.OrderStatusDelivered:
		return "Closed Won"
	case enums.OrderStatusCancelled, enums.OrderStatusReturned:
		return "Closed Lost"
	default:
		return "Submitted"
	}
}

func suffixOf(number string) string {
	if number == "" {
		return ""
	}
	return number[len(number)-1:]
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func strValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
