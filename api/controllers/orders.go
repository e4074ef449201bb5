package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rockcreekarms/ordersync-backend/api/responses"
	"github.com/rockcreekarms/ordersync-backend/api/validators"
	internalorders "github.com/rockcreekarms/ordersync-backend/internal/orders"
	"github.com/rockcreekarms/ordersync-backend/internal/ordersync"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

// IntakeService is the slice of the intake service the API needs.
type IntakeService interface {
	Submit(ctx context.Context, input internalorders.SubmitOrderInput) (*internalorders.SubmitResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// SyncService triggers one sync attempt for an order.
type SyncService interface {
	SyncOrder(ctx context.Context, orderID uuid.UUID) (*ordersync.Result, error)
}

// SubmitOrder ingests a storefront order. Repeat submissions of the same
// source order id return the original order with a 200.
func SubmitOrder(svc IntakeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internalorders.SubmitOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// SyncOrder runs a sync attempt and reports per-group outcomes. Partial
// failure still returns the result body; group entries carry their errors.
func SyncOrder(svc SyncService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SyncOrder(r.Context(), orderID)
		if result == nil && err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logg.Warn(logg.WithOrderID(r.Context(), orderID.String()), "sync finished with failed groups: "+err.Error())
		}
		responses.WriteSuccess(w, result)
	}
}

type orderStatusResponse struct {
	OrderID       string             `json:"order_id"`
	SourceOrderID string             `json:"source_order_id"`
	Status        string             `json:"status"`
	Holds         []string           `json:"holds"`
	TestMode      bool               `json:"test_mode"`
	Groups        []groupStatusEntry `json:"groups"`
}

type groupStatusEntry struct {
	GroupKey    string  `json:"group_key"`
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	DealID      *string `json:"deal_id,omitempty"`
	Attempts    int     `json:"attempts"`
	LastError   *string `json:"last_error,omitempty"`
}

// OrderStatus returns the stored order with its per-group sync state.
func OrderStatus(svc IntakeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := orderStatusResponse{
			OrderID:       order.ID.String(),
			SourceOrderID: order.SourceOrderID,
			Status:        order.Status.String(),
			Holds:         order.Holds,
			TestMode:      order.TestMode,
			Groups:        make([]groupStatusEntry, 0, len(order.Groups)),
		}
		for _, group := range order.Groups {
			out.Groups = append(out.Groups, groupStatusEntry{
				GroupKey:    group.GroupKey.String(),
				OrderNumber: group.OrderNumber,
				Status:      group.Status.String(),
				DealID:      group.CRMDealID,
				Attempts:    group.Attempts,
				LastError:   group.LastError,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId must be a uuid")
	}
	return orderID, nil
}
