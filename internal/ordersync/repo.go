package ordersync

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
)

// Repository exposes order and sync-group persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a sync repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindOrderByID loads an order with its lines and group records.
func (r *Repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Groups").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveOrder persists order-level fields (status, holds).
func (r *Repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{"status": order.Status, "holds": order.Holds}).Error
}

// SaveLineAssignment persists the resolved product and group key on a line.
func (r *Repository) SaveLineAssignment(ctx context.Context, line *models.OrderLine) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{"product_id": line.ProductID, "group_key": line.GroupKey}).Error
}

// FindGroup returns the sync record for one group of an order, or
// gorm.ErrRecordNotFound.
func (r *Repository) FindGroup(ctx context.Context, orderID uuid.UUID, key enums.FulfillmentPath) (*models.SyncGroupRecord, error) {
	var row models.SyncGroupRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND group_key = ?", orderID, key).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveGroup inserts or updates a sync group record.
func (r *Repository) SaveGroup(ctx context.Context, record *models.SyncGroupRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}
