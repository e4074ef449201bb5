package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
)

// Store persists intake orders. Sequence allocation and the order insert land
// in one transaction so a failed insert never burns a sequence value.
type Store struct {
	client *db.Client
}

// NewStore builds the intake store over the database client.
func NewStore(client *db.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	return &Store{client: client}, nil
}

// FindBySourceID returns the order previously ingested for a storefront id,
// or nil.
func (s *Store) FindBySourceID(ctx context.Context, sourceOrderID string) (*models.Order, error) {
	var row models.Order
	err := s.client.DB().WithContext(ctx).
		Preload("Lines").
		Preload("Groups").
		Where("source_order_id = ?", sourceOrderID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindByID returns an order with its lines and group records.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := s.client.DB().WithContext(ctx).
		Preload("Lines").
		Preload("Groups").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create allocates the next base sequence and inserts the order with its
// lines atomically.
func (s *Store) Create(ctx context.Context, order *models.Order) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var seq models.OrderSequence
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq).Error; err != nil {
			return fmt.Errorf("load order sequence: %w", err)
		}
		order.BaseSequence = seq.NextValue
		seq.NextValue++
		if err := tx.WithContext(ctx).Save(&seq).Error; err != nil {
			return fmt.Errorf("advance order sequence: %w", err)
		}
		if err := tx.WithContext(ctx).Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
}
