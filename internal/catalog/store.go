package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/internal/searchindex"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

// Store couples catalog persistence with the search mirror. A catalog write
// and its index update always commit or fail together.
type Store struct {
	client *db.Client
	index  searchindex.Index
	logger *logger.Logger
}

// NewStore builds a catalog store over the database client and search index.
func NewStore(client *db.Client, index searchindex.Index, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	if index == nil {
		return nil, fmt.Errorf("search index required")
	}
	return &Store{client: client, index: index, logger: logg}, nil
}

func (s *Store) FindActiveByMPN(ctx context.Context, mpn string) ([]models.CatalogProduct, error) {
	return NewRepository(s.client.DB()).FindActiveByMPN(ctx, mpn)
}

func (s *Store) FindActiveByUPC(ctx context.Context, upc string) ([]models.CatalogProduct, error) {
	return NewRepository(s.client.DB()).FindActiveByUPC(ctx, upc)
}

func (s *Store) FindActiveByCurrentAlias(ctx context.Context, stockNumber string) (*models.CatalogProduct, error) {
	row, err := NewRepository(s.client.DB()).FindActiveByCurrentAlias(ctx, stockNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// CreateProduct inserts a product, records its distributor stock number as the
// current alias, and indexes it, all in one transaction.
func (s *Store) CreateProduct(ctx context.Context, product *models.CatalogProduct, stockNumber string) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := repo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create catalog product")
		}
		if stockNumber != "" {
			alias := &models.StockNumberAlias{ProductID: product.ID, StockNumber: stockNumber, Current: true}
			if err := repo.CreateAlias(ctx, alias); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock number alias")
			}
		}
		return s.index.Upsert(ctx, documentFor(product))
	})
}

// SaveProduct persists field changes on an existing product and refreshes its
// search document.
func (s *Store) SaveProduct(ctx context.Context, product *models.CatalogProduct) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save catalog product")
		}
		return s.index.Upsert(ctx, documentFor(product))
	})
}

// AdoptAlias retires the product's current alias and records the new stock
// number as current.
func (s *Store) AdoptAlias(ctx context.Context, productID int64, stockNumber string) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := repo.RetireAliases(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire stock number aliases")
		}
		alias := &models.StockNumberAlias{ProductID: productID, StockNumber: stockNumber, Current: true}
		if err := repo.CreateAlias(ctx, alias); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock number alias")
		}
		return nil
	})
}

// DemoteDuplicates deactivates every loser, writes an audit row per demotion,
// and removes the losers from the search index. The deactivation and the
// deindex land in the same transaction so search never advertises a demoted
// row.
func (s *Store) DemoteDuplicates(ctx context.Context, survivor *models.CatalogProduct, losers []models.CatalogProduct, reason string) error {
	if len(losers) == 0 {
		return nil
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		for _, loser := range losers {
			if err := repo.Deactivate(ctx, loser.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate duplicate product")
			}
			entry := &models.DedupLog{
				UPC:        survivor.UPC,
				SurvivorID: survivor.ID,
				DemotedID:  loser.ID,
				Reason:     reason,
			}
			if err := repo.CreateDedupLog(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write dedup log")
			}
			if err := s.index.MarkInactive(ctx, loser.ID); err != nil {
				return err
			}
			if s.logger != nil {
				s.logger.Info(ctx, fmt.Sprintf("demoted duplicate product %d in favor of %d", loser.ID, survivor.ID))
			}
		}
		return nil
	})
}

func documentFor(product *models.CatalogProduct) searchindex.Document {
	return searchindex.Document{
		ProductID:    product.ID,
		MPN:          product.MPN,
		UPC:          product.UPC,
		StockNumber:  product.StockNumber,
		Name:         product.Name,
		Manufacturer: product.Manufacturer,
		Category:     product.Category,
		Regulated:    product.Regulated,
	}
}
