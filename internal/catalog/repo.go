package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
)

// Repository exposes catalog persistence operations bound to a GORM handle.
// Bind it to a transaction handle when several writes must land together.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveByMPN returns active products sharing a manufacturer part number,
// oldest first.
func (r *Repository) FindActiveByMPN(ctx context.Context, mpn string) ([]models.CatalogProduct, error) {
	var rows []models.CatalogProduct
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("mpn = ? AND is_active = ?", mpn, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActiveByUPC returns active products sharing a UPC, oldest first.
func (r *Repository) FindActiveByUPC(ctx context.Context, upc string) ([]models.CatalogProduct, error) {
	var rows []models.CatalogProduct
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("upc = ? AND is_active = ?", upc, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActiveByCurrentAlias returns the active product whose current
// distributor stock number matches, or gorm.ErrRecordNotFound.
func (r *Repository) FindActiveByCurrentAlias(ctx context.Context, stockNumber string) (*models.CatalogProduct, error) {
	var row models.CatalogProduct
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Joins("JOIN stock_number_aliases ON stock_number_aliases.product_id = catalog_products.id").
		Where("stock_number_aliases.stock_number = ? AND stock_number_aliases.current = ? AND catalog_products.is_active = ?", stockNumber, true, true).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a new catalog product row.
func (r *Repository) Create(ctx context.Context, product *models.CatalogProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save persists every field of an existing product row.
func (r *Repository) Save(ctx context.Context, product *models.CatalogProduct) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Deactivate flips a product to inactive.
func (r *Repository) Deactivate(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.CatalogProduct{}).
		Where("id = ?", productID).
		Update("is_active", false).Error
}

// RetireAliases clears the current flag on every alias of a product.
func (r *Repository) RetireAliases(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.StockNumberAlias{}).
		Where("product_id = ?", productID).
		Update("current", false).Error
}

// CreateAlias inserts a stock number alias row.
func (r *Repository) CreateAlias(ctx context.Context, alias *models.StockNumberAlias) error {
	return r.db.WithContext(ctx).Create(alias).Error
}

// CreateDedupLog records one demotion.
func (r *Repository) CreateDedupLog(ctx context.Context, entry *models.DedupLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
