package compliance

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
)

// Repository exposes the persistence reads hold evaluation needs.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a compliance repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindDealerByLicense returns the dealer on file for a license, or
// gorm.ErrRecordNotFound.
func (r *Repository) FindDealerByLicense(ctx context.Context, license string) (*models.Dealer, error) {
	var row models.Dealer
	if err := r.db.WithContext(ctx).Where("license = ?", license).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Settings returns the policy override row when one exists.
func (r *Repository) Settings(ctx context.Context) (*models.ComplianceSetting, error) {
	var row models.ComplianceSetting
	if err := r.db.WithContext(ctx).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountRegulatedSince sums the regulated quantities a buyer purchased since
// the cutoff. Cancelled and returned orders do not count against the window.
func (r *Repository) CountRegulatedSince(ctx context.Context, buyerEmail string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Select("COALESCE(SUM(order_lines.quantity), 0)").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.buyer_email = ?", buyerEmail).
		Where("orders.created_at >= ?", since).
		Where("orders.status NOT IN ?", []string{"cancelled", "returned"}).
		Where("order_lines.regulated = ?", true).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
