package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
)

// Identity is the product identity carried on an incoming order line. The
// manufacturer part number is the canonical key; the UPC backs it up when the
// part number is missing. The distributor stock number is only a fallback
// signal and never decides canonical identity on its own when a stronger key
// is present.
type Identity struct {
	MPN              string
	UPC              string
	StockNumber      string
	Name             string
	Description      *string
	Manufacturer     *string
	Category         *string
	Regulated        bool
	DropShipEligible bool
	InHouseOnly      bool
	Price            decimal.Decimal
}

type catalogStore interface {
	FindActiveByMPN(ctx context.Context, mpn string) ([]models.CatalogProduct, error)
	FindActiveByUPC(ctx context.Context, upc string) ([]models.CatalogProduct, error)
	FindActiveByCurrentAlias(ctx context.Context, stockNumber string) (*models.CatalogProduct, error)
	CreateProduct(ctx context.Context, product *models.CatalogProduct, stockNumber string) error
	SaveProduct(ctx context.Context, product *models.CatalogProduct) error
	AdoptAlias(ctx context.Context, productID int64, stockNumber string) error
	DemoteDuplicates(ctx context.Context, survivor *models.CatalogProduct, losers []models.CatalogProduct, reason string) error
}

// Resolver maps incoming line identities onto canonical catalog products,
// creating, enriching, or deduplicating rows as needed.
type Resolver struct {
	store   catalogStore
	metrics *metrics.SyncMetrics
	logger  *logger.Logger
}

// NewResolver builds a resolver over the catalog store.
func NewResolver(store catalogStore, m *metrics.SyncMetrics, logg *logger.Logger) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	return &Resolver{store: store, metrics: m, logger: logg}, nil
}

// Resolve returns the canonical catalog product for an identity. Zero matches
// create a new active product. One match returns it, backfilling any
// identifiers the row is missing. Several matches collapse onto a single
// survivor and the rest are demoted.
func (r *Resolver) Resolve(ctx context.Context, in Identity) (*models.CatalogProduct, error) {
	in = normalize(in)
	if in.MPN == "" && in.UPC == "" && in.StockNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line carries no product identifiers")
	}
	if in.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line is missing a product name")
	}

	candidates, matchedKey, err := r.lookup(ctx, in)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return r.create(ctx, in)
	case 1:
		return r.adopt(ctx, &candidates[0], in)
	default:
		survivor, losers := pickSurvivor(candidates, in.StockNumber)
		reason := fmt.Sprintf("duplicate-of:%d; reason:shared %s", survivor.ID, matchedKey)
		if err := r.store.DemoteDuplicates(ctx, survivor, losers, reason); err != nil {
			return nil, err
		}
		if r.metrics != nil {
			for range losers {
				r.metrics.IncDedupDemotions()
			}
		}
		return r.adopt(ctx, survivor, in)
	}
}

func (r *Resolver) lookup(ctx context.Context, in Identity) ([]models.CatalogProduct, string, error) {
	if in.MPN != "" {
		rows, err := r.store.FindActiveByMPN(ctx, in.MPN)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by part number")
		}
		return rows, "mpn " + in.MPN, nil
	}
	if in.UPC != "" {
		rows, err := r.store.FindActiveByUPC(ctx, in.UPC)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by upc")
		}
		return rows, "upc " + in.UPC, nil
	}
	row, err := r.store.FindActiveByCurrentAlias(ctx, in.StockNumber)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by stock number alias")
	}
	if row == nil {
		return nil, "", nil
	}
	return []models.CatalogProduct{*row}, "stock number " + in.StockNumber, nil
}

func (r *Resolver) create(ctx context.Context, in Identity) (*models.CatalogProduct, error) {
	product := &models.CatalogProduct{
		MPN:              in.MPN,
		UPC:              in.UPC,
		StockNumber:      in.StockNumber,
		Name:             in.Name,
		Description:      in.Description,
		Manufacturer:     in.Manufacturer,
		Category:         in.Category,
		Regulated:        in.Regulated,
		DropShipEligible: in.DropShipEligible,
		InHouseOnly:      in.InHouseOnly,
		Price:            in.Price,
		IsActive:         true,
	}
	if err := r.store.CreateProduct(ctx, product, in.StockNumber); err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Info(ctx, fmt.Sprintf("created catalog product %d for %q", product.ID, in.Name))
	}
	return product, nil
}

// adopt backfills identifiers and attributes the stored row is missing, and
// records a changed distributor stock number as the new current alias.
// Existing values are never overwritten.
func (r *Resolver) adopt(ctx context.Context, product *models.CatalogProduct, in Identity) (*models.CatalogProduct, error) {
	changed := false
	if product.MPN == "" && in.MPN != "" {
		product.MPN = in.MPN
		changed = true
	}
	if product.UPC == "" && in.UPC != "" {
		product.UPC = in.UPC
		changed = true
	}
	if product.Manufacturer == nil && in.Manufacturer != nil {
		product.Manufacturer = in.Manufacturer
		changed = true
	}
	if product.Category == nil && in.Category != nil {
		product.Category = in.Category
		changed = true
	}
	if product.Description == nil && in.Description != nil {
		product.Description = in.Description
		changed = true
	}
	if changed {
		if err := r.store.SaveProduct(ctx, product); err != nil {
			return nil, err
		}
	}
	if in.StockNumber != "" && in.StockNumber != currentAlias(product) {
		if err := r.store.AdoptAlias(ctx, product.ID, in.StockNumber); err != nil {
			return nil, err
		}
		product.StockNumber = in.StockNumber
	}
	return product, nil
}

// pickSurvivor orders candidates by: holding a current distributor alias
// (preferring one matching the incoming stock number), then attribute
// completeness, then lowest ID.
func pickSurvivor(candidates []models.CatalogProduct, stockNumber string) (*models.CatalogProduct, []models.CatalogProduct) {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if ranksAbove(&candidates[i], &candidates[best], stockNumber) {
			best = i
		}
	}
	survivor := &candidates[best]
	losers := make([]models.CatalogProduct, 0, len(candidates)-1)
	for i := range candidates {
		if i != best {
			losers = append(losers, candidates[i])
		}
	}
	return survivor, losers
}

func ranksAbove(a, b *models.CatalogProduct, stockNumber string) bool {
	aAlias, bAlias := hasCurrentAlias(a), hasCurrentAlias(b)
	if aAlias != bAlias {
		return aAlias
	}
	if stockNumber != "" {
		aMatch := currentAlias(a) == stockNumber
		bMatch := currentAlias(b) == stockNumber
		if aMatch != bMatch {
			return aMatch
		}
	}
	aScore, bScore := completeness(a), completeness(b)
	if aScore != bScore {
		return aScore > bScore
	}
	return a.ID < b.ID
}

func completeness(p *models.CatalogProduct) int {
	score := 0
	if p.Manufacturer != nil {
		score++
	}
	if p.Category != nil {
		score++
	}
	if p.Description != nil {
		score++
	}
	return score
}

func hasCurrentAlias(p *models.CatalogProduct) bool {
	return currentAlias(p) != ""
}

func currentAlias(p *models.CatalogProduct) string {
	for _, alias := range p.Aliases {
		if alias.Current {
			return alias.StockNumber
		}
	}
	return ""
}

func normalize(in Identity) Identity {
	in.MPN = strings.TrimSpace(in.MPN)
	in.UPC = strings.TrimSpace(in.UPC)
	in.StockNumber = strings.TrimSpace(in.StockNumber)
	in.Name = strings.TrimSpace(in.Name)
	return in
}
