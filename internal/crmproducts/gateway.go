package crmproducts

import (
	"context"
	"fmt"

	"github.com/rockcreekarms/ordersync-backend/pkg/crm"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

type productAPI interface {
	SearchProductByCode(ctx context.Context, code string) (*crm.ProductRecord, error)
	CreateProduct(ctx context.Context, params crm.ProductCreateParams) (string, error)
}

type productSaver interface {
	SaveProduct(ctx context.Context, product *models.CatalogProduct) error
}

// Gateway guarantees a catalog product has exactly one CRM record. The cost
// ceiling per product is one search plus at most one create; a duplicate
// conflict from the CRM counts as success.
type Gateway struct {
	api    productAPI
	saver  productSaver
	logger *logger.Logger
}

// NewGateway builds the product gateway over the CRM client and catalog store.
func NewGateway(api productAPI, saver productSaver, logg *logger.Logger) (*Gateway, error) {
	if api == nil {
		return nil, fmt.Errorf("crm product api required")
	}
	if saver == nil {
		return nil, fmt.Errorf("catalog saver required")
	}
	return &Gateway{api: api, saver: saver, logger: logg}, nil
}

// Ensure returns the CRM record id for the product, creating the record when
// needed. Only static attributes travel to the CRM; price and quantity never
// do. The id is cached back onto the catalog row.
func (g *Gateway) Ensure(ctx context.Context, product *models.CatalogProduct) (string, error) {
	if product == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "catalog product required")
	}
	if product.CRMRecordID != nil && *product.CRMRecordID != "" {
		return *product.CRMRecordID, nil
	}

	code := CodeFor(product)
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product has no identifier to use as a crm code")
	}

	existing, err := g.api.SearchProductByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return g.remember(ctx, product, existing.ID)
	}

	id, err := g.api.CreateProduct(ctx, crm.ProductCreateParams{
		Code:             code,
		Name:             product.Name,
		Manufacturer:     deref(product.Manufacturer),
		Category:         deref(product.Category),
		Regulated:        product.Regulated,
		DropShipEligible: product.DropShipEligible,
		InHouseOnly:      product.InHouseOnly,
	})
	if err != nil {
		if !crm.IsDuplicate(err) {
			return "", err
		}
		// a concurrent writer won the race; the conflict carries the id
		id = duplicateID(err)
		if id == "" {
			record, searchErr := g.api.SearchProductByCode(ctx, code)
			if searchErr != nil {
				return "", searchErr
			}
			if record == nil {
				return "", pkgerrors.New(pkgerrors.CodeDependency, "crm reported a duplicate product but none was found")
			}
			id = record.ID
		}
	}
	return g.remember(ctx, product, id)
}

func (g *Gateway) remember(ctx context.Context, product *models.CatalogProduct, id string) (string, error) {
	product.CRMRecordID = &id
	if err := g.saver.SaveProduct(ctx, product); err != nil {
		return "", err
	}
	if g.logger != nil {
		g.logger.Debug(ctx, fmt.Sprintf("catalog product %d linked to crm record %s", product.ID, id))
	}
	return id, nil
}

// CodeFor derives the CRM product code: the manufacturer part number when
// present, otherwise the UPC, otherwise a synthetic code from the distributor
// stock number.
func CodeFor(product *models.CatalogProduct) string {
	switch {
	case product.MPN != "":
		return product.MPN
	case product.UPC != "":
		return product.UPC
	case product.StockNumber != "":
		return "SKU-" + product.StockNumber
	default:
		return ""
	}
}

func duplicateID(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	id, _ := details["id"].(string)
	return id
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
