package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

// ProductRecord is the CRM's view of a catalog product. Only static
// attributes live here; price and quantity stay on the deal lines.
type ProductRecord struct {
	ID           string `json:"id"`
	Code         string `json:"Product_Code"`
	Name         string `json:"Product_Name"`
	Manufacturer string `json:"Manufacturer"`
	Category     string `json:"Product_Category"`
	Regulated    bool   `json:"Regulated_Item"`
}

// ProductCreateParams carries the static attributes written on creation.
type ProductCreateParams struct {
	Code             string
	Name             string
	Manufacturer     string
	Category         string
	Regulated        bool
	DropShipEligible bool
	InHouseOnly      bool
}

type productSearchEnvelope struct {
	Data []ProductRecord `json:"data"`
}

// SearchProductByCode returns the product carrying the code, or nil when the
// CRM has no such product.
func (c *Client) SearchProductByCode(ctx context.Context, code string) (*ProductRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}

	query := url.Values{}
	query.Set("criteria", searchCriteria("Product_Code", code))

	var env productSearchEnvelope
	err := c.doJSON(ctx, "search_product", http.MethodGet, "/Products/search", query, nil, &env)
	if IsNoContent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	return &env.Data[0], nil
}

// CreateProduct writes a new product record and returns its CRM id. A
// duplicate conflict surfaces as CodeConflict with the existing id when the
// CRM reports one.
func (c *Client) CreateProduct(ctx context.Context, params ProductCreateParams) (string, error) {
	if strings.TrimSpace(params.Code) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}

	body := map[string]any{
		"data": []map[string]any{{
			"Product_Code":       params.Code,
			"Product_Name":       params.Name,
			"Manufacturer":       params.Manufacturer,
			"Product_Category":   params.Category,
			"Regulated_Item":     params.Regulated,
			"Drop_Ship_Eligible": params.DropShipEligible,
			"In_House_Only":      params.InHouseOnly,
		}},
	}

	var env writeEnvelope
	if err := c.doJSON(ctx, "create_product", http.MethodPost, "/Products", nil, body, &env); err != nil {
		return "", err
	}
	result, err := firstWriteResult("create_product", env)
	if err != nil {
		return "", err
	}
	switch result.Code {
	case resultCodeSuccess:
		return result.Details.ID, nil
	case resultCodeDuplicate:
		return "", pkgerrors.New(pkgerrors.CodeConflict, "crm product already exists").
			WithDetails(map[string]any{"id": result.Details.ID})
	default:
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("crm create_product rejected (%s: %s)", result.Code, result.Message))
	}
}
