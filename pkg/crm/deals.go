package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

// Deal is the CRM record for one split group.
type Deal struct {
	ID          string `json:"id"`
	Name        string `json:"Deal_Name"`
	Stage       string `json:"Stage"`
	OrderNumber string `json:"TGF_Order_Number"`
}

// DealLine is one subform row on a deal. Price rides here, not on the
// product record.
type DealLine struct {
	ProductID   string
	ProductCode string
	StockNumber string
	UPC         string
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Regulated   bool
}

// DealCreateParams carries everything written when a split group becomes a
// deal.
type DealCreateParams struct {
	OrderNumber     string
	ContactID       string
	Stage           string
	Amount          decimal.Decimal
	FulfillmentPath string
	ConsigneeType   string
	DealerLicense   string
	HoldType        string
	Lines           []DealLine
}

type dealSearchEnvelope struct {
	Data []Deal `json:"data"`
}

// SearchDealByOrderNumber returns the deal carrying the order number, or nil
// when none exists. This is the idempotency probe before any deal create.
func (c *Client) SearchDealByOrderNumber(ctx context.Context, orderNumber string) (*Deal, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}

	query := url.Values{}
	query.Set("criteria", searchCriteria("TGF_Order_Number", orderNumber))

	var env dealSearchEnvelope
	err := c.doJSON(ctx, "search_deal", http.MethodGet, "/Deals/search", query, nil, &env)
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

// CreateDeal writes a new deal with its line subform and returns its CRM id.
func (c *Client) CreateDeal(ctx context.Context, params DealCreateParams) (string, error) {
	if strings.TrimSpace(params.OrderNumber) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if strings.TrimSpace(params.ContactID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "contact id is required")
	}

	lines := make([]map[string]any, 0, len(params.Lines))
	for _, line := range params.Lines {
		lines = append(lines, map[string]any{
			"Product":          map[string]any{"id": line.ProductID},
			"Product_Code":     line.ProductCode,
			"Distributor_Code": line.StockNumber,
			"UPC":              line.UPC,
			"Product_Name":     line.Name,
			"Quantity":         line.Quantity,
			"Unit_Price":       line.UnitPrice.InexactFloat64(),
			"Regulated":        line.Regulated,
		})
	}

	record := map[string]any{
		"Deal_Name":        params.OrderNumber,
		"TGF_Order_Number": params.OrderNumber,
		"Contact_Name":     map[string]any{"id": params.ContactID},
		"Stage":            params.Stage,
		"Amount":           params.Amount.InexactFloat64(),
		"Fulfillment_Path": params.FulfillmentPath,
		"Consignee_Type":   params.ConsigneeType,
		"Order_Items":      lines,
	}
	if params.DealerLicense != "" {
		record["Dealer_License"] = params.DealerLicense
	}
	if params.HoldType != "" {
		record["Hold_Type"] = params.HoldType
	}

	body := map[string]any{"data": []map[string]any{record}}

	var env writeEnvelope
	if err := c.doJSON(ctx, "create_deal", http.MethodPost, "/Deals", nil, body, &env); err != nil {
		return "", err
	}
	result, err := firstWriteResult("create_deal", env)
	if err != nil {
		return "", err
	}
	switch result.Code {
	case resultCodeSuccess:
		return result.Details.ID, nil
	case resultCodeDuplicate:
		return "", pkgerrors.New(pkgerrors.CodeConflict, "crm deal already exists").
			WithDetails(map[string]any{"id": result.Details.ID})
	default:
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("crm create_deal rejected (%s: %s)", result.Code, result.Message))
	}
}

// UpdateDealStage moves an existing deal to a new pipeline stage.
func (c *Client) UpdateDealStage(ctx context.Context, dealID, stage string) error {
	if strings.TrimSpace(dealID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "deal id is required")
	}
	if strings.TrimSpace(stage) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stage is required")
	}

	body := map[string]any{
		"data": []map[string]any{{"Stage": stage}},
	}

	var env writeEnvelope
	if err := c.doJSON(ctx, "update_deal_stage", http.MethodPut, "/Deals/"+dealID, nil, body, &env); err != nil {
		return err
	}
	result, err := firstWriteResult("update_deal_stage", env)
	if err != nil {
		return err
	}
	if result.Code != resultCodeSuccess {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("crm update_deal_stage rejected (%s: %s)", result.Code, result.Message))
	}
	return nil
}
