package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

// Contact is the CRM's view of a buyer.
type Contact struct {
	ID        string `json:"id"`
	Email     string `json:"Email"`
	FirstName string `json:"First_Name"`
	LastName  string `json:"Last_Name"`
	Tier      string `json:"Membership_Tier"`
}

// ContactCreateParams carries the fields written on contact creation.
type ContactCreateParams struct {
	Email     string
	FirstName string
	LastName  string
	Tier      string
}

type contactSearchEnvelope struct {
	Data []Contact `json:"data"`
}

// SearchContactByEmail returns the contact for the given email, or nil when
// no contact matches.
func (c *Client) SearchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}

	query := url.Values{}
	query.Set("criteria", searchCriteria("Email", email))

	var env contactSearchEnvelope
	err := c.doJSON(ctx, "search_contact", http.MethodGet, "/Contacts/search", query, nil, &env)
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

// CreateContact writes a new contact and returns its CRM id. A duplicate
// conflict surfaces as CodeConflict with the existing id in the details.
func (c *Client) CreateContact(ctx context.Context, params ContactCreateParams) (string, error) {
	if strings.TrimSpace(params.Email) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}

	body := map[string]any{
		"data": []map[string]any{{
			"Email":           params.Email,
			"First_Name":      params.FirstName,
			"Last_Name":       params.LastName,
			"Membership_Tier": params.Tier,
		}},
	}

	var env writeEnvelope
	if err := c.doJSON(ctx, "create_contact", http.MethodPost, "/Contacts", nil, body, &env); err != nil {
		return "", err
	}
	result, err := firstWriteResult("create_contact", env)
	if err != nil {
		return "", err
	}
	switch result.Code {
	case resultCodeSuccess:
		return result.Details.ID, nil
	case resultCodeDuplicate:
		return "", pkgerrors.New(pkgerrors.CodeConflict, "crm contact already exists").
			WithDetails(map[string]any{"id": result.Details.ID})
	default:
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("crm create_contact rejected (%s: %s)", result.Code, result.Message))
	}
}

// FindOrCreateContact resolves the CRM contact id for a buyer, creating the
// record when absent. A create that loses a race to a concurrent writer falls
// back to the id reported in the duplicate conflict.
func (c *Client) FindOrCreateContact(ctx context.Context, params ContactCreateParams) (string, error) {
	existing, err := c.SearchContactByEmail(ctx, params.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := c.CreateContact(ctx, params)
	if err == nil {
		return id, nil
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
		if details, ok := typed.Details().(map[string]any); ok {
			if existingID, ok := details["id"].(string); ok && existingID != "" {
				return existingID, nil
			}
		}
	}
	return "", err
}
