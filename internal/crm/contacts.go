package crm

import (
	"context"
	"net/http"
	"net/url"
)

type Contact struct {
	ID         string   `json:"id"`
	LocationID string   `json:"locationId,omitempty"`
	Name       string   `json:"name,omitempty"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Email      string   `json:"email"`
	Tags       []string `json:"tags,omitempty"`
}

// CustomFieldValue is written either by id (schema-mapped) or by key.
type CustomFieldValue struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key,omitempty"`
	Value any    `json:"field_value"`
}

// ContactInput is the body of a create or update call.
type ContactInput struct {
	LocationID   string             `json:"locationId,omitempty"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	CustomFields []CustomFieldValue `json:"customFields,omitempty"`
}

type contactEnvelope struct {
	Contact *Contact `json:"contact"`
}

type searchResponse struct {
	Contacts []Contact `json:"contacts"`
}

// SearchContacts runs the CRM's free-text contact search. Matching is fuzzy
// on the CRM side, so callers must filter the result themselves.
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	params := url.Values{}
	params.Set("locationId", c.creds.LocationID)
	params.Set("query", query)

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/contacts/", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

// CreateContact creates a contact in the configured location. The returned
// contact is nil when the CRM answered without one.
func (c *Client) CreateContact(ctx context.Context, input ContactInput) (*Contact, error) {
	input.LocationID = c.creds.LocationID

	var resp contactEnvelope
	if err := c.do(ctx, http.MethodPost, "/contacts/", nil, input, &resp); err != nil {
		return nil, err
	}
	return resp.Contact, nil
}

// UpdateContact overwrites name, email and the given custom fields.
func (c *Client) UpdateContact(ctx context.Context, contactID string, input ContactInput) (*Contact, error) {
	// the update endpoint rejects locationId in the body
	input.LocationID = ""

	var resp contactEnvelope
	if err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(contactID), nil, input, &resp); err != nil {
		return nil, err
	}
	return resp.Contact, nil
}
