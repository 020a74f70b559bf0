package crm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CustomField is one entry of the location's custom-field schema.
type CustomField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FieldKey string `json:"fieldKey"`
	DataType string `json:"dataType,omitempty"`
}

// Key is the field key without the "contact." namespace, e.g. "profit_target".
func (f CustomField) Key() string {
	return strings.TrimPrefix(f.FieldKey, "contact.")
}

type customFieldsResponse struct {
	CustomFields []CustomField `json:"customFields"`
}

func (c *Client) ListCustomFields(ctx context.Context) ([]CustomField, error) {
	path := "/locations/" + url.PathEscape(c.creds.LocationID) + "/customFields"

	var resp customFieldsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.CustomFields, nil
}
