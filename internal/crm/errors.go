package crm

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxErrorBody caps the upstream body quoted in Error.
const maxErrorBody = 512

// APIError is a non-2xx answer from the CRM.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, maxErrorBody))
}

// truncate cuts b to at most n bytes without splitting a UTF-8 sequence.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "..."
}

// Payload returns the body as raw JSON when it is JSON, otherwise as a string.
func (e *APIError) Payload() any {
	if len(e.Body) == 0 {
		return nil
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

// AsAPIError unwraps err to an *APIError when there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
