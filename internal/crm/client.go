// Package crm is a small driver for the HighLevel (LeadConnector) REST API,
// covering the contact, tag, and custom-field calls the relay needs.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://services.leadconnectorhq.com"
	DefaultAPIVersion = "2021-07-28"
	DefaultTimeout    = 15 * time.Second

	// upstream bodies are logged and echoed back, keep them bounded
	maxBodyBytes = 64 << 10
)

var (
	ErrMissingAPIKey     = errors.New("GHL_API_KEY is not set")
	ErrMissingLocationID = errors.New("GHL_LOCATION_ID is not set")
)

// Credentials authenticate every call and scope it to one location.
type Credentials struct {
	APIKey     string
	LocationID string
}

// Validate reports which credential is missing, if any.
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.LocationID == "" {
		return ErrMissingLocationID
	}
	return nil
}

type HTTPConfig struct {
	BaseURL        string
	APIVersion     string
	RateLimiter    *rate.Limiter
	RequestTimeout time.Duration
}

func DefaultHTTPConfig(baseURL string, requestsPerSecond float64) *HTTPConfig {
	return &HTTPConfig{
		BaseURL:        baseURL,
		APIVersion:     DefaultAPIVersion,
		RateLimiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		RequestTimeout: DefaultTimeout,
	}
}

// Client talks to the CRM on behalf of a single location.
type Client struct {
	config     *HTTPConfig
	creds      Credentials
	httpClient *http.Client
	logger     *logrus.Entry
}

func NewClient(config *HTTPConfig, creds Credentials, logger *logrus.Logger) *Client {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultTimeout
	}
	return &Client{
		config:     config,
		creds:      creds,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		logger:     logger.WithField("component", "crm"),
	}
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// do sends one request and decodes a JSON response into out (when non-nil).
// Any non-2xx answer comes back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.config.RateLimiter != nil {
		if err := c.config.RateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limiter: %w", method, path, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	req.Header.Set("Version", c.config.APIVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("crm request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
