// Package hetzner implements a client for the Hetzner DNS API.
package hetzner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/httputil"
)

const (
	// DefaultAPIEndpoint is the base URL for the Hetzner DNS API v1.
	DefaultAPIEndpoint = "https://dns.hetzner.com/api/v1"

	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// authHeader carries the API token on every request.
	authHeader = "Auth-API-Token"
)

// ErrZoneNotFound is returned when a zone lookup matches nothing.
var ErrZoneNotFound = errors.New("zone not found")

// APIError is an error response from the Hetzner DNS API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hetzner API error: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("hetzner API error: %s (status %d)", e.Message, e.StatusCode)
}

// apiErrorBody is the error envelope the API wraps failures in.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// Zone is a DNS zone as returned by the API.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	TTL  int    `json:"ttl"`
}

// zonesResponse wraps the zones list response.
type zonesResponse struct {
	Zones []Zone `json:"zones"`
}

// Record is a DNS record as returned by the API.
type Record struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	TTL    int    `json:"ttl"`
	ZoneID string `json:"zone_id"`
}

// recordsResponse wraps the records list response.
type recordsResponse struct {
	Records []Record `json:"records"`
}

// UpdateRecord is the request body for updating a DNS record.
type UpdateRecord struct {
	Name   string `json:"name"`
	TTL    int    `json:"ttl"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	ZoneID string `json:"zone_id"`
}

// Client is a Hetzner DNS API client.
type Client struct {
	apiEndpoint string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIEndpoint sets a custom API endpoint (useful for testing).
func WithAPIEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.apiEndpoint = endpoint
	}
}

// NewClient creates a new Hetzner DNS API client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		apiEndpoint: DefaultAPIEndpoint,
		token:       token,
		httpClient:  httputil.NewClient(&httputil.ClientConfig{Timeout: DefaultTimeout}),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest performs an HTTP request against the API and decodes the
// response into out when out is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, out any) error {
	reqURL := c.apiEndpoint + path

	c.logger.Debug("making API request",
		slog.String("method", method),
		slog.String("path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(authHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody apiErrorBody
		if err := json.Unmarshal(respBody, &errBody); err == nil {
			if errBody.Error.Message != "" {
				apiErr.Message = errBody.Error.Message
			} else {
				apiErr.Message = errBody.Message
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response JSON: %w", err)
		}
	}

	return nil
}

// Ping verifies that the API is reachable and the token is accepted by
// listing zones once. Nothing is mutated.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodGet, "/zones", nil, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("API token was rejected: %w", err)
		}
		return fmt.Errorf("listing zones: %w", err)
	}
	return nil
}

// GetZone returns the zone with the given name.
// Returns an error wrapping ErrZoneNotFound when the name matches nothing.
func (c *Client) GetZone(ctx context.Context, name string) (*Zone, error) {
	params := url.Values{}
	params.Set("name", name)

	var zones zonesResponse
	if err := c.doRequest(ctx, http.MethodGet, "/zones?"+params.Encode(), nil, &zones); err != nil {
		return nil, fmt.Errorf("looking up zone %q: %w", name, err)
	}

	if len(zones.Zones) == 0 {
		return nil, fmt.Errorf("%w: %q (ensure it exists and the token may access it)", ErrZoneNotFound, name)
	}

	zone := zones.Zones[0]
	c.logger.Debug("found zone",
		slog.String("name", zone.Name),
		slog.String("zone_id", zone.ID),
	)

	return &zone, nil
}

// ListRecords returns all records in the given zone.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]Record, error) {
	params := url.Values{}
	params.Set("zone_id", zoneID)

	var records recordsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/records?"+params.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	c.logger.Debug("listed records",
		slog.String("zone_id", zoneID),
		slog.Int("count", len(records.Records)),
	)

	return records.Records, nil
}

// UpdateRecord replaces all data of the record with the given ID.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, data UpdateRecord) error {
	bodyBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := "/records/" + url.PathEscape(recordID)
	if err := c.doRequest(ctx, http.MethodPut, path, bytes.NewReader(bodyBytes), nil); err != nil {
		return fmt.Errorf("updating record %s: %w", recordID, err)
	}

	c.logger.Info("updated DNS record",
		slog.String("record_id", recordID),
		slog.String("type", data.Type),
		slog.String("name", data.Name),
		slog.String("value", data.Value),
		slog.Int("ttl", data.TTL),
	)

	return nil
}
