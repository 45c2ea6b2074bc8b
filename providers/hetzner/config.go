package hetzner

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/httputil"
)

// Config holds Hetzner-specific client configuration.
type Config struct {
	// Token is the API token (Auth-API-Token authentication).
	Token string

	// APIEndpoint overrides the API base URL. Defaults to DefaultAPIEndpoint.
	APIEndpoint string

	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "token is required")
	}
	if c.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("hetzner config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// New creates a Client from a validated Config.
// Additional options are applied after the config-derived ones, so tests
// can still override the HTTP client or endpoint.
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("hetzner config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := []ClientOption{
		WithHTTPClient(newHTTPClient(timeout, slog.Default())),
	}
	if cfg.APIEndpoint != "" {
		base = append(base, WithAPIEndpoint(cfg.APIEndpoint))
	}

	return NewClient(cfg.Token, append(base, opts...)...), nil
}

// newHTTPClient builds the shared HTTP client used for API calls.
func newHTTPClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	return httputil.NewClient(&httputil.ClientConfig{
		Timeout: timeout,
		Logger:  logger,
	})
}
