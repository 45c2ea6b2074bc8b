// Package config handles loading and validation of hetzner-ddns configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Configuration defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// DefaultTTL is applied to updated records unless overridden.
	DefaultTTL = 60

	// Default public-IP echo endpoints. Each answers with the caller's
	// address for one family only.
	DefaultIPv4Endpoint = "https://4.kritzl.dev"
	DefaultIPv6Endpoint = "https://6.kritzl.dev"
)

// Target identifies a single DNS record to keep updated.
type Target struct {
	// Zone is the zone name as known to the provider (e.g. "example.com").
	Zone string

	// Record is the record name within the zone (e.g. "home" or "@").
	Record string
}

// FQDN returns the record's fully qualified name. The provider uses "@"
// for the zone apex.
func (t Target) FQDN() string {
	if t.Record == "@" {
		return t.Zone
	}
	return t.Record + "." + t.Zone
}

// String returns the record's identity for error output.
func (t Target) String() string {
	return t.FQDN()
}

// Config is the fully resolved runtime configuration.
// It is created once at startup and never mutated afterwards.
type Config struct {
	// APIToken authenticates against the Hetzner DNS API.
	APIToken string

	// Targets are the records to update, in file order.
	Targets []Target

	// TTL is set on every updated record.
	TTL int

	// IPv4Endpoint and IPv6Endpoint are the public-IP echo services.
	IPv4Endpoint string
	IPv6Endpoint string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// LogValue implements slog.LogValuer so the token never reaches log output.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_token", "**********"),
		slog.Int("targets", len(c.Targets)),
		slog.Int("ttl", c.TTL),
		slog.String("ipv4_endpoint", c.IPv4Endpoint),
		slog.String("ipv6_endpoint", c.IPv6Endpoint),
	)
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result. No network I/O happens here.
func Load(path string) (*Config, error) {
	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := fileCfg.toConfig()
	applyEnvOverrides(cfg)

	if errs := validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// applyEnvOverrides merges environment variables into the config.
// Environment variables always take precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if v := getEnvOrFile("HETZNER_DDNS_API_TOKEN", "HETZNER_DDNS_API_TOKEN_FILE"); v != "" {
		cfg.APIToken = v
	}
	if v := getEnv("HETZNER_DDNS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getEnv("HETZNER_DDNS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
}

// validate performs structural validation on the complete configuration.
// Returns a list of validation errors.
func validate(cfg *Config) []string {
	var errs []string

	if cfg.APIToken == "" {
		errs = append(errs, "api_token is required")
	}

	for i, t := range cfg.Targets {
		if t.Zone == "" {
			errs = append(errs, fmt.Sprintf("targets[%d]: zone is required", i))
		}
		if t.Record == "" {
			errs = append(errs, fmt.Sprintf("targets[%d]: record is required", i))
		}
	}

	if cfg.TTL < 0 {
		errs = append(errs, "ttl must be non-negative")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log level: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log format: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	return errs
}
