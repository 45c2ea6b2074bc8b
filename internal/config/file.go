package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure.
// TOML is the canonical format (config.toml); YAML is accepted when the
// file carries a .yml or .yaml extension.
type FileConfig struct {
	// APIToken authenticates against the Hetzner DNS API.
	APIToken string `toml:"api_token" yaml:"api_token"`

	// TTL is set on updated records. Optional, defaults to 60.
	TTL int `toml:"ttl" yaml:"ttl,omitempty"`

	// Custom public-IP echo endpoints. Optional.
	IPv4Endpoint string `toml:"ipv4_endpoint" yaml:"ipv4_endpoint,omitempty"`
	IPv6Endpoint string `toml:"ipv6_endpoint" yaml:"ipv6_endpoint,omitempty"`

	// Logging configuration. Optional.
	Logging *FileLoggingConfig `toml:"logging" yaml:"logging,omitempty"`

	// Targets are the records to update.
	Targets []FileTargetConfig `toml:"targets" yaml:"targets"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `toml:"level" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format,omitempty"` // json, text
}

// FileTargetConfig holds one (zone, record) pair.
type FileTargetConfig struct {
	Zone   string `toml:"zone" yaml:"zone"`
	Record string `toml:"record" yaml:"record"`
}

// LoadFile reads and decodes a configuration file.
// The format is chosen by extension: .yml/.yaml decode as YAML, everything
// else as TOML.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// toConfig converts the file representation to runtime types,
// filling in defaults for anything unset.
func (f *FileConfig) toConfig() *Config {
	cfg := &Config{
		APIToken:     f.APIToken,
		TTL:          f.TTL,
		IPv4Endpoint: f.IPv4Endpoint,
		IPv6Endpoint: f.IPv6Endpoint,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}

	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.IPv4Endpoint == "" {
		cfg.IPv4Endpoint = DefaultIPv4Endpoint
	}
	if cfg.IPv6Endpoint == "" {
		cfg.IPv6Endpoint = DefaultIPv6Endpoint
	}

	if f.Logging != nil {
		if f.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(f.Logging.Level)
		}
		if f.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(f.Logging.Format)
		}
	}

	for _, t := range f.Targets {
		cfg.Targets = append(cfg.Targets, Target{Zone: t.Zone, Record: t.Record})
	}

	return cfg
}
