package config

import (
	"testing"
)

func TestLoadFile_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
api_token = "t"
ttl = 120
ipv4_endpoint = "https://v4.example.net"

[logging]
level = "DEBUG"
format = "json"

[[targets]]
zone = "example.com"
record = "home"
`)

	fileCfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	cfg := fileCfg.toConfig()
	if cfg.TTL != 120 {
		t.Errorf("expected ttl 120, got %d", cfg.TTL)
	}
	if cfg.IPv4Endpoint != "https://v4.example.net" {
		t.Errorf("unexpected ipv4 endpoint: %q", cfg.IPv4Endpoint)
	}
	if cfg.IPv6Endpoint != DefaultIPv6Endpoint {
		t.Errorf("expected default ipv6 endpoint, got %q", cfg.IPv6Endpoint)
	}
	// Level is normalized to lowercase
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected log format json, got %q", cfg.LogFormat)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
api_token: t
targets:
  - zone: example.com
    record: home
  - zone: example.org
    record: www
`)

	fileCfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if fileCfg.APIToken != "t" {
		t.Errorf("expected token t, got %q", fileCfg.APIToken)
	}
	if len(fileCfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(fileCfg.Targets))
	}
	if fileCfg.Targets[1].Record != "www" {
		t.Errorf("unexpected second target: %+v", fileCfg.Targets[1])
	}
}

func TestLoadFile_YAMLRejectsTOMLBody(t *testing.T) {
	// A .yml extension with TOML contents must fail loudly, not silently
	// produce an empty config.
	path := writeConfig(t, "config.yml", `
api_token = "t"
[[targets]]
zone = "example.com"
record = "home"
`)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error parsing TOML body as YAML")
	}
}
