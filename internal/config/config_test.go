package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes content to a file in a temp dir and returns its path.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, "config.toml", `
api_token = "secret-token"

[[targets]]
zone = "example.com"
record = "home"

[[targets]]
zone = "example.org"
record = "@"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.APIToken != "secret-token" {
		t.Errorf("expected token secret-token, got %q", cfg.APIToken)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.Targets))
	}
	// Target order must follow file order
	if cfg.Targets[0].Zone != "example.com" || cfg.Targets[0].Record != "home" {
		t.Errorf("unexpected first target: %+v", cfg.Targets[0])
	}
	if cfg.Targets[1].Zone != "example.org" || cfg.Targets[1].Record != "@" {
		t.Errorf("unexpected second target: %+v", cfg.Targets[1])
	}

	// Defaults
	if cfg.TTL != DefaultTTL {
		t.Errorf("expected default TTL %d, got %d", DefaultTTL, cfg.TTL)
	}
	if cfg.IPv4Endpoint != DefaultIPv4Endpoint {
		t.Errorf("expected default IPv4 endpoint, got %q", cfg.IPv4Endpoint)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[[targets]]
zone = "example.com"
record = "home"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing api_token")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "api_token") {
		t.Errorf("error should mention api_token, got: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "config.toml", `api_token = [broken`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestLoad_TargetValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "target missing zone",
			content: `
api_token = "t"
[[targets]]
record = "home"
`,
			wantErr: "zone is required",
		},
		{
			name: "target missing record",
			content: `
api_token = "t"
[[targets]]
zone = "example.com"
`,
			wantErr: "record is required",
		},
		{
			name: "negative ttl",
			content: `
api_token = "t"
ttl = -5
[[targets]]
zone = "example.com"
record = "home"
`,
			wantErr: "ttl must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.toml", tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_ZeroTargetsIsLegal(t *testing.T) {
	path := writeConfig(t, "config.toml", `api_token = "t"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("expected no targets, got %d", len(cfg.Targets))
	}
}

func TestLoad_EnvTokenOverride(t *testing.T) {
	path := writeConfig(t, "config.toml", `
api_token = "from-file"
[[targets]]
zone = "example.com"
record = "home"
`)

	t.Setenv("HETZNER_DDNS_API_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Errorf("expected env override, got %q", cfg.APIToken)
	}
}

func TestLoad_EnvTokenFileOverride(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(secretPath, []byte("from-secret-file\n"), 0o600); err != nil {
		t.Fatalf("writing secret fixture: %v", err)
	}

	path := writeConfig(t, "config.toml", `
api_token = "from-file"
[[targets]]
zone = "example.com"
record = "home"
`)

	t.Setenv("HETZNER_DDNS_API_TOKEN_FILE", secretPath)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	// File contents are trimmed
	if cfg.APIToken != "from-secret-file" {
		t.Errorf("expected secret file override, got %q", cfg.APIToken)
	}
}

func TestLoad_EnvTokenSatisfiesValidation(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[[targets]]
zone = "example.com"
record = "home"
`)

	t.Setenv("HETZNER_DDNS_API_TOKEN", "from-env")

	if _, err := Load(path); err != nil {
		t.Fatalf("token from env should satisfy validation, got: %v", err)
	}
}

func TestConfig_LogValueRedactsToken(t *testing.T) {
	cfg := &Config{APIToken: "super-secret"}

	val := cfg.LogValue().String()
	if strings.Contains(val, "super-secret") {
		t.Errorf("token leaked into log value: %s", val)
	}
	if !strings.Contains(val, "**********") {
		t.Errorf("expected redaction marker in log value: %s", val)
	}
}

func TestTarget_FQDN(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{Target{Zone: "example.com", Record: "home"}, "home.example.com"},
		{Target{Zone: "example.com", Record: "@"}, "example.com"},
	}

	for _, tt := range tests {
		if got := tt.target.FQDN(); got != tt.want {
			t.Errorf("FQDN(%+v) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
