package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand_MissingConfigFlag(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --config is missing")
	}
}

func TestRootCommand_MalformedConfigFailsBeforeNetwork(t *testing.T) {
	// Any network call during this run is a bug: a bad config file must
	// fail the process before the resolver or the API are touched.
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := "ipv4_endpoint = \"" + server.URL + "\"\nipv6_endpoint = \"" + server.URL + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{"-c", path})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for config without api_token")
	}
	if !strings.Contains(err.Error(), "api_token") {
		t.Errorf("expected config error, got: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input).String(); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
