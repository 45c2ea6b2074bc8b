package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(nil)

	if client == nil {
		t.Fatal("NewClient returned nil")
	}

	if client.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
	}

	// Transport should be userAgentTransport wrapping default transport
	if client.Transport == nil {
		t.Fatal("expected non-nil transport")
	}

	uaTransport, ok := client.Transport.(*userAgentTransport)
	if !ok {
		t.Fatal("expected transport to be *userAgentTransport")
	}

	if uaTransport.userAgent != DefaultUserAgent {
		t.Errorf("expected userAgent %q, got %q", DefaultUserAgent, uaTransport.userAgent)
	}
}

func TestNewClient_CustomTimeout(t *testing.T) {
	client := NewClient(&ClientConfig{Timeout: 60 * time.Second})

	if client.Timeout != 60*time.Second {
		t.Errorf("expected timeout 60s, got %v", client.Timeout)
	}
}

func TestNewClient_ZeroTimeout_UsesDefault(t *testing.T) {
	client := NewClient(&ClientConfig{Timeout: 0})

	if client.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v for zero value, got %v", DefaultTimeout, client.Timeout)
	}
}

func TestClient_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(nil)

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != DefaultUserAgent {
		t.Errorf("expected User-Agent %q, got %q", DefaultUserAgent, gotUA)
	}
}

func TestClient_PreservesExistingUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{UserAgent: "custom/2.0"})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("User-Agent", "caller/1.0")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "caller/1.0" {
		t.Errorf("expected caller's User-Agent to win, got %q", gotUA)
	}
}
