// Package metrics provides Prometheus metrics for hetzner-ddns.
//
// The process is a one-shot run with no listener, so metrics are exported
// through a node_exporter textfile instead of an HTTP endpoint.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Namespace prefixes every metric name.
const Namespace = "hetzner_ddns"

var (
	// BuildInfo is a gauge set to 1, labeled with build metadata.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information for hetzner-ddns.",
	}, []string{"version", "goversion"})

	// RecordUpdatesTotal counts record update outcomes per zone and type.
	// Status is one of: updated, skipped, failed.
	RecordUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "record_updates_total",
		Help:      "DNS record update attempts by zone, record type, and outcome.",
	}, []string{"zone", "type", "status"})

	// IPLookupDuration observes public-IP echo latency per address family.
	IPLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "ip_lookup_duration_seconds",
		Help:      "Duration of public IP echo lookups.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"family"})

	// APIRequestsTotal counts Hetzner API calls by method and status class.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "api_requests_total",
		Help:      "Hetzner DNS API requests by method and response status class.",
	}, []string{"method", "status_class"})

	// LastRunTimestamp records when the run finished, for staleness alerts.
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last completed run.",
	})
)

// SetBuildInfo sets the build_info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveAPIRequest records one API call.
func ObserveAPIRequest(method string, statusCode int) {
	APIRequestsTotal.WithLabelValues(method, statusClass(statusCode)).Inc()
}

// statusClass collapses a status code to its class ("2xx", "4xx", ...).
// Code 0 means the request never produced a response.
func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// roundTripper adapts a function to http.RoundTripper.
type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// InstrumentRoundTripper wraps a transport so every request through it is
// counted in APIRequestsTotal.
func InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripper(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil {
			ObserveAPIRequest(req.Method, 0)
			return resp, err
		}
		ObserveAPIRequest(req.Method, resp.StatusCode)
		return resp, nil
	})
}

// WriteTextfile gathers the default registry and writes it to path in the
// Prometheus text exposition format, atomically (write to a temp file in
// the same directory, then rename). Intended for node_exporter's textfile
// collector.
func WriteTextfile(path string) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, fam := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, fam); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp metrics file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming metrics file: %w", err)
	}

	return nil
}
