// Package ipresolve discovers the host's public IP addresses by querying
// HTTPS echo services that answer with the caller's address.
package ipresolve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/httputil"
)

// Default echo endpoints. Each answers for one address family only.
const (
	DefaultIPv4Endpoint = "https://4.kritzl.dev"
	DefaultIPv6Endpoint = "https://6.kritzl.dev"
)

// ErrUnreachable indicates the echo service could not be contacted at all.
// The host simply may not have connectivity for that address family, so
// callers treat this as "no address" rather than a failure.
var ErrUnreachable = errors.New("ip echo service unreachable")

// ErrNoAddresses is returned when neither address family could be resolved.
var ErrNoAddresses = errors.New("no public IP addresses could be determined")

// Addrs holds the resolved public addresses. Either may be the zero Addr
// when the host lacks connectivity for that family.
type Addrs struct {
	V4 netip.Addr
	V6 netip.Addr
}

// HasV4 reports whether an IPv4 address was resolved.
func (a Addrs) HasV4() bool { return a.V4.IsValid() }

// HasV6 reports whether an IPv6 address was resolved.
func (a Addrs) HasV6() bool { return a.V6.IsValid() }

// Resolver queries public-IP echo services.
type Resolver struct {
	ipv4Endpoint string
	ipv6Endpoint string
	httpClient   *http.Client
	logger       *slog.Logger
	observe      func(family string, d time.Duration)
}

// Option is a functional option for configuring the Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEndpoints overrides the echo service URLs. Empty values keep the
// defaults.
func WithEndpoints(ipv4, ipv6 string) Option {
	return func(r *Resolver) {
		if ipv4 != "" {
			r.ipv4Endpoint = ipv4
		}
		if ipv6 != "" {
			r.ipv6Endpoint = ipv6
		}
	}
}

// WithObserver registers a callback that receives the duration of every
// lookup, keyed by address family ("ipv4" or "ipv6"). Used for metrics.
func WithObserver(observe func(family string, d time.Duration)) Option {
	return func(r *Resolver) {
		r.observe = observe
	}
}

// New creates a Resolver with the given options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		ipv4Endpoint: DefaultIPv4Endpoint,
		ipv6Endpoint: DefaultIPv6Endpoint,
		httpClient:   httputil.DefaultClient(),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve queries both echo endpoints and returns whichever addresses the
// host has. An unreachable endpoint means the host lacks that family and is
// tolerated; a reachable endpoint returning garbage is an error. Both
// families missing wraps ErrNoAddresses.
func (r *Resolver) Resolve(ctx context.Context) (Addrs, error) {
	var addrs Addrs

	v4, err := r.ResolveV4(ctx)
	switch {
	case err == nil:
		addrs.V4 = v4
	case errors.Is(err, ErrUnreachable):
		r.logger.Debug("no IPv4 connectivity", slog.String("error", err.Error()))
	default:
		return Addrs{}, err
	}

	v6, err := r.ResolveV6(ctx)
	switch {
	case err == nil:
		addrs.V6 = v6
	case errors.Is(err, ErrUnreachable):
		r.logger.Debug("no IPv6 connectivity", slog.String("error", err.Error()))
	default:
		return Addrs{}, err
	}

	switch {
	case addrs.HasV4() && addrs.HasV6():
		r.logger.Info("host has dual-stack connectivity",
			slog.String("ipv4", addrs.V4.String()),
			slog.String("ipv6", addrs.V6.String()),
		)
	case addrs.HasV4():
		r.logger.Info("host has IPv4 connectivity but no IPv6",
			slog.String("ipv4", addrs.V4.String()),
		)
	case addrs.HasV6():
		r.logger.Info("host has IPv6 connectivity but no IPv4",
			slog.String("ipv6", addrs.V6.String()),
		)
	default:
		return Addrs{}, ErrNoAddresses
	}

	return addrs, nil
}

// ResolveV4 queries the IPv4 echo endpoint.
func (r *Resolver) ResolveV4(ctx context.Context) (netip.Addr, error) {
	defer r.observeSince("ipv4", time.Now())
	addr, err := r.lookup(ctx, r.ipv4Endpoint)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() && !addr.Is4In6() {
		return netip.Addr{}, fmt.Errorf("%s did not return a well-formed IPv4 address: got %s", r.ipv4Endpoint, addr)
	}
	return addr.Unmap(), nil
}

// ResolveV6 queries the IPv6 echo endpoint.
func (r *Resolver) ResolveV6(ctx context.Context) (netip.Addr, error) {
	defer r.observeSince("ipv6", time.Now())
	addr, err := r.lookup(ctx, r.ipv6Endpoint)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is6() || addr.Is4In6() {
		return netip.Addr{}, fmt.Errorf("%s did not return a well-formed IPv6 address: got %s", r.ipv6Endpoint, addr)
	}
	return addr, nil
}

func (r *Resolver) observeSince(family string, start time.Time) {
	if r.observe != nil {
		r.observe(family, time.Since(start))
	}
}

// lookup performs one GET against an echo endpoint and parses the first
// line of the body as an IP address.
func (r *Resolver) lookup(ctx context.Context, endpoint string) (netip.Addr, error) {
	r.logger.Debug("fetching public IP", slog.String("endpoint", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("%s returned %s", endpoint, resp.Status)
	}

	line, _ := bufio.NewReader(resp.Body).ReadString('\n')
	addr, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parsing IP address from %s response: %w", endpoint, err)
	}

	return addr, nil
}
