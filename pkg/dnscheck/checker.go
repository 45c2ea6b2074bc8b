// Package dnscheck verifies pushed DNS records by querying a zone's
// authoritative nameservers directly.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DefaultTimeout bounds a single DNS exchange.
const DefaultTimeout = 5 * time.Second

// ErrNoNameservers is returned when the zone's NS set cannot be resolved.
var ErrNoNameservers = errors.New("no authoritative nameservers found")

// Result holds the answers an authoritative server returned for a record.
type Result struct {
	// Server is the nameserver that was queried, as host:port.
	Server string

	// A and AAAA are the address answers, in response order.
	A    []netip.Addr
	AAAA []netip.Addr
}

// Contains reports whether addr appears among the answers.
func (r *Result) Contains(addr netip.Addr) bool {
	for _, a := range r.A {
		if a == addr {
			return true
		}
	}
	for _, a := range r.AAAA {
		if a == addr {
			return true
		}
	}
	return false
}

// Checker queries authoritative nameservers for record values.
type Checker struct {
	dnsClient *dns.Client
	server    string // optional fixed server (host:port), used in tests
	logger    *slog.Logger
}

// Option is a functional option for configuring the Checker.
type Option func(*Checker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithServer fixes the nameserver to query (host:port), skipping NS
// discovery. Useful for testing.
func WithServer(server string) Option {
	return func(c *Checker) {
		c.server = server
	}
}

// WithTimeout sets the per-exchange timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.dnsClient.Timeout = timeout
		}
	}
}

// New creates a Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		dnsClient: &dns.Client{
			Timeout: DefaultTimeout,
			Net:     "udp",
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lookup queries one of the zone's authoritative nameservers for the A and
// AAAA records of name. The name must be fully qualified (with or without
// the trailing dot).
func (c *Checker) Lookup(ctx context.Context, zone, name string) (*Result, error) {
	server := c.server
	if server == "" {
		var err error
		server, err = c.findNameserver(ctx, zone)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{Server: server}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answers, err := c.query(ctx, server, dns.Fqdn(name), qtype)
		if err != nil {
			return nil, err
		}
		for _, rr := range answers {
			switch record := rr.(type) {
			case *dns.A:
				if addr, ok := netip.AddrFromSlice(record.A.To4()); ok {
					result.A = append(result.A, addr)
				}
			case *dns.AAAA:
				if addr, ok := netip.AddrFromSlice(record.AAAA); ok {
					result.AAAA = append(result.AAAA, addr)
				}
			}
		}
	}

	c.logger.Debug("authoritative lookup complete",
		slog.String("server", server),
		slog.String("name", name),
		slog.Int("a", len(result.A)),
		slog.Int("aaaa", len(result.AAAA)),
	)

	return result, nil
}

// findNameserver resolves the zone's NS set and returns the first
// nameserver as host:port.
func (c *Checker) findNameserver(ctx context.Context, zone string) (string, error) {
	records, err := net.DefaultResolver.LookupNS(ctx, zone)
	if err != nil {
		return "", fmt.Errorf("%w for zone %q: %w", ErrNoNameservers, zone, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w for zone %q", ErrNoNameservers, zone)
	}

	return net.JoinHostPort(records[0].Host, "53"), nil
}

// query performs one DNS exchange, falling back to TCP on truncation.
func (c *Checker) query(ctx context.Context, server, fqdn string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = false

	resp, _, err := c.dnsClient.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("querying %s for %s: %w", server, fqdn, err)
	}

	if resp.Truncated {
		tcpClient := &dns.Client{Timeout: c.dnsClient.Timeout, Net: "tcp"}
		resp, _, err = tcpClient.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, fmt.Errorf("querying %s for %s over tcp: %w", server, fqdn, err)
		}
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("server %s returned %s for %s", server, dns.RcodeToString[resp.Rcode], fqdn)
	}

	return resp.Answer, nil
}
