// hetzner-ddns keeps DNS records at Hetzner DNS pointed at this host's
// public IP addresses. It resolves the host's IPv4/IPv6 addresses through
// HTTPS echo services, then updates the matching A/AAAA records for every
// configured target. One shot per invocation; run it from a scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/hetzner-ddns/internal/config"
	"gitlab.bluewillows.net/root/hetzner-ddns/internal/metrics"
	"gitlab.bluewillows.net/root/hetzner-ddns/internal/updater"
	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/dnscheck"
	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/httputil"
	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/ipresolve"
	"gitlab.bluewillows.net/root/hetzner-ddns/providers/hetzner"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

type options struct {
	configPath  string
	verbose     bool
	dryRun      bool
	verify      bool
	metricsFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "hetzner-ddns",
		Short:         "DynDNS client for Hetzner DNS",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "emit more verbose output")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "resolve and plan, but write nothing")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "confirm updates against the zone's authoritative nameservers")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path on exit")
	cmd.MarkFlagRequired("config")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	// Load configuration first; nothing touches the network before this
	// succeeds.
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("hetzner-ddns starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.Bool("dry_run", opts.dryRun),
		slog.Any("config", cfg),
	)

	if len(cfg.Targets) == 0 {
		logger.Warn("configuration has no targets; nothing to update")
	}

	httpClient := httputil.NewClient(&httputil.ClientConfig{Logger: logger})
	httpClient.Transport = metrics.InstrumentRoundTripper(httpClient.Transport)

	apiClient, err := hetzner.New(&hetzner.Config{Token: cfg.APIToken},
		hetzner.WithHTTPClient(httpClient),
		hetzner.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	// Fail before resolving anything if the token is unusable.
	if err := apiClient.Ping(ctx); err != nil {
		return fmt.Errorf("checking API access: %w", err)
	}

	resolver := ipresolve.New(
		ipresolve.WithEndpoints(cfg.IPv4Endpoint, cfg.IPv6Endpoint),
		ipresolve.WithLogger(logger),
		ipresolve.WithObserver(func(family string, d time.Duration) {
			metrics.IPLookupDuration.WithLabelValues(family).Observe(d.Seconds())
		}),
	)

	addrs, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving public IP: %w", err)
	}

	upd := updater.New(apiClient,
		updater.WithTTL(cfg.TTL),
		updater.WithDryRun(opts.dryRun),
		updater.WithLogger(logger),
	)
	result := upd.Run(ctx, cfg.Targets, addrs)

	logger.Info("run complete",
		slog.Int("updated", result.UpdatedCount()),
		slog.Int("skipped", result.SkippedCount()),
		slog.Int("failed", result.FailedCount()),
		slog.Duration("duration", result.Duration()),
	)

	if opts.verify && !opts.dryRun {
		verifyTargets(ctx, cfg, addrs, logger)
	}

	metrics.LastRunTimestamp.SetToCurrentTime()
	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("writing metrics textfile failed", slog.String("error", err.Error()))
		}
	}

	return result.Err()
}

// verifyTargets checks each target against the zone's authoritative
// nameservers. Mismatches are warnings, not failures: authoritative
// visibility can lag the API write.
func verifyTargets(ctx context.Context, cfg *config.Config, addrs ipresolve.Addrs, logger *slog.Logger) {
	checker := dnscheck.New(dnscheck.WithLogger(logger))

	for _, target := range cfg.Targets {
		result, err := checker.Lookup(ctx, target.Zone, target.FQDN())
		if err != nil {
			logger.Warn("verification lookup failed",
				slog.String("target", target.FQDN()),
				slog.String("error", err.Error()),
			)
			continue
		}

		ok := true
		if addrs.HasV4() && len(result.A) > 0 && !result.Contains(addrs.V4) {
			ok = false
		}
		if addrs.HasV6() && len(result.AAAA) > 0 && !result.Contains(addrs.V6) {
			ok = false
		}

		if ok {
			logger.Info("verified against authoritative nameserver",
				slog.String("target", target.FQDN()),
				slog.String("server", result.Server),
			)
		} else {
			logger.Warn("authoritative answer does not match pushed value yet",
				slog.String("target", target.FQDN()),
				slog.String("server", result.Server),
			)
		}
	}
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
