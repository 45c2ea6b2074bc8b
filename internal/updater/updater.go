// Package updater implements the per-target update pipeline: zone lookup,
// record filtering, address selection per family, and the write itself.
package updater

import (
	"context"
	"log/slog"
	"time"

	"gitlab.bluewillows.net/root/hetzner-ddns/internal/config"
	"gitlab.bluewillows.net/root/hetzner-ddns/internal/metrics"
	"gitlab.bluewillows.net/root/hetzner-ddns/pkg/ipresolve"
	"gitlab.bluewillows.net/root/hetzner-ddns/providers/hetzner"
)

// Client is the subset of the Hetzner API client the updater needs.
type Client interface {
	GetZone(ctx context.Context, name string) (*hetzner.Zone, error)
	ListRecords(ctx context.Context, zoneID string) ([]hetzner.Record, error)
	UpdateRecord(ctx context.Context, recordID string, data hetzner.UpdateRecord) error
}

// Updater applies the resolved public addresses to configured targets.
type Updater struct {
	client Client
	ttl    int
	dryRun bool
	logger *slog.Logger
}

// Option is a functional option for configuring the Updater.
type Option func(*Updater)

// WithTTL sets the TTL written on updated records.
func WithTTL(ttl int) Option {
	return func(u *Updater) {
		if ttl > 0 {
			u.ttl = ttl
		}
	}
}

// WithDryRun enables planning without writing.
func WithDryRun(dryRun bool) Option {
	return func(u *Updater) {
		u.dryRun = dryRun
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// New creates an Updater backed by the given API client.
func New(client Client, opts ...Option) *Updater {
	u := &Updater{
		client: client,
		ttl:    config.DefaultTTL,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Run processes every target in order. A failing target never aborts the
// rest; all failures are collected on the Result.
func (u *Updater) Run(ctx context.Context, targets []config.Target, addrs ipresolve.Addrs) *Result {
	started := time.Now()
	result := &Result{}

	for _, target := range targets {
		actions := u.processTarget(ctx, target, addrs)
		for _, a := range actions {
			recordType := a.RecordType
			if recordType == "" {
				recordType = "none"
			}
			metrics.RecordUpdatesTotal.WithLabelValues(a.Target.Zone, recordType, string(a.Status)).Inc()
		}
		result.Actions = append(result.Actions, actions...)
	}

	result.duration = time.Since(started)
	return result
}

// processTarget updates all matching records of one target.
func (u *Updater) processTarget(ctx context.Context, target config.Target, addrs ipresolve.Addrs) []Action {
	u.logger.Debug("processing target",
		slog.String("zone", target.Zone),
		slog.String("record", target.Record),
	)

	zone, err := u.client.GetZone(ctx, target.Zone)
	if err != nil {
		return []Action{{Target: target, Status: StatusFailed, Reason: err.Error()}}
	}

	records, err := u.client.ListRecords(ctx, zone.ID)
	if err != nil {
		return []Action{{Target: target, Status: StatusFailed, Reason: err.Error()}}
	}

	matched := filterRecords(records, target.Record)
	if len(matched) == 0 {
		u.logger.Warn("no matching A/AAAA records in zone",
			slog.String("zone", target.Zone),
			slog.String("record", target.Record),
		)
		return []Action{{Target: target, Status: StatusSkipped, Reason: "no matching A/AAAA records"}}
	}

	var actions []Action
	for _, record := range matched {
		actions = append(actions, u.updateRecord(ctx, target, record, addrs))
	}

	return actions
}

// filterRecords keeps the records with the wanted name that are A or AAAA.
// Other record types sharing the name are never touched.
func filterRecords(records []hetzner.Record, name string) []hetzner.Record {
	var matched []hetzner.Record
	for _, r := range records {
		if r.Name != name {
			continue
		}
		if r.Type != "A" && r.Type != "AAAA" {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}

// updateRecord writes the address for one record's family, skipping when the
// host lacks that family or the record already holds the value.
func (u *Updater) updateRecord(ctx context.Context, target config.Target, record hetzner.Record, addrs ipresolve.Addrs) Action {
	action := Action{
		Target:     target,
		RecordID:   record.ID,
		RecordType: record.Type,
	}

	var value string
	switch record.Type {
	case "A":
		if !addrs.HasV4() {
			u.logger.Warn("cannot update A record because host has no IPv4 connectivity",
				slog.String("record", record.Name),
				slog.String("zone", target.Zone),
			)
			action.Status = StatusSkipped
			action.Reason = "no IPv4 connectivity"
			return action
		}
		value = addrs.V4.String()
	case "AAAA":
		if !addrs.HasV6() {
			u.logger.Warn("cannot update AAAA record because host has no IPv6 connectivity",
				slog.String("record", record.Name),
				slog.String("zone", target.Zone),
			)
			action.Status = StatusSkipped
			action.Reason = "no IPv6 connectivity"
			return action
		}
		value = addrs.V6.String()
	}
	action.Value = value

	if record.Value == value {
		u.logger.Debug("record already up to date",
			slog.String("record", record.Name),
			slog.String("type", record.Type),
			slog.String("value", value),
		)
		action.Status = StatusSkipped
		action.Reason = "already up to date"
		return action
	}

	if u.dryRun {
		u.logger.Info("dry-run: would update record",
			slog.String("record", record.Name),
			slog.String("type", record.Type),
			slog.String("old", record.Value),
			slog.String("new", value),
		)
		action.Status = StatusUpdated
		action.DryRun = true
		return action
	}

	u.logger.Info("updating record",
		slog.String("record", record.Name),
		slog.String("type", record.Type),
		slog.String("old", record.Value),
		slog.String("new", value),
	)

	err := u.client.UpdateRecord(ctx, record.ID, hetzner.UpdateRecord{
		Name:   record.Name,
		TTL:    u.ttl,
		Type:   record.Type,
		Value:  value,
		ZoneID: record.ZoneID,
	})
	if err != nil {
		action.Status = StatusFailed
		action.Reason = err.Error()
		return action
	}

	action.Status = StatusUpdated
	return action
}
