package updater

import (
	"errors"
	"fmt"
	"time"

	"gitlab.bluewillows.net/root/hetzner-ddns/internal/config"
)

// Status represents the outcome of one record action.
type Status string

const (
	// StatusUpdated indicates the record was (or, in dry-run, would be) written.
	StatusUpdated Status = "updated"
	// StatusSkipped indicates no write was needed or possible.
	StatusSkipped Status = "skipped"
	// StatusFailed indicates the update failed.
	StatusFailed Status = "failed"
)

// Action records what happened to a single DNS record during a run.
type Action struct {
	// Target is the configured (zone, record) pair this action belongs to.
	Target config.Target

	// RecordID is the provider's record ID, when known.
	RecordID string

	// RecordType is "A" or "AAAA". Empty when the target failed before any
	// record was examined (e.g. zone lookup).
	RecordType string

	// Value is the address that was (or would have been) written.
	Value string

	// Status is the outcome.
	Status Status

	// Reason explains a skip or failure.
	Reason string

	// DryRun indicates the write was planned but not executed.
	DryRun bool
}

// String returns a human-readable representation of the action.
func (a Action) String() string {
	status := string(a.Status)
	if a.DryRun && a.Status == StatusUpdated {
		status = "dry-run"
	}

	name := a.Target.FQDN()
	if a.RecordType != "" {
		name = a.RecordType + " " + name
	}

	s := fmt.Sprintf("[%s] %s", status, name)
	if a.Value != "" {
		s += " -> " + a.Value
	}
	if a.Reason != "" {
		s += ": " + a.Reason
	}
	return s
}

// Result accumulates the actions of one run.
type Result struct {
	Actions  []Action
	duration time.Duration
}

// UpdatedCount returns the number of records written (including dry-run plans).
func (r *Result) UpdatedCount() int { return r.countStatus(StatusUpdated) }

// SkippedCount returns the number of records that needed no write.
func (r *Result) SkippedCount() int { return r.countStatus(StatusSkipped) }

// FailedCount returns the number of failed record updates.
func (r *Result) FailedCount() int { return r.countStatus(StatusFailed) }

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration { return r.duration }

func (r *Result) countStatus(status Status) int {
	n := 0
	for _, a := range r.Actions {
		if a.Status == status {
			n++
		}
	}
	return n
}

// Err joins all failures into a single error, one entry per failed action,
// each naming the target it belongs to. Returns nil when nothing failed.
func (r *Result) Err() error {
	var errs []error
	for _, a := range r.Actions {
		if a.Status != StatusFailed {
			continue
		}
		errs = append(errs, fmt.Errorf("target %s: %s", a.Target.FQDN(), a.Reason))
	}
	return errors.Join(errs...)
}
