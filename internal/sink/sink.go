package sink

import (
	"context"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Kind distinguishes ledger entries.
type Kind string

const (
	KindReport  Kind = "violation_report"
	KindOutcome Kind = "retraining_outcome"
)

// Entry is one ledger line. Exactly one of Report or Outcome is set.
type Entry struct {
	Kind    Kind                     `json:"kind"`
	RunID   string                   `json:"run_id,omitempty"`
	At      time.Time                `json:"at"`
	Report  *model.ViolationReport   `json:"report,omitempty"`
	Outcome *model.RetrainingOutcome `json:"outcome,omitempty"`
	Summary string                   `json:"summary,omitempty"`
}

// Sink is an append-only destination for ledger entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// ReportEntry records an accepted violation report.
func ReportEntry(runID string, r model.ViolationReport) Entry {
	return Entry{Kind: KindReport, RunID: runID, At: r.ReportedAt, Report: &r}
}

// OutcomeEntry records a lifecycle outcome with its operator summary.
func OutcomeEntry(o model.RetrainingOutcome) Entry {
	return Entry{Kind: KindOutcome, At: o.CheckedAt, Outcome: &o, Summary: o.Summary()}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Write(context.Context, Entry) error { return nil }
func (Discard) Close() error                       { return nil }
