package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/metrics"
	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/pipeline"
	"github.com/crimson-sun/trafficwatch/internal/sink"
)

// Recorder receives run metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RunFinished(outcome string)
	ViolationReported(violationType string)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string)       {}
func (nopRecorder) ViolationReported(string) {}

// Stages builds the Capture → Classify → Report chain.
func Stages(c capture.Capturer, cls Classifier, r *Reporter) []pipeline.Stage {
	return []pipeline.Stage{CaptureStage(c), ClassifyStage(cls), r.Stage()}
}

// Option configures a Runner.
type Option func(*Runner)

// WithSequencer sets the sequencer. Default: pipeline.New().
func WithSequencer(s *pipeline.Sequencer) Option {
	return func(r *Runner) { r.seq = s }
}

// WithLedger records accepted reports to s.
func WithLedger(s sink.Sink) Option {
	return func(r *Runner) { r.ledger = s }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.rec = rec }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner executes incident runs, one at a time.
type Runner struct {
	stages []pipeline.Stage
	siteID string
	seq    *pipeline.Sequencer
	ledger sink.Sink
	rec    Recorder
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a Runner over stages for siteID.
func NewRunner(stages []pipeline.Stage, siteID string, opts ...Option) *Runner {
	r := &Runner{
		stages: stages,
		siteID: siteID,
		ledger: sink.Discard{},
		rec:    nopRecorder{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.seq == nil {
		r.seq = pipeline.New(pipeline.WithLogger(r.logger))
	}
	return r
}

// Run executes one Capture → Classify → Report run. On failure the returned
// RunResult carries only the run id and timings.
func (r *Runner) Run(ctx context.Context) (model.RunResult, error) {
	res := model.RunResult{
		RunID:     uuid.NewString(),
		SiteID:    r.siteID,
		StartedAt: r.now(),
	}
	log := r.logger.With("run_id", res.RunID, "site_id", r.siteID)

	out, err := r.seq.Run(ctx, r.stages, Trigger{})
	res.FinishedAt = r.now()
	if err != nil {
		r.rec.RunFinished(metrics.RunFailed)
		return res, fmt.Errorf("incident %s: %w", res.RunID, err)
	}
	report, ok := out.(model.ReportResult)
	if !ok {
		r.rec.RunFinished(metrics.RunFailed)
		return res, fmt.Errorf("incident %s: %w: run produced %T", res.RunID, model.ErrInvalidInput, out)
	}
	if !report.NoAction && report.Report == nil {
		r.rec.RunFinished(metrics.RunFailed)
		return res, fmt.Errorf("incident %s: %w: report result carries neither a report nor no action", res.RunID, model.ErrInvalidInput)
	}
	res.Result = report

	if report.NoAction {
		r.rec.RunFinished(metrics.RunNoAction)
		log.Info("no violation detected", "reason", report.Reason)
		return res, nil
	}

	vr := *report.Report
	r.rec.RunFinished(metrics.RunReported)
	r.rec.ViolationReported(string(vr.Classification.ViolationType))
	log.Info("violation reported",
		"violation_type", vr.Classification.ViolationType,
		"confidence", vr.Classification.ConfidenceScore,
		"confirmation_id", vr.ConfirmationID,
	)
	if err := r.ledger.Write(ctx, sink.ReportEntry(res.RunID, vr)); err != nil {
		log.Error("ledger write failed", "confirmation_id", vr.ConfirmationID, "error", err)
	}
	return res, nil
}

// Watch runs incidents back to back every interval until ctx is cancelled.
// A run never overlaps the previous one. Failed runs are logged and the loop
// continues.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("incident: watch interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	_, err := r.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrNoFootage):
		r.logger.Debug("no footage to process")
	case ctx.Err() != nil:
		// shutting down
	default:
		r.logger.Error("incident run failed", "error", err)
	}
}
