package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/metrics"
	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/sink"
)

// ErrFeedback marks a failure to read feedback. No outcome is produced.
var ErrFeedback = errors.New("feedback unavailable")

// Recorder receives lifecycle metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	CheckFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) CheckFinished(string) {}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithWindow sets the feedback window. Default: 24h.
func WithWindow(d time.Duration) ManagerOption {
	return func(m *Manager) { m.window = d }
}

// WithLedger records every outcome to s.
func WithLedger(s sink.Sink) ManagerOption {
	return func(m *Manager) { m.ledger = s }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) { m.rec = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now for the feedback window.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager runs one lifecycle check: read feedback, evaluate, record.
type Manager struct {
	source    FeedbackSource
	evaluator *Evaluator
	window    time.Duration
	ledger    sink.Sink
	rec       Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(source FeedbackSource, evaluator *Evaluator, opts ...ManagerOption) *Manager {
	m := &Manager{
		source:    source,
		evaluator: evaluator,
		window:    24 * time.Hour,
		ledger:    sink.Discard{},
		rec:       nopRecorder{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check runs one lifecycle evaluation over the most recent window. Partial
// outcomes from training or deployment failures are still recorded.
func (m *Manager) Check(ctx context.Context) (model.RetrainingOutcome, error) {
	window := model.LastWindow(m.now(), m.window)
	summary, err := m.source.GetFeedback(ctx, window)
	if err != nil {
		m.rec.CheckFinished(metrics.CheckFeedbackFailed)
		return model.RetrainingOutcome{}, fmt.Errorf("lifecycle: %w: %w", ErrFeedback, err)
	}

	m.logger.Info("feedback collected",
		"misclassifications", summary.MisclassificationCount,
		"reviewed", summary.ReviewedCount,
		"rate", summary.Rate(),
		"threshold", m.evaluator.Threshold(),
	)

	out, err := m.evaluator.Evaluate(ctx, summary)
	m.rec.CheckFinished(checkOutcome(out, err))
	if err != nil {
		m.logger.Error("lifecycle check failed", "summary", out.Summary(), "error", err)
		return out, fmt.Errorf("lifecycle: %w", err)
	}
	if werr := m.ledger.Write(ctx, sink.OutcomeEntry(out)); werr != nil {
		m.logger.Error("ledger write failed", "error", werr)
	}
	m.logger.Info(out.Summary(),
		"triggered", out.Triggered,
		"pipeline_id", out.PipelineID,
		"model_id", out.DeployedModelID,
	)
	return out, nil
}

func checkOutcome(out model.RetrainingOutcome, err error) string {
	switch {
	case errors.Is(err, model.ErrTraining):
		return metrics.CheckTrainingFailed
	case errors.Is(err, model.ErrDeployment):
		return metrics.CheckDeploymentFailed
	case !out.Triggered:
		return metrics.CheckNotTriggered
	default:
		return metrics.CheckDeployed
	}
}
