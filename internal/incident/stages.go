package incident

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/pipeline"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

// Stage names.
const (
	StageCapture  = "capture"
	StageClassify = "classify"
	StageReport   = "report"
)

// ArtifactPolicy decides what happens to a clip classified as the sentinel.
type ArtifactPolicy string

const (
	RetainArtifacts ArtifactPolicy = "retain"
	DeleteArtifacts ArtifactPolicy = "delete"
)

// Trigger is the input of a run. It carries nothing today; Capture decides
// what to record.
type Trigger struct{}

// Classifier is the Classify stage's collaborator. engine.Engine satisfies it.
type Classifier interface {
	Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error)
}

// CaptureStage wraps a Capturer.
func CaptureStage(c capture.Capturer) pipeline.Stage {
	return pipeline.Typed(StageCapture, func(ctx context.Context, _ Trigger) (model.ArtifactRef, error) {
		ref, err := c.Capture(ctx)
		if err != nil {
			return "", capture.Wrap(err)
		}
		if ref == "" {
			return "", capture.Wrap(fmt.Errorf("capturer returned an empty reference"))
		}
		return ref, nil
	})
}

// ClassifyStage wraps a gated classifier.
func ClassifyStage(c Classifier) pipeline.Stage {
	return pipeline.Typed(StageClassify, c.Classify)
}

// Reporter is the Report stage: it submits non-sentinel classifications to
// the central server and releases the clip.
type Reporter struct {
	tx     transmit.Transmitter
	store  artifact.Store
	siteID string
	policy ArtifactPolicy
	now    func() time.Time
	logger *slog.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithArtifactPolicy sets the sentinel artifact policy. Default: retain.
func WithArtifactPolicy(p ArtifactPolicy) ReporterOption {
	return func(r *Reporter) { r.policy = p }
}

// WithReporterClock overrides time.Now for ReportedAt.
func WithReporterClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// WithReporterLogger sets the logger. Defaults to slog.Default().
func WithReporterLogger(l *slog.Logger) ReporterOption {
	return func(r *Reporter) { r.logger = l }
}

// NewReporter creates a Reporter for siteID.
func NewReporter(tx transmit.Transmitter, store artifact.Store, siteID string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		tx:     tx,
		store:  store,
		siteID: siteID,
		policy: RetainArtifacts,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stage returns the Reporter as a pipeline stage.
func (r *Reporter) Stage() pipeline.Stage {
	return pipeline.Typed(StageReport, r.Report)
}

// Report submits rec exactly once. The sentinel never reaches the
// transmitter. After a successful submit the clip is deleted; a failed delete
// is logged and does not undo the report.
func (r *Reporter) Report(ctx context.Context, rec model.ClassificationRecord) (model.ReportResult, error) {
	if rec.ViolationType.IsSentinel() {
		if r.policy == DeleteArtifacts {
			r.release(ctx, rec.Artifact)
		}
		return model.ReportResult{NoAction: true, Reason: model.NoActionReason}, nil
	}

	id, err := r.tx.Submit(ctx, rec, r.siteID)
	if err != nil {
		return model.ReportResult{}, transmit.Wrap(err)
	}
	if id == "" {
		return model.ReportResult{}, transmit.Wrap(fmt.Errorf("central server returned an empty confirmation id"))
	}

	r.release(ctx, rec.Artifact)

	return model.ReportResult{Report: &model.ViolationReport{
		Classification: rec,
		SiteID:         r.siteID,
		ConfirmationID: id,
		ReportedAt:     r.now(),
	}}, nil
}

func (r *Reporter) release(ctx context.Context, ref model.ArtifactRef) {
	if err := r.store.Delete(ctx, ref); err != nil {
		r.logger.Warn("artifact not deleted", "artifact", ref, "error", err)
		return
	}
	r.logger.Debug("artifact deleted", "artifact", ref)
}
