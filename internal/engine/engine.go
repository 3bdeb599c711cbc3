package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/trafficwatch/internal/engine/classifier"
	"github.com/crimson-sun/trafficwatch/internal/engine/gate"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Engine runs the classifier and holds its output to the gate.
type Engine struct {
	classifier classifier.Classifier
	gate       *gate.Gate
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine with the provided components.
func New(cls classifier.Classifier, g *gate.Gate, opts ...Option) *Engine {
	e := &Engine{
		classifier: cls,
		gate:       g,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify labels the clip at ref. A record that fails the gate is never
// returned: the error matches model.ErrValidation.
func (e *Engine) Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error) {
	if ref == "" {
		return model.ClassificationRecord{}, fmt.Errorf("%w: empty artifact reference", model.ErrInvalidInput)
	}
	rec, err := e.classifier.Classify(ctx, ref)
	if err != nil {
		return model.ClassificationRecord{}, classifier.Wrap(err)
	}
	if err := e.gate.Validate(rec); err != nil {
		e.logger.Warn("classification rejected",
			"artifact", ref,
			"violation_type", rec.ViolationType,
			"confidence", rec.ConfidenceScore,
			"error", err,
		)
		return model.ClassificationRecord{}, fmt.Errorf("engine: %w", err)
	}
	e.logger.Debug("classified",
		"artifact", ref,
		"violation_type", rec.ViolationType,
		"confidence", rec.ConfidenceScore,
	)
	return rec, nil
}
