package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// DefaultThreshold is the misclassification rate above which retraining starts.
const DefaultThreshold = 0.05

// FeedbackSource returns human review results for a window.
type FeedbackSource interface {
	GetFeedback(ctx context.Context, window model.Window) (model.FeedbackSummary, error)
}

// Trainer starts a retraining pipeline and returns its id.
type Trainer interface {
	TriggerRetraining(ctx context.Context, summary model.FeedbackSummary) (string, error)
}

// Deployer rolls out the model produced by a pipeline and returns its id.
type Deployer interface {
	Deploy(ctx context.Context, pipelineID string) (string, error)
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithThreshold sets the drift threshold. Default: 0.05.
func WithThreshold(th float64) EvaluatorOption {
	return func(e *Evaluator) { e.threshold = th }
}

// WithMinSamples sets how many reviewed reports are needed before the rate
// is trusted. Default: 1.
func WithMinSamples(n int) EvaluatorOption {
	return func(e *Evaluator) { e.minSamples = n }
}

// WithEvaluatorClock overrides time.Now for CheckedAt.
func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// Evaluator decides whether feedback warrants retraining and, if so, drives
// training then deployment. Neither step is retried.
type Evaluator struct {
	trainer    Trainer
	deployer   Deployer
	threshold  float64
	minSamples int
	now        func() time.Time
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(trainer Trainer, deployer Deployer, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		trainer:    trainer,
		deployer:   deployer,
		threshold:  DefaultThreshold,
		minSamples: 1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured drift threshold.
func (e *Evaluator) Threshold() float64 { return e.threshold }

// ShouldRetrain reports whether s exceeds the drift threshold.
func (e *Evaluator) ShouldRetrain(s model.FeedbackSummary) bool {
	return s.ReviewedCount >= e.minSamples && s.Rate() > e.threshold
}

// Evaluate applies the drift policy to s. On a training failure the outcome
// is Triggered with no ids and the error matches model.ErrTraining; on a
// deployment failure the outcome keeps PipelineID and the error matches
// model.ErrDeployment.
func (e *Evaluator) Evaluate(ctx context.Context, s model.FeedbackSummary) (model.RetrainingOutcome, error) {
	out := model.RetrainingOutcome{Rate: s.Rate(), CheckedAt: e.now()}
	if !e.ShouldRetrain(s) {
		return out, nil
	}
	out.Triggered = true

	pid, err := e.trainer.TriggerRetraining(ctx, s)
	if err == nil && pid == "" {
		err = errors.New("trainer returned an empty pipeline id")
	}
	if err != nil {
		return out, wrap(model.ErrTraining, err)
	}
	out.PipelineID = pid

	mid, err := e.deployer.Deploy(ctx, pid)
	if err == nil && mid == "" {
		err = errors.New("deployer returned an empty model id")
	}
	if err != nil {
		return out, wrap(model.ErrDeployment, err)
	}
	out.DeployedModelID = mid
	return out, nil
}

func wrap(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
