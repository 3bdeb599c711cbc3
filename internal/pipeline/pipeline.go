package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

const defaultStageTimeout = 30 * time.Second

// Stage is one step of a run. Execute receives the previous stage's full
// output (or the run input for the first stage) and returns its own.
type Stage interface {
	Name() string
	Execute(ctx context.Context, input any) (any, error)
}

type typed[In, Out any] struct {
	name string
	fn   func(context.Context, In) (Out, error)
}

// Typed adapts a typed function to a Stage. An input of the wrong type fails
// with an error matching model.ErrInvalidInput.
func Typed[In, Out any](name string, fn func(context.Context, In) (Out, error)) Stage {
	return typed[In, Out]{name: name, fn: fn}
}

func (s typed[In, Out]) Name() string { return s.name }

func (s typed[In, Out]) Execute(ctx context.Context, input any) (any, error) {
	in, ok := input.(In)
	if !ok {
		var want In
		return nil, fmt.Errorf("%w: stage %s wants %T, got %T", model.ErrInvalidInput, s.name, want, input)
	}
	return s.fn(ctx, in)
}

// StageError reports which stage aborted a run.
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Observer is notified after every stage. err is nil on success.
type Observer interface {
	StageDone(stage string, elapsed time.Duration, err error)
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithStageTimeout bounds each stage. Zero or negative disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(s *Sequencer) { s.stageTimeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observer = o }
}

// Sequencer runs stages strictly one after another. The first failure aborts
// the run; nothing is retried.
type Sequencer struct {
	stageTimeout time.Duration
	logger       *slog.Logger
	observer     Observer
}

// New creates a Sequencer.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		stageTimeout: defaultStageTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run feeds input through stages and returns the last stage's output. On
// failure the returned value is nil and the error is a *StageError. An empty
// stage list returns input unchanged.
func (s *Sequencer) Run(ctx context.Context, stages []Stage, input any) (any, error) {
	cur := input
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: st.Name(), Index: i, Err: err}
		}
		out, err := s.runStage(ctx, st, cur)
		if err != nil {
			return nil, &StageError{Stage: st.Name(), Index: i, Err: err}
		}
		cur = out
	}
	return cur, nil
}

func (s *Sequencer) runStage(ctx context.Context, st Stage, input any) (any, error) {
	if s.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stageTimeout)
		defer cancel()
	}

	s.logger.Debug("stage started", "stage", st.Name())
	start := time.Now()
	out, err := st.Execute(ctx, input)
	elapsed := time.Since(start)

	// A stage that ignores its context but returns after the deadline has
	// still overrun.
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("exceeded %s timeout: %w", s.stageTimeout, err)
	}

	if s.observer != nil {
		s.observer.StageDone(st.Name(), elapsed, err)
	}
	if err != nil {
		s.logger.Warn("stage failed", "stage", st.Name(), "elapsed", elapsed, "error", err)
		return nil, err
	}
	s.logger.Debug("stage finished", "stage", st.Name(), "elapsed", elapsed)
	return out, nil
}
