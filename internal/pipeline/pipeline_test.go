package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// --- mocks ---

// recorder tracks the order stages ran in.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func appendStage(rec *recorder, name, suffix string) Stage {
	return Typed(name, func(ctx context.Context, in string) (string, error) {
		rec.add(name)
		return in + suffix, nil
	})
}

type observed struct {
	stage string
	err   error
}

type mockObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (o *mockObserver) StageDone(stage string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observed{stage, err})
}

// --- tests ---

func TestRunChainsOutputs(t *testing.T) {
	rec := &recorder{}
	stages := []Stage{
		appendStage(rec, "capture", "-a"),
		appendStage(rec, "classify", "-b"),
		appendStage(rec, "report", "-c"),
	}

	out, err := New().Run(context.Background(), stages, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "x-a-b-c" {
		t.Errorf("out = %v, want x-a-b-c", out)
	}
	if strings.Join(rec.calls, ",") != "capture,classify,report" {
		t.Errorf("order = %v", rec.calls)
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("camera offline")
	stages := []Stage{
		Typed("capture", func(ctx context.Context, in string) (string, error) {
			rec.add("capture")
			return "", boom
		}),
		appendStage(rec, "classify", "-b"),
	}

	out, err := New().Run(context.Background(), stages, "x")
	if out != nil {
		t.Errorf("partial output returned: %v", out)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != "capture" || se.Index != 0 {
		t.Errorf("StageError = %+v", se)
	}
	if len(rec.calls) != 1 {
		t.Errorf("stages after failure ran: %v", rec.calls)
	}
}

func TestRunTypeMismatch(t *testing.T) {
	stages := []Stage{
		Typed("produce", func(ctx context.Context, in string) (int, error) { return 1, nil }),
		Typed("consume", func(ctx context.Context, in string) (string, error) { return in, nil }),
	}
	_, err := New().Run(context.Background(), stages, "x")
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var se *StageError
	if errors.As(err, &se) && se.Stage != "consume" {
		t.Errorf("failing stage = %q, want consume", se.Stage)
	}
}

func TestRunStageTimeout(t *testing.T) {
	stages := []Stage{
		Typed("slow", func(ctx context.Context, in string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
	}
	start := time.Now()
	_, err := New(WithStageTimeout(20*time.Millisecond)).Run(context.Background(), stages, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}
}

func TestRunStageIgnoringContextStillTimesOut(t *testing.T) {
	stages := []Stage{
		Typed("stubborn", func(ctx context.Context, in string) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return in, nil
		}),
	}
	out, err := New(WithStageTimeout(5*time.Millisecond)).Run(context.Background(), stages, "x")
	if !errors.Is(err, context.DeadlineExceeded) || out != nil {
		t.Fatalf("expected timeout and no output, got %v, %v", out, err)
	}
}

func TestRunCancelledBeforeNextStage(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	stages := []Stage{
		Typed("first", func(_ context.Context, in string) (string, error) {
			rec.add("first")
			cancel()
			return in, nil
		}),
		appendStage(rec, "second", "-b"),
	}
	_, err := New(WithStageTimeout(0)).Run(ctx, stages, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if strings.Join(rec.calls, ",") != "first" {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestRunEmptyStages(t *testing.T) {
	out, err := New().Run(context.Background(), nil, "x")
	if err != nil || out != "x" {
		t.Fatalf("Run(nil) = %v, %v; want x, nil", out, err)
	}
}

func TestObserverSeesEveryStage(t *testing.T) {
	obs := &mockObserver{}
	boom := errors.New("boom")
	stages := []Stage{
		Typed("ok", func(_ context.Context, in string) (string, error) { return in, nil }),
		Typed("bad", func(_ context.Context, in string) (string, error) { return "", boom }),
	}
	New(WithObserver(obs)).Run(context.Background(), stages, "x")

	if len(obs.seen) != 2 {
		t.Fatalf("observer saw %d stages, want 2", len(obs.seen))
	}
	if obs.seen[0].stage != "ok" || obs.seen[0].err != nil {
		t.Errorf("first = %+v", obs.seen[0])
	}
	if obs.seen[1].stage != "bad" || !errors.Is(obs.seen[1].err, boom) {
		t.Errorf("second = %+v", obs.seen[1])
	}
}
