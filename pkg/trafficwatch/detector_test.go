package trafficwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

const testModelPath = "../../models/violations.onnx"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testModelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func newSimulated(t *testing.T) *Detector {
	t.Helper()
	d, err := New(WithSeed(42), WithScratchDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestClassifySimulated(t *testing.T) {
	d := newSimulated(t)

	det, err := d.Classify(context.Background(), []byte("dummy video data"))
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	switch det.Type {
	case string(model.RedLight), string(model.StopSign):
		if !det.Violation {
			t.Errorf("Violation = false for %s", det.Type)
		}
		if det.Severity == "" {
			t.Error("Severity is empty for a violation")
		}
		if det.Confidence < 0.85 || det.Confidence > 0.99 {
			t.Errorf("Confidence = %v, want [0.85, 0.99]", det.Confidence)
		}
	case string(model.NoViolation):
		if det.Violation || det.Severity != "" {
			t.Errorf("sentinel detection = %+v", det)
		}
		if det.Confidence != 1.0 {
			t.Errorf("Confidence = %v, want 1.0", det.Confidence)
		}
	default:
		t.Fatalf("unexpected type %q", det.Type)
	}
}

func TestClassifyCleansUpStagedClip(t *testing.T) {
	dir := t.TempDir()
	d, err := New(WithSeed(1), WithScratchDir(dir))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer d.Close()

	if _, err := d.Classify(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "trafficwatch"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir has %d entries after Classify, want 0", len(entries))
	}
}

func TestClassifyFile(t *testing.T) {
	d := newSimulated(t)
	path := filepath.Join(t.TempDir(), "incident_1.mp4")
	if err := os.WriteFile(path, []byte("dummy video data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ClassifyFile(context.Background(), path); err != nil {
		t.Fatalf("ClassifyFile() error: %v", err)
	}

	if _, err := d.ClassifyFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Fatal("expected error for missing clip, got nil")
	}
}

func TestClassifyCancelled(t *testing.T) {
	d := newSimulated(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Classify(ctx, []byte("x"))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, model.ErrInference) {
		t.Errorf("err = %v", err)
	}
}

func TestConcurrentClassify(t *testing.T) {
	d := newSimulated(t)

	const goroutines = 10
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Classify(context.Background(), []byte("dummy video data")); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Classify() error: %v", err)
	}
}

func TestNewBadModelPathReturnsError(t *testing.T) {
	_, err := New(WithModelPath("/nonexistent/violations.onnx"), WithScratchDir(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for bad model path, got nil")
	}
}

func TestClassifyWithModel(t *testing.T) {
	skipWithoutModel(t)

	d, err := New(WithModelPath(testModelPath), WithScratchDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer d.Close()

	det, err := d.Classify(context.Background(), []byte("dummy video data"))
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if det.Confidence <= 0 || det.Confidence > 1 {
		t.Errorf("Confidence = %v", det.Confidence)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := defaultOptions()
	if o.threads != 4 {
		t.Errorf("default threads = %d, want 4", o.threads)
	}
	if o.modelPath != "" {
		t.Errorf("default model path = %q, want simulated", o.modelPath)
	}
}
