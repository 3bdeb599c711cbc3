package simulated

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/artifact/fs"
	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestCaptureWritesPlaceholderClip(t *testing.T) {
	store, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cam := New(store, WithClock(fixedClock(1700000000)))

	ref, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if got := filepath.Base(string(ref)); got != "incident_1700000000.mp4" {
		t.Errorf("clip name = %q", got)
	}
	data, err := artifact.ReadAll(context.Background(), store, ref)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != Placeholder {
		t.Errorf("clip data = %q, want %q", data, Placeholder)
	}
}

func TestCaptureSameSecondGetsDistinctNames(t *testing.T) {
	store, _ := fs.New(t.TempDir())
	cam := New(store, WithClock(fixedClock(42)))

	first, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("both captures returned %q", first)
	}
	if got := filepath.Base(string(second)); got != "incident_42_1.mp4" {
		t.Errorf("second clip = %q", got)
	}
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, string, []byte) (model.ArtifactRef, error) {
	return "", errors.New("disk full")
}
func (brokenStore) Open(context.Context, model.ArtifactRef) (io.ReadCloser, error) {
	return nil, artifact.ErrNotFound
}
func (brokenStore) Delete(context.Context, model.ArtifactRef) error { return nil }
func (brokenStore) Exists(context.Context, model.ArtifactRef) (bool, error) {
	return false, nil
}

func TestCaptureStoreFailureIsCaptureError(t *testing.T) {
	cam := New(brokenStore{})
	_, err := cam.Capture(context.Background())
	if !errors.Is(err, model.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
}

func TestCaptureCancelledContext(t *testing.T) {
	store, _ := fs.New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(store).Capture(ctx)
	if !errors.Is(err, model.ErrCapture) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected capture+canceled error, got %v", err)
	}
}

func TestRegistered(t *testing.T) {
	ctor, err := capture.Get("simulated")
	if err != nil {
		t.Fatal(err)
	}
	store, _ := fs.New(t.TempDir())
	if _, err := ctor(capture.Config{}, store); err != nil {
		t.Fatalf("constructor error: %v", err)
	}
}
