package onnx

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/crimson-sun/trafficwatch/internal/artifact/fs"
	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

func TestFeaturize(t *testing.T) {
	data := []byte{0, 0, 255, 255}
	got := Featurize(data, 2)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("Featurize = %v, want [0 1]", got)
	}

	short := Featurize([]byte{51}, 3)
	for i, v := range short {
		if math.Abs(float64(v)-0.2) > 1e-6 {
			t.Errorf("short[%d] = %v, want 0.2", i, v)
		}
	}

	if got := Featurize(nil, 4); len(got) != 4 {
		t.Errorf("empty input length = %d", len(got))
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 1, 1, 1})
	for _, p := range probs {
		if math.Abs(p-0.25) > 1e-9 {
			t.Fatalf("uniform softmax = %v", probs)
		}
	}
	// Large logits must not overflow.
	probs = Softmax([]float32{1000, 0})
	if math.IsNaN(probs[0]) || probs[0] < 0.999 {
		t.Fatalf("softmax overflow: %v", probs)
	}
}

func TestDecode(t *testing.T) {
	tax := taxonomy.Default()
	logits := make([]float32, tax.Len())
	logits[0] = 5 // Red Light Violation
	rec, err := Decode(logits, tax, "/tmp/incident_1.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ViolationType != model.RedLight {
		t.Errorf("type = %q", rec.ViolationType)
	}
	if rec.ConfidenceScore < 0.9 || rec.ConfidenceScore > 1 {
		t.Errorf("confidence = %v", rec.ConfidenceScore)
	}
	if rec.ConfidenceScore != math.Round(rec.ConfidenceScore*100)/100 {
		t.Errorf("confidence %v not rounded to 2dp", rec.ConfidenceScore)
	}
	if rec.Artifact != "/tmp/incident_1.mp4" {
		t.Errorf("artifact = %q", rec.Artifact)
	}
}

func TestDecodeWidthMismatch(t *testing.T) {
	_, err := Decode([]float32{1, 2}, taxonomy.Default(), "x")
	if !errors.Is(err, model.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("TRAFFICWATCH_TEST_ONNX_MODEL")
	if p == "" {
		p = "../../../models/violations.onnx"
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		t.Skip("model files not found; set TRAFFICWATCH_TEST_ONNX_MODEL")
	}
	return p
}

func TestClassifierWithModel(t *testing.T) {
	path := testModelPath(t)
	store, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(path, taxonomy.Default(), store)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	defer c.Close()

	ref, err := store.Put(context.Background(), "incident_1.mp4", []byte("dummy video data"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := c.Classify(context.Background(), ref)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if !taxonomy.Default().Contains(rec.ViolationType) {
		t.Errorf("unknown label %q", rec.ViolationType)
	}
	t.Logf("features=%d label=%s confidence=%.2f", c.Features(), rec.ViolationType, rec.ConfidenceScore)

	empty, _ := store.Put(context.Background(), "empty.mp4", nil)
	if _, err := c.Classify(context.Background(), empty); !errors.Is(err, model.ErrInference) {
		t.Errorf("empty clip: expected ErrInference, got %v", err)
	}
}
