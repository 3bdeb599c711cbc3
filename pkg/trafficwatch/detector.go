package trafficwatch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/artifact/fs"
	"github.com/crimson-sun/trafficwatch/internal/engine"
	"github.com/crimson-sun/trafficwatch/internal/engine/classifier"
	"github.com/crimson-sun/trafficwatch/internal/engine/gate"
	"github.com/crimson-sun/trafficwatch/internal/engine/onnx"
	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Detector classifies clips for traffic violations.
// Safe for concurrent use.
type Detector struct {
	engine   *engine.Engine
	store    artifact.Store
	taxonomy *taxonomy.Taxonomy
	closer   func() error
	seq      atomic.Uint64
}

// New creates a Detector. Loading an ONNX model is expensive; create once,
// reuse across clips.
func New(opts ...Option) (*Detector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store, err := fs.New(filepath.Join(o.scratchDir, "trafficwatch"))
	if err != nil {
		return nil, fmt.Errorf("trafficwatch: %w", err)
	}
	tax := taxonomy.Default()

	d := &Detector{store: store, taxonomy: tax, closer: func() error { return nil }}
	var cls classifier.Classifier
	if o.modelPath != "" {
		oc, err := onnx.New(o.modelPath, tax, store,
			onnx.WithLibraryPath(o.libraryPath),
			onnx.WithThreads(o.threads),
		)
		if err != nil {
			return nil, fmt.Errorf("trafficwatch: %w", err)
		}
		cls, d.closer = oc, oc.Close
	} else {
		var simOpts []classifier.SimulatedOption
		if o.seed != 0 {
			simOpts = append(simOpts, classifier.WithRand(rand.New(rand.NewPCG(o.seed, 0))))
		}
		cls = classifier.NewSimulated(simOpts...)
	}
	d.engine = engine.New(cls, gate.New(tax))
	return d, nil
}

// Classify stages data as a clip, classifies it and removes it again.
func (d *Detector) Classify(ctx context.Context, data []byte) (Detection, error) {
	name := fmt.Sprintf("clip_%d_%d.mp4", time.Now().UnixNano(), d.seq.Add(1))
	ref, err := d.store.Put(ctx, name, data)
	if err != nil {
		return Detection{}, fmt.Errorf("trafficwatch: stage clip: %w", err)
	}
	defer d.store.Delete(context.WithoutCancel(ctx), ref)

	rec, err := d.engine.Classify(ctx, ref)
	if err != nil {
		return Detection{}, err
	}
	return d.detection(rec), nil
}

// ClassifyFile reads the clip at path and classifies it.
func (d *Detector) ClassifyFile(ctx context.Context, path string) (Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Detection{}, fmt.Errorf("trafficwatch: %w", err)
	}
	return d.Classify(ctx, data)
}

// Close releases model resources (ONNX runtime, memory).
// Must be called when the Detector is no longer needed.
func (d *Detector) Close() error {
	return d.closer()
}

// detection converts the internal record to the public Detection type.
func (d *Detector) detection(rec model.ClassificationRecord) Detection {
	det := Detection{
		Type:       string(rec.ViolationType),
		Violation:  !rec.ViolationType.IsSentinel(),
		Confidence: rec.ConfidenceScore,
	}
	if l, ok := d.taxonomy.Lookup(rec.ViolationType); ok && det.Violation {
		det.Severity = l.Severity
	}
	return det
}
