package onnx

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/engine/classifier"
	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Option configures a Classifier.
type Option func(*options)

type options struct {
	libPath string
	threads int
}

// WithLibraryPath sets the ONNX Runtime shared library. By default
// libonnxruntime.so is expected next to the model file.
func WithLibraryPath(p string) Option {
	return func(o *options) { o.libPath = p }
}

// WithThreads sets the intra-op thread count.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// Classifier runs a local ONNX model over a clip's byte features.
// The model's output order must match the taxonomy order.
type Classifier struct {
	sess  *session
	tax   *taxonomy.Taxonomy
	store artifact.Store
}

var _ classifier.Classifier = (*Classifier)(nil)

// New loads modelPath and checks that its output width equals tax.Len().
func New(modelPath string, tax *taxonomy.Taxonomy, store artifact.Store, opts ...Option) (*Classifier, error) {
	o := options{threads: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.libPath == "" {
		o.libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}

	sess, err := newSession(modelPath, o.libPath, o.threads)
	if err != nil {
		return nil, err
	}
	if int(sess.labels) != tax.Len() {
		sess.close()
		return nil, fmt.Errorf("onnx: model emits %d logits, taxonomy has %d labels", sess.labels, tax.Len())
	}
	return &Classifier{sess: sess, tax: tax, store: store}, nil
}

// Features returns the input width the model expects.
func (c *Classifier) Features() int { return int(c.sess.features) }

func (c *Classifier) Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error) {
	data, err := artifact.ReadAll(ctx, c.store, ref)
	if err != nil {
		return model.ClassificationRecord{}, classifier.Wrap(fmt.Errorf("onnx: read %s: %w", ref, err))
	}
	if len(data) == 0 {
		return model.ClassificationRecord{}, classifier.Wrap(fmt.Errorf("onnx: %s is empty", ref))
	}
	if err := ctx.Err(); err != nil {
		return model.ClassificationRecord{}, classifier.Wrap(err)
	}

	logits, err := c.sess.infer(Featurize(data, int(c.sess.features)))
	if err != nil {
		return model.ClassificationRecord{}, classifier.Wrap(err)
	}
	return Decode(logits, c.tax, ref)
}

// Close releases ONNX Runtime resources.
func (c *Classifier) Close() error {
	if c.sess != nil {
		return c.sess.close()
	}
	return nil
}

// Featurize splits data into n equal segments and returns each segment's mean
// byte value scaled to [0,1]. Clips shorter than n repeat bytes.
func Featurize(data []byte, n int) []float32 {
	out := make([]float32, n)
	if len(data) == 0 || n <= 0 {
		return out
	}
	for i := 0; i < n; i++ {
		start := i * len(data) / n
		end := (i + 1) * len(data) / n
		if end <= start {
			end = start + 1
		}
		var sum int
		for _, b := range data[start:end] {
			sum += int(b)
		}
		out[i] = float32(sum) / float32(end-start) / 255
	}
	return out
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxV := float64(logits[0])
	for _, v := range logits[1:] {
		maxV = math.Max(maxV, float64(v))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxV)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Decode picks the highest-probability label. Confidence is rounded to two
// decimals.
func Decode(logits []float32, tax *taxonomy.Taxonomy, ref model.ArtifactRef) (model.ClassificationRecord, error) {
	if len(logits) != tax.Len() {
		return model.ClassificationRecord{}, classifier.Wrap(
			fmt.Errorf("onnx: %d logits for %d labels", len(logits), tax.Len()))
	}
	probs := Softmax(logits)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if math.IsNaN(probs[best]) {
		return model.ClassificationRecord{}, classifier.Wrap(fmt.Errorf("onnx: model produced NaN"))
	}
	lbl, _ := tax.At(best)
	return model.ClassificationRecord{
		ViolationType:   lbl.Type,
		ConfidenceScore: classifier.Round2(probs[best]),
		Artifact:        ref,
	}, nil
}
