package classifier

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// DefaultCandidates is the label set the simulated model draws from.
var DefaultCandidates = []model.ViolationType{model.RedLight, model.StopSign, model.NoViolation}

// SimulatedOption configures a Simulated classifier.
type SimulatedOption func(*Simulated)

// WithRand sets the random source. Tests pass a seeded source for
// reproducible labels.
func WithRand(r *rand.Rand) SimulatedOption {
	return func(s *Simulated) { s.rng = r }
}

// WithDelay makes every call take d, imitating model latency.
func WithDelay(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.delay = d }
}

// WithCandidates overrides the labels drawn from.
func WithCandidates(c ...model.ViolationType) SimulatedOption {
	return func(s *Simulated) { s.candidates = c }
}

// Simulated picks a label uniformly from its candidates. Violations get a
// confidence drawn from [0.85, 0.99]; the sentinel is always 1.0.
type Simulated struct {
	mu         sync.Mutex
	rng        *rand.Rand
	delay      time.Duration
	candidates []model.ViolationType
}

// NewSimulated creates a Simulated classifier.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		candidates: DefaultCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return model.ClassificationRecord{}, Wrap(ctx.Err())
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return model.ClassificationRecord{}, Wrap(err)
	}

	s.mu.Lock()
	vt := s.candidates[s.rng.IntN(len(s.candidates))]
	conf := 1.0
	if !vt.IsSentinel() {
		conf = Round2(0.85 + s.rng.Float64()*0.14)
	}
	s.mu.Unlock()

	return model.ClassificationRecord{
		ViolationType:   vt,
		ConfidenceScore: conf,
		Artifact:        ref,
	}, nil
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
