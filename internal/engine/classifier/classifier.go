package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Classifier labels a captured clip. Implementations must set Artifact on the
// returned record to ref.
type Classifier interface {
	Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error)
}

// Func adapts a plain function to a Classifier.
type Func func(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error)

func (f Func) Classify(ctx context.Context, ref model.ArtifactRef) (model.ClassificationRecord, error) {
	return f(ctx, ref)
}

// Wrap marks err as an inference failure unless it already is one.
func Wrap(err error) error {
	if err == nil || errors.Is(err, model.ErrInference) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrInference, err)
}
