package gate

import (
	"errors"
	"fmt"
	"math"

	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// ValidationError describes one rejected field of a ClassificationRecord.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, model.ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == model.ErrValidation
}

// Gate checks a ClassificationRecord before it may reach the Report stage.
type Gate struct {
	taxonomy *taxonomy.Taxonomy
}

// New creates a Gate that accepts labels from tax.
func New(tax *taxonomy.Taxonomy) *Gate {
	return &Gate{taxonomy: tax}
}

// Validate returns nil if rec is acceptable. Otherwise it returns every
// violation joined into one error; each matches model.ErrValidation.
func (g *Gate) Validate(rec model.ClassificationRecord) error {
	var errs []error
	if !g.taxonomy.Contains(rec.ViolationType) {
		errs = append(errs, &ValidationError{
			Field:  "violation_type",
			Reason: fmt.Sprintf("%q is not a known label", rec.ViolationType),
		})
	}
	if math.IsNaN(rec.ConfidenceScore) || rec.ConfidenceScore < 0 || rec.ConfidenceScore > 1 {
		errs = append(errs, &ValidationError{
			Field:  "confidence_score",
			Reason: fmt.Sprintf("%v is outside [0,1]", rec.ConfidenceScore),
		})
	}
	if rec.Artifact == "" {
		errs = append(errs, &ValidationError{
			Field:  "footage_path",
			Reason: "artifact reference is empty",
		})
	}
	return errors.Join(errs...)
}
