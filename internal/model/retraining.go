package model

import (
	"fmt"
	"time"
)

// RetrainingOutcome is the terminal result of one lifecycle evaluation.
// PipelineID and DeployedModelID are empty when absent.
type RetrainingOutcome struct {
	Triggered       bool      `json:"triggered"`
	Rate            float64   `json:"misclassification_rate"`
	PipelineID      string    `json:"pipeline_id,omitempty"`
	DeployedModelID string    `json:"deployed_model_id,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Summary renders the outcome as a one-line operator summary.
func (o RetrainingOutcome) Summary() string {
	switch {
	case !o.Triggered:
		return "No significant model drift detected. Retraining not required."
	case o.PipelineID == "":
		return "Model drift detected. Retraining pipeline could not be started."
	case o.DeployedModelID == "":
		return fmt.Sprintf("Model drift detected. Triggered pipeline '%s'. Deployment did not complete.", o.PipelineID)
	default:
		return fmt.Sprintf("Model drift detected. Triggered pipeline '%s'. New model '%s' is now being deployed.",
			o.PipelineID, o.DeployedModelID)
	}
}
