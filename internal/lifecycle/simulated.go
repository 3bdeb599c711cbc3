package lifecycle

import (
	"context"
	"log/slog"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Canned identifiers issued by the simulated collaborators.
const (
	SimulatedPipelineID = "traffic-model-retrain-v4"
	SimulatedModelID    = "model_v4.1"
)

// SimulatedFeedback reports 3 Stop Sign misclassifications out of 40
// reviewed reports for any window.
type SimulatedFeedback struct{}

func (SimulatedFeedback) GetFeedback(ctx context.Context, window model.Window) (model.FeedbackSummary, error) {
	if err := ctx.Err(); err != nil {
		return model.FeedbackSummary{}, err
	}
	return model.FeedbackSummary{
		MisclassificationCount: 3,
		ReviewedCount:          40,
		ByType:                 map[model.ViolationType]int{model.StopSign: 3},
		Window:                 window,
	}, nil
}

// SimulatedTrainer always starts SimulatedPipelineID.
type SimulatedTrainer struct{}

func (SimulatedTrainer) TriggerRetraining(ctx context.Context, s model.FeedbackSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	slog.Info("retraining pipeline started", "pipeline_id", SimulatedPipelineID, "misclassifications", s.MisclassificationCount)
	return SimulatedPipelineID, nil
}

// SimulatedDeployer always deploys SimulatedModelID.
type SimulatedDeployer struct{}

func (SimulatedDeployer) Deploy(ctx context.Context, pipelineID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	slog.Info("model deployed to edge", "pipeline_id", pipelineID, "model_id", SimulatedModelID)
	return SimulatedModelID, nil
}
