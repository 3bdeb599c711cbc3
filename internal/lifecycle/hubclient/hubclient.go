// Package hubclient talks to the central hub's feedback, training and
// deployment endpoints.
package hubclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/httpclient"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Endpoint paths served by the hub.
const (
	FeedbackPath   = "/v1/feedback"
	TrainingPath   = "/v1/training/pipelines"
	DeploymentPath = "/v1/deployments"
)

// TrainingRequest starts a retraining pipeline.
type TrainingRequest struct {
	Feedback model.FeedbackSummary `json:"feedback"`
}

// TrainingResponse carries the id of the started pipeline.
type TrainingResponse struct {
	PipelineID string `json:"pipeline_id"`
}

// DeploymentRequest deploys the model produced by a pipeline.
type DeploymentRequest struct {
	PipelineID string `json:"pipeline_id"`
}

// DeploymentResponse carries the id of the deployed model.
type DeploymentResponse struct {
	ModelID string `json:"model_id"`
}

// Client implements the lifecycle collaborators over HTTP. Feedback reads are
// retried on 429/5xx; training and deployment requests are sent once.
type Client struct {
	reads  *httpclient.Client
	writes *httpclient.Client
}

var (
	_ lifecycle.FeedbackSource = (*Client)(nil)
	_ lifecycle.Trainer        = (*Client)(nil)
	_ lifecycle.Deployer       = (*Client)(nil)
)

// New creates a Client for the hub at baseURL. opts apply to feedback reads.
func New(baseURL, token string, timeout time.Duration, opts ...httpclient.Option) *Client {
	readOpts := append([]httpclient.Option{httpclient.WithTimeout(timeout)}, opts...)
	return &Client{
		reads:  httpclient.New(baseURL, token, readOpts...),
		writes: httpclient.New(baseURL, token, httpclient.WithTimeout(timeout), httpclient.WithMaxRetries(0)),
	}
}

func (c *Client) GetFeedback(ctx context.Context, window model.Window) (model.FeedbackSummary, error) {
	q := url.Values{}
	q.Set("start", window.Start.UTC().Format(time.RFC3339))
	q.Set("end", window.End.UTC().Format(time.RFC3339))

	var s model.FeedbackSummary
	if err := c.reads.GetJSON(ctx, FeedbackPath, q, &s); err != nil {
		return model.FeedbackSummary{}, fmt.Errorf("hub feedback: %w", err)
	}
	return s, nil
}

func (c *Client) TriggerRetraining(ctx context.Context, summary model.FeedbackSummary) (string, error) {
	var resp TrainingResponse
	if err := c.writes.PostJSON(ctx, TrainingPath, TrainingRequest{Feedback: summary}, &resp); err != nil {
		return "", fmt.Errorf("hub training: %w", err)
	}
	return resp.PipelineID, nil
}

func (c *Client) Deploy(ctx context.Context, pipelineID string) (string, error) {
	var resp DeploymentResponse
	if err := c.writes.PostJSON(ctx, DeploymentPath, DeploymentRequest{PipelineID: pipelineID}, &resp); err != nil {
		return "", fmt.Errorf("hub deployment: %w", err)
	}
	return resp.ModelID, nil
}
