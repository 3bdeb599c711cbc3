package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/httpclient"
	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

const (
	defaultPath    = "/v1/reports"
	defaultTimeout = 10 * time.Second
)

// Option configures a webhook Transmitter.
type Option func(*config)

type config struct {
	token      string
	path       string
	timeout    time.Duration
	maxRetries int
}

// WithToken sends a Bearer token with every request.
func WithToken(tok string) Option {
	return func(c *config) { c.token = tok }
}

// WithPath overrides the submission path. Default: /v1/reports.
func WithPath(p string) Option {
	return func(c *config) { c.path = p }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets transport retries on 429/5xx. Default: 0, a report is
// POSTed once.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// Transmitter POSTs a Submission as JSON to the central server and reads the
// confirmation id from the response.
type Transmitter struct {
	client *httpclient.Client
	path   string
}

var _ transmit.Transmitter = (*Transmitter)(nil)

// New creates a webhook Transmitter targeting baseURL.
func New(baseURL string, opts ...Option) *Transmitter {
	c := config{path: defaultPath, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&c)
	}
	return &Transmitter{
		client: httpclient.New(baseURL, c.token,
			httpclient.WithTimeout(c.timeout),
			httpclient.WithMaxRetries(c.maxRetries),
		),
		path: c.path,
	}
}

func (t *Transmitter) Submit(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error) {
	var receipt transmit.Receipt
	err := t.client.PostJSON(ctx, t.path, transmit.Submission{Classification: rec, SiteID: siteID}, &receipt)
	if err != nil {
		return "", transmit.Wrap(fmt.Errorf("webhook: %w", err))
	}
	if receipt.ConfirmationID == "" {
		return "", transmit.Wrap(fmt.Errorf("webhook: response carried no confirmation id"))
	}
	return receipt.ConfirmationID, nil
}
