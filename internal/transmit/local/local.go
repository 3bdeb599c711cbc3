package local

import (
	"context"
	"log/slog"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

// Option configures a Server.
type Option func(*Server)

// WithSiteCode fixes the code embedded in confirmation ids. Without it the
// code is derived from the site id.
func WithSiteCode(code string) Option {
	return func(s *Server) { s.code = code }
}

// WithLatency makes every submission take d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is an in-process stand-in for the central server. It accepts every
// submission and issues VIOL-<code>-<unix> confirmations.
type Server struct {
	code    string
	latency time.Duration
	now     func() time.Time
}

var _ transmit.Transmitter = (*Server)(nil)

// New creates a local Server.
func New(opts ...Option) *Server {
	s := &Server{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Submit(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error) {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", transmit.Wrap(ctx.Err())
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", transmit.Wrap(err)
	}

	code := s.code
	if code == "" {
		code = model.SiteCode(siteID)
	}
	id := model.NewConfirmationID(code, s.now())
	slog.Info("report accepted",
		"site_id", siteID,
		"violation_type", rec.ViolationType,
		"confirmation_id", id,
	)
	return id, nil
}
