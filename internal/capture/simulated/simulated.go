package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Placeholder is the payload written for every simulated clip.
const Placeholder = "dummy video data"

func init() {
	capture.Register("simulated", func(cfg capture.Config, store artifact.Store) (capture.Capturer, error) {
		return New(store), nil
	})
}

// Option configures a simulated Camera.
type Option func(*Camera)

// WithClock overrides time.Now, used for clip names.
func WithClock(now func() time.Time) Option {
	return func(c *Camera) { c.now = now }
}

// Camera stands in for a live intersection feed: every Capture writes a
// placeholder clip named incident_<unix>.mp4 into the artifact store.
type Camera struct {
	store artifact.Store
	now   func() time.Time
}

// New creates a simulated Camera backed by store.
func New(store artifact.Store, opts ...Option) *Camera {
	c := &Camera{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Camera) Capture(ctx context.Context) (model.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return "", capture.Wrap(err)
	}
	name, err := c.freeName(ctx)
	if err != nil {
		return "", capture.Wrap(err)
	}
	ref, err := c.store.Put(ctx, name, []byte(Placeholder))
	if err != nil {
		return "", capture.Wrap(fmt.Errorf("camera unavailable: %w", err))
	}
	slog.Debug("simulated capture", "artifact", ref)
	return ref, nil
}

// freeName picks incident_<unix>.mp4, adding a counter when a clip from the
// same second is still in the store.
func (c *Camera) freeName(ctx context.Context) (string, error) {
	ts := c.now().Unix()
	name := fmt.Sprintf("incident_%d.mp4", ts)
	for n := 1; ; n++ {
		ok, err := c.store.Exists(ctx, model.ArtifactRef(name))
		if err != nil {
			return "", err
		}
		if !ok {
			return name, nil
		}
		name = fmt.Sprintf("incident_%d_%d.mp4", ts, n)
	}
}
