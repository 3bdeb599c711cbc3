package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// ErrNoFootage is returned when the source has nothing to hand over yet.
// It matches model.ErrCapture.
var ErrNoFootage = fmt.Errorf("%w: no footage available", model.ErrCapture)

// Capturer produces a reference to a freshly captured clip.
type Capturer interface {
	Capture(ctx context.Context) (model.ArtifactRef, error)
}

// Config holds capture provider settings.
type Config struct {
	Provider string
	SiteID   string
	SpoolDir string // spool: directory an external recorder drops clips into
}

// Wrap marks err as a capture failure unless it already is one.
func Wrap(err error) error {
	if err == nil || errors.Is(err, model.ErrCapture) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrCapture, err)
}
