package transmit

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// DefaultSubject is the NATS subject reports are submitted on.
const DefaultSubject = "trafficwatch.reports.submit"

// Transmitter hands a classification to the central server and returns the
// confirmation id it issued. Submit is called at most once per record.
type Transmitter interface {
	Submit(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error)
}

// Submission is the wire body of a report submission.
type Submission struct {
	Classification model.ClassificationRecord `json:"classification"`
	SiteID         string                     `json:"site_id"`
}

// Receipt is the central server's reply to a Submission. Error is set only
// on the NATS transport, which has no status codes.
type Receipt struct {
	ConfirmationID string `json:"confirmation_id"`
	Error          string `json:"error,omitempty"`
}

// Wrap marks err as a transmission failure unless it already is one.
func Wrap(err error) error {
	if err == nil || errors.Is(err, model.ErrTransmission) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrTransmission, err)
}

// Func adapts a plain function to a Transmitter.
type Func func(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error)

func (f Func) Submit(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error) {
	return f(ctx, rec, siteID)
}
