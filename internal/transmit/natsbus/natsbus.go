package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

// Transmitter submits reports as NATS request/reply on a subject. The
// responder answers with a transmit.Receipt.
type Transmitter struct {
	nc      *nats.Conn
	subject string
}

var _ transmit.Transmitter = (*Transmitter)(nil)

// New creates a Transmitter publishing on subject. An empty subject uses
// transmit.DefaultSubject.
func New(nc *nats.Conn, subject string) *Transmitter {
	if subject == "" {
		subject = transmit.DefaultSubject
	}
	return &Transmitter{nc: nc, subject: subject}
}

func (t *Transmitter) Submit(ctx context.Context, rec model.ClassificationRecord, siteID string) (string, error) {
	data, err := json.Marshal(transmit.Submission{Classification: rec, SiteID: siteID})
	if err != nil {
		return "", transmit.Wrap(fmt.Errorf("nats: marshal: %w", err))
	}
	msg, err := t.nc.RequestWithContext(ctx, t.subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return "", transmit.Wrap(fmt.Errorf("nats: no central server listening on %s", t.subject))
		}
		return "", transmit.Wrap(fmt.Errorf("nats: request: %w", err))
	}
	var receipt transmit.Receipt
	if err := json.Unmarshal(msg.Data, &receipt); err != nil {
		return "", transmit.Wrap(fmt.Errorf("nats: decode reply: %w", err))
	}
	if receipt.Error != "" {
		return "", transmit.Wrap(fmt.Errorf("nats: rejected: %s", receipt.Error))
	}
	if receipt.ConfirmationID == "" {
		return "", transmit.Wrap(fmt.Errorf("nats: reply carried no confirmation id"))
	}
	return receipt.ConfirmationID, nil
}
