package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

const replyTimeout = 5 * time.Second

// Subscribe answers report submissions on subject with a transmit.Receipt.
// An empty subject uses transmit.DefaultSubject.
func (s *Server) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	if subject == "" {
		subject = transmit.DefaultSubject
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var receipt transmit.Receipt
		var sub transmit.Submission
		if err := json.Unmarshal(msg.Data, &sub); err != nil {
			receipt.Error = "invalid submission: " + err.Error()
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
			id, err := s.Accept(ctx, sub)
			cancel()
			if err != nil {
				receipt.Error = err.Error()
			}
			receipt.ConfirmationID = id
		}
		data, _ := json.Marshal(receipt)
		if err := msg.Respond(data); err != nil {
			s.logger.Warn("nats reply failed", "subject", msg.Subject, "error", err)
		}
	})
}
