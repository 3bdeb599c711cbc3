package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

func connect(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(nats.DefaultURL, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("Skipping test: NATS not available: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestSubmitRoundTrip(t *testing.T) {
	nc := connect(t)
	subject := "trafficwatch.test." + t.Name()

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var s transmit.Submission
		json.Unmarshal(msg.Data, &s)
		reply, _ := json.Marshal(transmit.Receipt{ConfirmationID: "VIOL-HWY231-1"})
		if s.SiteID != "CROSSROAD_HWY_231_MAIN_ST" {
			reply, _ = json.Marshal(transmit.Receipt{Error: "unknown site"})
		}
		msg.Respond(reply)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	rec := model.ClassificationRecord{ViolationType: model.RedLight, ConfidenceScore: 0.92, Artifact: "x"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := New(nc, subject).Submit(ctx, rec, "CROSSROAD_HWY_231_MAIN_ST")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if id != "VIOL-HWY231-1" {
		t.Errorf("id = %q", id)
	}

	_, err = New(nc, subject).Submit(ctx, rec, "ELSEWHERE")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission for rejection, got %v", err)
	}
}

func TestSubmitNoResponders(t *testing.T) {
	nc := connect(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rec := model.ClassificationRecord{ViolationType: model.RedLight, ConfidenceScore: 0.92, Artifact: "x"}
	_, err := New(nc, "trafficwatch.test.nobody").Submit(ctx, rec, "X")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission, got %v", err)
	}
}
