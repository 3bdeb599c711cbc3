package hub

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit/natsbus"
)

func TestNATSResponder(t *testing.T) {
	nc, err := nats.Connect(nats.DefaultURL, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("Skipping test: NATS not available: %v", err)
	}
	defer nc.Close()

	store, err := NewStore(8)
	require.NoError(t, err)
	srv := New(store, WithSiteCode("HWY231"), WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	subject := "trafficwatch.test." + t.Name()
	sub, err := srv.Subscribe(nc, subject)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tx := natsbus.New(nc, subject)

	id, err := tx.Submit(ctx, redLight(), site)
	require.NoError(t, err)
	assert.Equal(t, "VIOL-HWY231-1700000000", id)

	sentinel := model.ClassificationRecord{ViolationType: model.NoViolation, ConfidenceScore: 1}
	_, err = tx.Submit(ctx, sentinel, site)
	assert.ErrorIs(t, err, model.ErrTransmission)
}
