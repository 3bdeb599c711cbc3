package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

var rec = model.ClassificationRecord{
	ViolationType:   model.RedLight,
	ConfidenceScore: 0.92,
	Artifact:        "/tmp/incident_1.mp4",
}

func TestSubmitDerivesSiteCode(t *testing.T) {
	s := New(WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	id, err := s.Submit(context.Background(), rec, "CROSSROAD_HWY_231_MAIN_ST")
	if err != nil {
		t.Fatal(err)
	}
	if id != "VIOL-ST-1700000000" {
		t.Errorf("id = %q", id)
	}
}

func TestSubmitExplicitSiteCode(t *testing.T) {
	s := New(WithSiteCode("HWY231"), WithClock(func() time.Time { return time.Unix(5, 0) }))
	id, err := s.Submit(context.Background(), rec, "CROSSROAD_HWY_231_MAIN_ST")
	if err != nil {
		t.Fatal(err)
	}
	if id != "VIOL-HWY231-5" {
		t.Errorf("id = %q", id)
	}
}

func TestSubmitLatencyHonorsContext(t *testing.T) {
	s := New(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Submit(ctx, rec, "X")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission, got %v", err)
	}
}
