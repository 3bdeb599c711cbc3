package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

var rec = model.ClassificationRecord{
	ViolationType:   model.RedLight,
	ConfidenceScore: 0.92,
	Artifact:        "/tmp/incident_1.mp4",
}

func TestSubmit(t *testing.T) {
	var got transmit.Submission
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/reports" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(transmit.Receipt{ConfirmationID: "VIOL-HWY231-1700000000"})
	}))
	defer srv.Close()

	id, err := New(srv.URL, WithToken("tok")).Submit(context.Background(), rec, "CROSSROAD_HWY_231_MAIN_ST")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if id != "VIOL-HWY231-1700000000" {
		t.Errorf("id = %q", id)
	}
	if got.Classification != rec || got.SiteID != "CROSSROAD_HWY_231_MAIN_ST" {
		t.Errorf("server got %+v", got)
	}
	if auth != "Bearer tok" {
		t.Errorf("auth = %q", auth)
	}
}

func TestSubmitServerErrorNotRetriedByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Submit(context.Background(), rec, "X")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestSubmitEmptyConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Submit(context.Background(), rec, "X")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission, got %v", err)
	}
}

func TestSubmitUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Submit(context.Background(), rec, "X")
	if !errors.Is(err, model.ErrTransmission) {
		t.Fatalf("expected ErrTransmission, got %v", err)
	}
}
