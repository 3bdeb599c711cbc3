package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/sink"
)

func testReport(id string) sink.Entry {
	return sink.ReportEntry("run-1", model.ViolationReport{
		Classification: model.ClassificationRecord{
			ViolationType:   model.RedLight,
			ConfidenceScore: 0.92,
			Artifact:        "/tmp/incident_1.mp4",
		},
		SiteID:         "CROSSROAD_HWY_231_MAIN_ST",
		ConfirmationID: id,
		ReportedAt:     time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
	})
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestWriteProducesValidNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "trafficwatch.jsonl")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := s.Write(context.Background(), testReport("VIOL-HWY231-1")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	s.Write(context.Background(), sink.OutcomeEntry(model.RetrainingOutcome{}))
	s.Close()

	lines := readLines(t, path)
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}
	for i, line := range lines[:5] {
		var e sink.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line %d: invalid JSON: %v", i, err)
		}
		if e.Kind != sink.KindReport || e.Report == nil || e.Report.ConfirmationID != "VIOL-HWY231-1" {
			t.Errorf("line %d: %+v", i, e)
		}
	}
	var last sink.Entry
	json.Unmarshal([]byte(lines[5]), &last)
	if last.Kind != sink.KindOutcome || !strings.HasPrefix(last.Summary, "No significant model drift") {
		t.Errorf("outcome line = %+v", last)
	}
}

func TestEntryVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Write(context.Background(), testReport("VIOL-HWY231-2"))
	if lines := readLines(t, path); len(lines) != 1 || lines[0] == "" {
		t.Fatalf("entry not flushed: %q", lines)
	}
}

func TestRotationTriggersAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	// Each line is well over 200 bytes, so every write after the first rotates.
	s, err := New(path, WithMaxSize(200))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Write(context.Background(), testReport("VIOL-HWY231-3")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	s.Close()

	for _, suffix := range []string{"", ".1", ".4"} {
		if _, err := os.Stat(path + suffix); err != nil {
			t.Errorf("expected %s to exist: %v", path+suffix, err)
		}
	}
	if lines := readLines(t, path); len(lines) != 1 {
		t.Errorf("current file has %d lines, want 1", len(lines))
	}
}

func TestReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	for i := 0; i < 2; i++ {
		s, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		s.Write(context.Background(), testReport("VIOL-HWY231-4"))
		s.Close()
	}
	if lines := readLines(t, path); len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Write(context.Background(), testReport("VIOL-HWY231-5"))
		}()
	}
	wg.Wait()
	s.Close()

	if lines := readLines(t, path); len(lines) != 50 {
		t.Errorf("got %d lines, want 50", len(lines))
	}
}
