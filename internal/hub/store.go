package hub

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Record is a report held by the hub together with its review, if any.
type Record struct {
	Report        model.ViolationReport `json:"report"`
	Reviewed      bool                  `json:"reviewed"`
	Correct       bool                  `json:"correct,omitempty"`
	CorrectedType model.ViolationType   `json:"corrected_type,omitempty"`
	ReviewedAt    time.Time             `json:"reviewed_at,omitempty"`
}

// Review is a human verdict on a submitted report.
type Review struct {
	Correct       bool                `json:"correct"`
	CorrectedType model.ViolationType `json:"corrected_type,omitempty"`
}

// Store keeps the most recent reports in an LRU cache keyed by confirmation
// id. Evicted reports no longer count toward feedback.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Record]
}

// NewStore creates a Store holding at most size reports.
func NewStore(size int) (*Store, error) {
	c, err := lru.New[string, *Record](size)
	if err != nil {
		return nil, fmt.Errorf("hub: report cache: %w", err)
	}
	return &Store{cache: c}, nil
}

// Add stores r under a confirmation id derived from base. A base already in
// use gets a -<n> suffix. It returns the id actually assigned.
func (s *Store) Add(base string, r model.ViolationReport) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := base
	for n := 1; s.cache.Contains(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	r.ConfirmationID = id
	s.cache.Add(id, &Record{Report: r})
	return id
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cache.Peek(id)
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// SetReview records a verdict on id, replacing any earlier one.
func (s *Store) SetReview(id string, rv Review, at time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cache.Get(id)
	if !ok {
		return Record{}, false
	}
	rec.Reviewed = true
	rec.Correct = rv.Correct
	rec.CorrectedType = ""
	if !rv.Correct {
		rec.CorrectedType = rv.CorrectedType
	}
	rec.ReviewedAt = at
	return *rec, true
}

// Feedback aggregates reviews made inside w. Misclassifications are counted
// by the type the edge originally reported.
func (s *Store) Feedback(w model.Window) model.FeedbackSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.FeedbackSummary{ByType: map[model.ViolationType]int{}, Window: w}
	for _, rec := range s.cache.Values() {
		if !rec.Reviewed || !w.Contains(rec.ReviewedAt) {
			continue
		}
		out.ReviewedCount++
		if !rec.Correct {
			out.MisclassificationCount++
			out.ByType[rec.Report.Classification.ViolationType]++
		}
	}
	return out
}

// Len returns the number of stored reports.
func (s *Store) Len() int { return s.cache.Len() }
