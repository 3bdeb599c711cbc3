package model

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastWindow returns the window of length d ending at now.
func LastWindow(now time.Time, d time.Duration) Window {
	return Window{Start: now.Add(-d), End: now}
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FeedbackSummary aggregates human review of submitted reports over a window.
type FeedbackSummary struct {
	MisclassificationCount int                   `json:"misclassification_count"`
	ReviewedCount          int                   `json:"reviewed_count"`
	ByType                 map[ViolationType]int `json:"by_type,omitempty"`
	Window                 Window                `json:"window"`
}

// Rate returns the misclassification rate, or 0 when nothing was reviewed.
func (f FeedbackSummary) Rate() float64 {
	if f.ReviewedCount <= 0 {
		return 0
	}
	return float64(f.MisclassificationCount) / float64(f.ReviewedCount)
}
