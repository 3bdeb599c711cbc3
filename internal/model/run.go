package model

import "time"

// RunResult summarizes one Capture → Classify → Report run.
type RunResult struct {
	RunID      string       `json:"run_id"`
	SiteID     string       `json:"site_id"`
	Result     ReportResult `json:"result"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
