package model

import (
	"fmt"
	"strings"
	"time"
)

// NoActionReason is recorded on a ReportResult when the classification was the sentinel.
const NoActionReason = "no action taken"

// ViolationReport is created only after the central server has accepted a
// non-sentinel classification.
type ViolationReport struct {
	Classification ClassificationRecord `json:"classification"`
	SiteID         string               `json:"site_id"`
	ConfirmationID string               `json:"confirmation_id"`
	ReportedAt     time.Time            `json:"reported_at"`
}

// ReportResult is the output of the Report stage. Exactly one of NoAction or
// Report is set.
type ReportResult struct {
	NoAction bool             `json:"no_action,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Report   *ViolationReport `json:"report,omitempty"`
}

// SiteCode derives the short code embedded in confirmation ids from a site
// identifier when no explicit code is configured: the last "_" segment.
func SiteCode(siteID string) string {
	if i := strings.LastIndex(siteID, "_"); i >= 0 {
		return siteID[i+1:]
	}
	return siteID
}

// NewConfirmationID formats a confirmation id as VIOL-<code>-<unix seconds>.
func NewConfirmationID(code string, at time.Time) string {
	return fmt.Sprintf("VIOL-%s-%d", code, at.Unix())
}
