package reporter

import (
	"time"

	"Vscan/internal/scanner"
)

// Skipped records a URL that was denied or could not be fetched, with why.
type Skipped struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Report is the final result of a scan. Vulnerabilities keep discovery order.
type Report struct {
	ScanID          string            `json:"scan_id,omitempty"`
	Target          string            `json:"target"`
	StartedAt       string            `json:"started_at,omitempty"`
	FinishedAt      string            `json:"finished_at,omitempty"`
	URLsScanned     int               `json:"urls_scanned"`
	Vulnerabilities []scanner.Finding `json:"vulnerabilities"`
	Skipped         []Skipped         `json:"skipped,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// NewReport creates an empty report. Slices are initialized so they are
// never null in JSON.
func NewReport(target string, startTime time.Time) *Report {
	return &Report{
		Target:          target,
		StartedAt:       startTime.Format(time.RFC3339),
		Vulnerabilities: make([]scanner.Finding, 0),
	}
}
