package reporter

import (
	"sync"
	"time"

	"Vscan/internal/scanner"

	"github.com/google/uuid"
)

// Aggregator collects findings and skipped URLs for one scan. It is safe for
// concurrent use; findings are kept in the order they were added and exact
// duplicates are dropped.
type Aggregator struct {
	mu        sync.Mutex
	scanID    string
	target    string
	startedAt time.Time
	findings  []scanner.Finding
	seen      map[string]struct{}
	skipped   []Skipped
	skipSeen  map[Skipped]struct{}
	scanned   func() int
	final     *Report
}

// NewAggregator starts aggregation for target. scanned reports the current
// visited-set size and is read once at Finalize.
func NewAggregator(target string, scanned func() int) *Aggregator {
	return &Aggregator{
		scanID:    uuid.NewString(),
		target:    target,
		startedAt: time.Now(),
		seen:      make(map[string]struct{}),
		skipSeen:  make(map[Skipped]struct{}),
		scanned:   scanned,
	}
}

// Add records f unless an identical finding is already present.
// It reports whether f was new. Adds after Finalize are ignored.
func (a *Aggregator) Add(f scanner.Finding) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final != nil {
		return false
	}
	key := f.Key()
	if _, dup := a.seen[key]; dup {
		return false
	}
	a.seen[key] = struct{}{}
	a.findings = append(a.findings, f)
	return true
}

// Skip records a URL that will not be scanned. A URL linked from several
// pages is recorded once per reason.
func (a *Aggregator) Skip(url, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final != nil {
		return
	}
	s := Skipped{URL: url, Reason: reason}
	if _, dup := a.skipSeen[s]; dup {
		return
	}
	a.skipSeen[s] = struct{}{}
	a.skipped = append(a.skipped, s)
}

// Len returns the number of distinct findings so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.findings)
}

// Finalize freezes the aggregator and returns the report snapshot. scanErr,
// if non-nil, is recorded on the report; the partial results are kept.
// Calling Finalize again returns the same snapshot.
func (a *Aggregator) Finalize(scanErr error) *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final != nil {
		return a.final
	}

	r := NewReport(a.target, a.startedAt)
	r.ScanID = a.scanID
	r.FinishedAt = time.Now().Format(time.RFC3339)
	if a.scanned != nil {
		r.URLsScanned = a.scanned()
	}
	r.Vulnerabilities = append(r.Vulnerabilities, a.findings...)
	if len(a.skipped) > 0 {
		r.Skipped = append([]Skipped(nil), a.skipped...)
	}
	if scanErr != nil {
		r.Error = scanErr.Error()
	}
	a.final = r
	return r
}
