package scanner

import (
	"context"
	"fmt"

	"Vscan/internal/extractor"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
)

// Manager runs every registered scanner against a page.
type Manager struct {
	scanners   []Scanner
	httpClient httpclient.Fetcher
	logger     *logger.Logger
	options    ScannerOptions
}

// NewManager creates a new scanner manager.
func NewManager(client httpclient.Fetcher, log *logger.Logger, opts ScannerOptions) *Manager {
	return &Manager{
		httpClient: client,
		logger:     log,
		options:    opts,
		scanners:   make([]Scanner, 0),
	}
}

// RegisterScanner adds a scanner to the manager.
func (m *Manager) RegisterScanner(s Scanner) {
	m.scanners = append(m.scanners, s)
	m.logger.Debug("ScannerManager: Registered scanner: %s", s.Name())
}

// ScanPage runs the registered scanners in registration order. A failing or
// panicking scanner is logged and skipped; the others still run.
func (m *Manager) ScanPage(ctx context.Context, page extractor.Page) []Finding {
	var all []Finding
	for _, s := range m.scanners {
		findings, err := m.runOne(ctx, s, page)
		if err != nil {
			m.logger.Error("Scanner %s failed for %s: %v", s.Name(), page.URL, err)
			continue
		}
		all = append(all, findings...)
	}
	return all
}

func (m *Manager) runOne(ctx context.Context, s Scanner, page extractor.Page) (findings []Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Scan(ctx, page, m.httpClient, m.logger, m.options)
}

// GetRegisteredScanners returns the names of the registered scanners.
func (m *Manager) GetRegisteredScanners() []string {
	names := make([]string, 0, len(m.scanners))
	for _, s := range m.scanners {
		names = append(names, s.Name())
	}
	return names
}
