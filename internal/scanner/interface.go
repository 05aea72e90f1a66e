package scanner

import (
	"context"

	"Vscan/internal/extractor"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
)

// ScannerOptions switches the probing modes on or off.
type ScannerOptions struct {
	ProbeForms  bool
	ProbeParams bool
}

// Scanner probes one extracted page and returns its findings in discovery order.
// Transport failures are handled inside Scan; a returned error means the
// scanner itself could not run.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, page extractor.Page, fetcher httpclient.Fetcher, log *logger.Logger, opts ScannerOptions) ([]Finding, error)
}
