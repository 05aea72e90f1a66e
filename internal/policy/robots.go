package policy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"Vscan/internal/httpclient"
	"Vscan/internal/logger"

	"github.com/temoto/robotstxt"
)

// ErrRobotsUnavailable marks a robots.txt that could not be fetched or parsed.
// Such a domain is treated as fully disallowed.
var ErrRobotsUnavailable = errors.New("robots.txt unavailable")

// robotsAgent is the generic user agent robots rules are evaluated for.
const robotsAgent = "*"

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
	err  error
}

// RobotsCache fetches and parses robots.txt at most once per origin and keeps
// the parsed rules for the lifetime of the scan.
type RobotsCache struct {
	fetcher httpclient.Fetcher
	logger  *logger.Logger

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

// NewRobotsCache creates an empty cache backed by fetcher.
func NewRobotsCache(fetcher httpclient.Fetcher, log *logger.Logger) *RobotsCache {
	return &RobotsCache{
		fetcher: fetcher,
		logger:  log,
		entries: make(map[string]*robotsEntry),
	}
}

// Allowed reports whether rawURL may be fetched under its origin's robots.txt.
// Any failure to obtain the rules returns false together with ErrRobotsUnavailable.
func (r *RobotsCache) Allowed(ctx context.Context, origin, rawURL string) (bool, error) {
	data, err := r.rules(ctx, origin)
	if err != nil {
		return false, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, robotsAgent), nil
}

func (r *RobotsCache) rules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	entry, ok := r.entries[origin]
	if !ok {
		entry = &robotsEntry{}
		r.entries[origin] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.data, entry.err = r.load(ctx, origin)
		if entry.err != nil {
			r.logger.Warn("Robots: %v; treating %s as disallowed", entry.err, origin)
		} else {
			r.logger.Debug("Robots: loaded rules for %s", origin)
		}
	})
	return entry.data, entry.err
}

func (r *RobotsCache) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	robotsURL := origin + "/robots.txt"
	resp, err := r.fetcher.Fetch(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrRobotsUnavailable, robotsURL, err)
	}
	// Access-restricted robots.txt means the whole site is off limits.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRobotsUnavailable, robotsURL, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRobotsUnavailable, robotsURL, resp.StatusCode)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrRobotsUnavailable, robotsURL, err)
	}
	return data, nil
}
