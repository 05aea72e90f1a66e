package crawler

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"Vscan/internal/extractor"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
	"Vscan/internal/policy"
	"Vscan/internal/reporter"
	"Vscan/internal/scanner"
	"Vscan/internal/urlnorm"
)

// Skip reasons produced by the crawler itself. Gate denials use policy.Reason.
const (
	ReasonFetchError    = "fetch_error"
	ReasonInternalError = "internal_error"
)

// Target describes what to scan and how far to go.
type Target struct {
	SeedURL    string // scheme is added when missing
	MaxDepth   int    // clamped to policy.MaxTraversalDepth
	MaxLinks   int    // 0 = unbounded
	ObeyRobots bool
}

// CrawlJob represents a single unit of work for the crawler.
type CrawlJob struct {
	URL   string // fetch target, fragment stripped
	Depth int    // link hops from the seed
}

// pageResult is what the workers hand back to the coordinator for one job.
type pageResult struct {
	page       *extractor.Page
	findings   []scanner.Finding
	children   []string
	skipReason string
}

// Crawler is the scan driver. It walks the target level by level: the
// coordinator admits each level through the policy gate in a fixed order,
// then a bounded pool of workers fetches that level in parallel. Forms are
// claimed in frontier order so each distinct form is submitted once per scan,
// and a second pass of workers runs the scanners. Results are merged back in
// frontier order, so the same site graph always yields the same report.
type Crawler struct {
	httpClient     httpclient.Fetcher
	logger         *logger.Logger
	seed           string
	maxConcurrency int
	gate           *policy.Gate
	scanners       *scanner.Manager
	results        *reporter.Aggregator
	claimedForms   map[string]bool // coordinator only
}

// NewCrawler validates the seed URL and wires the gate, robots cache and
// aggregator for a single scan.
func NewCrawler(httpClient httpclient.Fetcher, log *logger.Logger, target Target, maxConcurrency int, manager *scanner.Manager) (*Crawler, error) {
	seed, err := urlnorm.FetchTarget(urlnorm.EnsureScheme(target.SeedURL))
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", target.SeedURL, err)
	}
	origin, err := urlnorm.Origin(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", target.SeedURL, err)
	}
	// Set default concurrency if invalid value is provided.
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}

	if manager == nil {
		manager = scanner.NewManager(httpClient, log, scanner.ScannerOptions{})
	}

	var robots *policy.RobotsCache
	if target.ObeyRobots {
		robots = policy.NewRobotsCache(httpClient, log)
	}
	gate := policy.NewGate(policy.Options{
		Origin:     origin,
		MaxDepth:   target.MaxDepth,
		MaxLinks:   target.MaxLinks,
		ObeyRobots: target.ObeyRobots,
		Robots:     robots,
	})

	return &Crawler{
		httpClient:     httpClient,
		logger:         log,
		seed:           seed,
		maxConcurrency: maxConcurrency,
		gate:           gate,
		scanners:       manager,
		results:        reporter.NewAggregator(seed, gate.Visited().Len),
		claimedForms:   make(map[string]bool),
	}, nil
}

// Seed returns the normalized seed URL.
func (c *Crawler) Seed() string { return c.seed }

// Run crawls and probes until the frontier is exhausted or ctx is done, and
// always returns a report. An unexpected failure is recorded in the report's
// error field alongside everything gathered up to that point.
func (c *Crawler) Run(ctx context.Context) (report *reporter.Report) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Crawler: scan aborted: %v", r)
			report = c.results.Finalize(fmt.Errorf("internal error: %v", r))
		}
	}()

	c.logger.Info("Crawler: Starting scan of %s (max depth %d, concurrency %d)", c.seed, c.gate.MaxDepth(), c.maxConcurrency)

	frontier := c.admit(ctx, []string{c.seed}, 0)
	for depth := 0; len(frontier) > 0; depth++ {
		results := c.fetchLevel(ctx, frontier)
		c.claimForms(results)
		c.scanLevel(ctx, frontier, results)

		var next []string
		for i, res := range results {
			if res.skipReason != "" {
				c.results.Skip(frontier[i].URL, res.skipReason)
			}
			for _, f := range res.findings {
				c.results.Add(f)
			}
			next = append(next, res.children...)
		}

		if ctx.Err() != nil {
			c.logger.Warn("Crawler: Scan interrupted: %v", ctx.Err())
			return c.results.Finalize(ctx.Err())
		}
		frontier = c.admit(ctx, next, depth+1)
	}

	report = c.results.Finalize(nil)
	c.logger.Info("Crawler: Finished. %d URL(s) scanned, %d finding(s).", report.URLsScanned, len(report.Vulnerabilities))
	return report
}

// admit runs candidates through the gate in order and returns the jobs that
// were let in. Robots denials are recorded; the other denials are only logged.
func (c *Crawler) admit(ctx context.Context, candidates []string, depth int) []CrawlJob {
	var jobs []CrawlJob
	for _, candidate := range candidates {
		target, err := urlnorm.FetchTarget(candidate)
		if err != nil {
			c.logger.Trace("Crawler: Dropping unparsable URL %q", candidate)
			continue
		}
		decision := c.gate.Admit(ctx, target, depth)
		if decision.Allowed {
			jobs = append(jobs, CrawlJob{URL: target, Depth: depth})
			continue
		}
		if decision.Reason.Silent() {
			c.logger.Debug("Crawler: Not crawling %s: %s", target, decision.Reason)
			continue
		}
		c.logger.Info("Crawler: Skipping %s: %s", target, decision.Reason)
		c.results.Skip(target, string(decision.Reason))
	}
	return jobs
}

// fetchLevel fetches and extracts every job of the frontier and returns one
// result per job, indexed like the frontier.
func (c *Crawler) fetchLevel(ctx context.Context, frontier []CrawlJob) []pageResult {
	results := make([]pageResult, len(frontier))
	c.forEach(len(frontier), func(i int) {
		c.guard(frontier[i], &results[i], func() {
			results[i] = c.fetch(ctx, frontier[i])
		})
	})
	return results
}

// claimForms drops every form that an earlier page (or an earlier form on the
// same page) already claimed. A search page that re-renders its own form is
// therefore submitted once, from the first page it was seen on.
func (c *Crawler) claimForms(results []pageResult) {
	for i := range results {
		page := results[i].page
		if page == nil {
			continue
		}
		kept := page.Forms[:0:0]
		for _, form := range page.Forms {
			key := form.Key()
			if c.claimedForms[key] {
				c.logger.Trace("Crawler: Form %s already claimed, not submitting again from %s", key, page.URL)
				continue
			}
			c.claimedForms[key] = true
			kept = append(kept, form)
		}
		page.Forms = kept
	}
}

// scanLevel runs the scanners over every page fetched in this level.
func (c *Crawler) scanLevel(ctx context.Context, frontier []CrawlJob, results []pageResult) {
	c.forEach(len(results), func(i int) {
		if results[i].page == nil {
			return
		}
		c.guard(frontier[i], &results[i], func() {
			results[i].findings = c.scanners.ScanPage(ctx, *results[i].page)
		})
	})
}

// forEach calls fn for every index in [0, n) on at most maxConcurrency workers.
func (c *Crawler) forEach(n int, fn func(i int)) {
	queue := make(chan int)

	workers := c.maxConcurrency
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				fn(idx)
			}
		}()
	}
	for i := 0; i < n; i++ {
		queue <- i
	}
	close(queue)
	wg.Wait()
}

// guard confines a panic to the URL being processed. The URL's children are
// kept; its findings are not.
func (c *Crawler) guard(job CrawlJob, res *pageResult, step func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Crawler: internal error while processing %s: %v", job.URL, r)
			res.page = nil
			res.findings = nil
			res.skipReason = ReasonInternalError
		}
	}()
	step()
}

// fetch downloads one page, extracts it and returns the URLs it links to.
func (c *Crawler) fetch(ctx context.Context, job CrawlJob) pageResult {
	c.logger.Debug("Crawling: %s (Depth: %d)", job.URL, job.Depth)

	resp, err := c.httpClient.Fetch(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		c.logger.Warn("Failed to get content for %s: %v", job.URL, err)
		return pageResult{skipReason: ReasonFetchError}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Crawler: %s returned status %d, nothing extracted.", job.URL, resp.StatusCode)
		return pageResult{}
	}

	page := extractor.Extract(resp.Body, job.URL, resp.ContentType)
	c.logger.Trace("Crawler: %s has %d link(s), %d form(s), %d query parameter(s)", job.URL, len(page.Links), len(page.Forms), len(page.QueryParams))

	res := pageResult{page: &page}

	// Children of the last level would only be denied by the depth rule.
	if job.Depth < c.gate.MaxDepth() {
		res.children = append(res.children, page.Links...)
		for _, form := range page.Forms {
			res.children = append(res.children, form.Action)
		}
	}
	return res
}
