// Package policy decides whether a discovered URL may be fetched.
package policy

import (
	"context"
	"errors"

	"Vscan/internal/urlnorm"
)

// MaxTraversalDepth is the hard depth ceiling. It applies regardless of the
// depth a caller asks for.
const MaxTraversalDepth = 3

// Reason explains a gate decision.
type Reason string

const (
	ReasonAllowed           Reason = "allowed"
	ReasonInvalidURL        Reason = "invalid_url"
	ReasonVisited           Reason = "already_visited"
	ReasonOffDomain         Reason = "off_domain"
	ReasonLinkLimit         Reason = "link_limit"
	ReasonRobotsDisallowed  Reason = "robots_disallowed"
	ReasonRobotsUnavailable Reason = "robots_unavailable"
	ReasonDepth             Reason = "depth_exceeded"
)

// Silent reports whether a denial only stops its branch without being recorded.
func (r Reason) Silent() bool {
	switch r {
	case ReasonRobotsDisallowed, ReasonRobotsUnavailable:
		return false
	}
	return true
}

// Decision is the outcome of Gate.Admit.
type Decision struct {
	Allowed bool
	Reason  Reason
	Key     string // crawl key of the candidate, empty if it could not be parsed
}

// Options configures a Gate.
type Options struct {
	Origin     string // scheme://host traversal boundary
	MaxDepth   int    // caller-supplied depth, clamped to MaxTraversalDepth
	MaxLinks   int    // VisitedSet ceiling, 0 = unbounded
	ObeyRobots bool
	Robots     *RobotsCache
	VisitedSet *VisitedSet
}

// Gate applies, in order: visited, same host, link limit, robots, depth.
// An allowed URL is inserted into the visited set in the same step.
type Gate struct {
	opts     Options
	maxDepth int
}

// NewGate builds a gate. A nil VisitedSet is replaced with an empty one.
func NewGate(opts Options) *Gate {
	if opts.VisitedSet == nil {
		opts.VisitedSet = NewVisitedSet()
	}
	depth := opts.MaxDepth
	if depth < 0 || depth > MaxTraversalDepth {
		depth = MaxTraversalDepth
	}
	return &Gate{opts: opts, maxDepth: depth}
}

// MaxDepth returns the effective depth bound.
func (g *Gate) MaxDepth() int { return g.maxDepth }

// Visited exposes the set the gate admits into.
func (g *Gate) Visited() *VisitedSet { return g.opts.VisitedSet }

// Admit evaluates candidate at depth and, when allowed, records its crawl key.
func (g *Gate) Admit(ctx context.Context, candidate string, depth int) Decision {
	key, err := urlnorm.CrawlKey(candidate)
	if err != nil {
		return Decision{Reason: ReasonInvalidURL}
	}
	visited := g.opts.VisitedSet

	if visited.Contains(key) {
		return Decision{Reason: ReasonVisited, Key: key}
	}
	if !urlnorm.SameHost(candidate, g.opts.Origin) {
		return Decision{Reason: ReasonOffDomain, Key: key}
	}
	if g.opts.MaxLinks > 0 && visited.Len() >= g.opts.MaxLinks {
		return Decision{Reason: ReasonLinkLimit, Key: key}
	}
	if g.opts.ObeyRobots && g.opts.Robots != nil {
		ok, err := g.opts.Robots.Allowed(ctx, g.opts.Origin, candidate)
		if err != nil {
			if errors.Is(err, ErrRobotsUnavailable) {
				return Decision{Reason: ReasonRobotsUnavailable, Key: key}
			}
			return Decision{Reason: ReasonRobotsDisallowed, Key: key}
		}
		if !ok {
			return Decision{Reason: ReasonRobotsDisallowed, Key: key}
		}
	}
	if depth > g.maxDepth {
		return Decision{Reason: ReasonDepth, Key: key}
	}

	// Another worker may have admitted the key since the checks above.
	added, full := visited.Add(key, g.opts.MaxLinks)
	switch {
	case full:
		return Decision{Reason: ReasonLinkLimit, Key: key}
	case !added:
		return Decision{Reason: ReasonVisited, Key: key}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed, Key: key}
}
