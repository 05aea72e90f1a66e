// Package urlnorm canonicalizes URLs for fetching and for traversal dedup.
//
// Two independent modes exist. FetchTarget keeps the query string so that
// "?id=1" and "?id=2" stay distinct requests (parameter probing needs them).
// CrawlKey drops both query and fragment and is what the visited set stores.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolve resolves href against base and strips the fragment.
// It returns "" when either side cannot be parsed.
func Resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := b.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// FetchTarget returns the absolute URL with its fragment stripped.
// An empty path becomes "/", matching CrawlKey.
func FetchTarget(raw string) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" && u.RawPath == "" && u.Opaque == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// CrawlKey returns scheme://host/path with no query and no fragment.
// Scheme and host are lowercased; an empty path becomes "/".
func CrawlKey(raw string) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path, nil
}

// EnsureScheme prefixes "http://" when raw carries no scheme. A "://" only
// counts as the scheme separator when it precedes the first '/', '?' or '#',
// so "example.com/login?next=http://x" still gets a scheme.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if hasScheme(raw) {
		return raw
	}
	return "http://" + strings.TrimPrefix(raw, "//")
}

func hasScheme(raw string) bool {
	sep := strings.Index(raw, "://")
	if sep <= 0 {
		return false
	}
	return !strings.ContainsAny(raw[:sep], "/?#")
}

// Origin returns scheme://host of raw, the traversal boundary of a scan.
func Origin(raw string) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// Host returns the lowercased host (with port) of raw, or "" if unparsable.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameHost reports whether a and b share a host.
func SameHost(a, b string) bool {
	ha := Host(a)
	return ha != "" && ha == Host(b)
}

// IsHTTP reports whether raw uses the http or https scheme.
func IsHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url %q is not absolute", raw)
	}
	return u, nil
}
