package xss

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"Vscan/internal/extractor"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
	"Vscan/internal/payloads"
	"Vscan/internal/scanner"
)

// --- Reflected XSS Scanner ---

type ReflectedXSSScanner struct {
	payloads []payloads.XSSPayload
}

func NewReflectedXSSScanner() scanner.Scanner {
	return &ReflectedXSSScanner{payloads: payloads.XSSPayloads()}
}

// NewReflectedXSSScannerWithPayloads uses a custom catalog instead of the built-in one.
func NewReflectedXSSScannerWithPayloads(list []payloads.XSSPayload) scanner.Scanner {
	return &ReflectedXSSScanner{payloads: list}
}

func (s *ReflectedXSSScanner) Name() string { return "xss-reflected" }

func (s *ReflectedXSSScanner) Scan(ctx context.Context, page extractor.Page, fetcher httpclient.Fetcher, log *logger.Logger, opts scanner.ScannerOptions) ([]scanner.Finding, error) {
	var findings []scanner.Finding

	if opts.ProbeForms {
		log.Debug("[%s] %d form(s) on %s", s.Name(), len(page.Forms), page.URL)
		for _, form := range page.Forms {
			if f, ok := s.ScanForm(ctx, page.URL, form, fetcher, log); ok {
				findings = append(findings, f)
			}
		}
	}

	if opts.ProbeParams {
		for _, param := range page.QueryParams {
			if f, ok := s.ScanParam(ctx, page.URL, param, fetcher, log); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings, nil
}

// ScanForm submits the form once per payload and stops at the first reflection.
// A failed submission is logged and the next payload is tried.
func (s *ReflectedXSSScanner) ScanForm(ctx context.Context, pageURL string, form extractor.FormDescriptor, fetcher httpclient.Fetcher, log *logger.Logger) (scanner.Finding, bool) {
	if !hasInjectableField(form) {
		log.Debug("[%s] Skipping form %s: no text-like named fields.", s.Name(), form.Action)
		return scanner.Finding{}, false
	}
	site := scanner.InjectionSite{FormAction: form.Action, FormMethod: form.Method}

	for _, p := range s.payloads {
		data := BuildFormData(form, p.Value)
		method := http.MethodGet
		if form.Method == "post" {
			method = http.MethodPost
		}

		resp, err := fetcher.Fetch(ctx, method, form.Action, data)
		if err != nil {
			log.Warn("[%s] Error submitting form to %s: %v", s.Name(), form.Action, err)
			continue
		}
		result := scanner.ProbeResult{StatusCode: resp.StatusCode, Body: resp.Body, ContentType: resp.ContentType}
		if finding, ok := Detect(result, p.Value, pageURL, site); ok {
			log.Success("Reflected XSS on %s via %s with payload %s", pageURL, site, p.Value)
			return finding, true
		}
	}
	return scanner.Finding{}, false
}

// ScanParam replaces one query parameter of pageURL with each payload in turn
// and stops at the first reflection. Other parameters are left untouched.
func (s *ReflectedXSSScanner) ScanParam(ctx context.Context, pageURL, param string, fetcher httpclient.Fetcher, log *logger.Logger) (scanner.Finding, bool) {
	site := scanner.InjectionSite{Parameter: param}

	for _, p := range s.payloads {
		testURL, ok := ReplaceQueryParam(pageURL, param, p.Value)
		if !ok {
			return scanner.Finding{}, false
		}

		resp, err := fetcher.Fetch(ctx, http.MethodGet, testURL, nil)
		if err != nil {
			log.Warn("[%s] Error testing parameter '%s' on %s: %v", s.Name(), param, pageURL, err)
			continue
		}
		result := scanner.ProbeResult{StatusCode: resp.StatusCode, Body: resp.Body, ContentType: resp.ContentType}
		if finding, ok := Detect(result, p.Value, pageURL, site); ok {
			log.Success("Reflected XSS on %s via %s with payload %s", pageURL, site, p.Value)
			return finding, true
		}
	}
	return scanner.Finding{}, false
}

// BuildFormData sets every text-like named field to payload and every other
// named field to its declared default. Unnamed fields are not submitted.
func BuildFormData(form extractor.FormDescriptor, payload string) url.Values {
	data := url.Values{}
	for _, in := range form.Inputs {
		if in.Name == "" {
			continue
		}
		if in.IsTextLike() {
			data.Set(in.Name, payload)
		} else {
			data.Set(in.Name, in.Value)
		}
	}
	return data
}

// ReplaceQueryParam rewrites every occurrence of param in rawURL's query with
// the URL-encoded value. The other query segments are kept byte for byte.
func ReplaceQueryParam(rawURL, param, value string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return "", false
	}
	segments := strings.Split(u.RawQuery, "&")
	replaced := false
	for i, seg := range segments {
		rawKey, _, _ := strings.Cut(seg, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		if key == param {
			segments[i] = rawKey + "=" + url.QueryEscape(value)
			replaced = true
		}
	}
	if !replaced {
		return "", false
	}
	u.RawQuery = strings.Join(segments, "&")
	return u.String(), true
}

func hasInjectableField(form extractor.FormDescriptor) bool {
	for _, in := range form.Inputs {
		if in.Name != "" && in.IsTextLike() {
			return true
		}
	}
	return false
}
