package xss

import (
	"strings"

	"Vscan/internal/extractor"
	"Vscan/internal/scanner"
)

// Detect emits a finding iff the decoded response body contains payload as an
// exact substring. HTML-context escaping is not evaluated; a literal occurrence
// of the payload anywhere in the body counts.
func Detect(result scanner.ProbeResult, payload, pageURL string, site scanner.InjectionSite) (scanner.Finding, bool) {
	if payload == "" || len(result.Body) == 0 {
		return scanner.Finding{}, false
	}
	text := extractor.DecodeBody(result.Body, result.ContentType)
	if !strings.Contains(text, payload) {
		return scanner.Finding{}, false
	}
	return scanner.Finding{
		Kind:          scanner.KindXSS,
		Type:          scanner.TypeXSS,
		URL:           pageURL,
		InjectionSite: site,
		Payload:       payload,
	}, true
}
