package scanner

import "strings"

// KindXSS is the only finding kind this engine produces.
const KindXSS = "XSS"

// TypeXSS is the human readable finding type used in reports.
const TypeXSS = "Cross-Site Scripting (XSS)"

// InjectionSite says where a payload went: a form (action and method) or a
// query parameter. Exactly one of the two shapes is populated.
type InjectionSite struct {
	FormAction string `json:"form_action,omitempty"`
	FormMethod string `json:"form_method,omitempty"`
	Parameter  string `json:"parameter,omitempty"`
}

// String renders the site for logs.
func (s InjectionSite) String() string {
	if s.Parameter != "" {
		return "parameter " + s.Parameter
	}
	return "form " + strings.ToUpper(s.FormMethod) + " " + s.FormAction
}

// Finding is one detected reflection. It is never modified after creation.
type Finding struct {
	Kind string `json:"kind"`
	Type string `json:"type"`
	URL  string `json:"url"`
	InjectionSite
	Payload string `json:"payload"`
}

// Key is the dedup identity of a finding: every field of the tuple.
func (f Finding) Key() string {
	return strings.Join([]string{f.Kind, f.URL, f.FormAction, f.FormMethod, f.Parameter, f.Payload}, "\x00")
}

// ProbeResult is the response to one injected request. It is consumed
// immediately by the detector.
type ProbeResult struct {
	StatusCode  int
	Body        []byte
	ContentType string
}
