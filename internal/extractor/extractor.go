package extractor

import (
	"bytes"
	"io"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"Vscan/internal/urlnorm"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// InputField is one named control inside a form.
type InputField struct {
	Name  string
	Type  string // lowercased; "text" when an <input> declares none, "textarea" / "select" for those elements
	Value string // declared default value
}

// FormDescriptor describes a form found on a page.
type FormDescriptor struct {
	Action string // absolute, resolved against the page URL
	Method string // "get" or "post"
	Inputs []InputField
}

// Key identifies a form independently of the page it was found on: method,
// action and the sorted names of its named fields.
func (f FormDescriptor) Key() string {
	names := make([]string, 0, len(f.Inputs))
	for _, in := range f.Inputs {
		if in.Name != "" {
			names = append(names, in.Name)
		}
	}
	sort.Strings(names)
	return f.Method + " " + f.Action + " [" + strings.Join(names, ",") + "]"
}

// Page is everything extracted from one fetched document.
type Page struct {
	URL         string
	Links       []string // absolute, deduplicated, in document order
	Forms       []FormDescriptor
	QueryParams []string // parameter names on the page's own URL, sorted
}

// textLikeTypes are the field types that receive the payload.
var textLikeTypes = map[string]bool{
	"text":     true,
	"search":   true,
	"email":    true,
	"url":      true,
	"password": true,
	"textarea": true,
}

// IsTextLike reports whether a field of this type gets the payload injected.
func (f InputField) IsTextLike() bool {
	return textLikeTypes[f.Type]
}

// Extract pulls links, forms and query parameter names out of body.
// Malformed markup never fails: on a parse error the link and form sets are empty.
func Extract(body []byte, pageURL, contentType string) Page {
	page := Page{
		URL:         pageURL,
		QueryParams: QueryParamNames(pageURL),
	}

	root, err := html.Parse(strings.NewReader(DecodeBody(body, contentType)))
	if err != nil {
		return page
	}
	doc := goquery.NewDocumentFromNode(root)

	// <base href> changes how relative references resolve.
	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved := urlnorm.Resolve(pageURL, href); resolved != "" {
			base = resolved
		}
	}

	page.Links = extractLinks(doc, base)
	page.Forms = extractForms(doc, base)
	return page
}

func extractLinks(doc *goquery.Document, base string) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved := urlnorm.Resolve(base, href)
		if resolved == "" || !urlnorm.IsHTTP(resolved) || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})
	return links
}

func extractForms(doc *goquery.Document, base string) []FormDescriptor {
	var forms []FormDescriptor
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		action, _ := form.Attr("action")
		resolved := urlnorm.Resolve(base, action)
		if resolved == "" || !urlnorm.IsHTTP(resolved) {
			return
		}

		fd := FormDescriptor{
			Action: resolved,
			Method: normalizeMethod(form.AttrOr("method", "")),
		}
		form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			fd.Inputs = append(fd.Inputs, describeField(field))
		})
		forms = append(forms, fd)
	})
	return forms
}

func describeField(field *goquery.Selection) InputField {
	in := InputField{Name: field.AttrOr("name", "")}
	switch goquery.NodeName(field) {
	case "textarea":
		in.Type = "textarea"
		in.Value = field.Text()
	case "select":
		in.Type = "select"
		opt := field.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = field.Find("option").First()
		}
		if v, ok := opt.Attr("value"); ok {
			in.Value = v
		} else {
			in.Value = strings.TrimSpace(opt.Text())
		}
	default:
		in.Type = strings.ToLower(strings.TrimSpace(field.AttrOr("type", "")))
		if in.Type == "" {
			in.Type = "text"
		}
		in.Value = field.AttrOr("value", "")
	}
	return in
}

func normalizeMethod(m string) string {
	if strings.EqualFold(strings.TrimSpace(m), "post") {
		return "post"
	}
	return "get"
}

// QueryParamNames returns the sorted distinct query parameter names of rawURL.
func QueryParamNames(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return nil
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil && len(values) == 0 {
		return nil
	}
	names := make([]string, 0, len(values))
	for k := range values {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// DecodeBody converts body to text. The encoding is guessed from the content type,
// a BOM or <meta> declarations; if decoding fails, invalid UTF-8 is dropped instead.
func DecodeBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && utf8.Valid(body) {
		return string(body)
	}
	if name != "utf-8" && enc != nil {
		if decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body))); err == nil {
			return string(decoded)
		}
	}
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "")
}
