package xss

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"Vscan/internal/extractor"
	"Vscan/internal/httpclient"
	"Vscan/internal/logger"
	"Vscan/internal/payloads"
	"Vscan/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer reflects the "name" and "q" values unescaped and counts probes.
func echoServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body>Hello "+r.Form.Get("name")+" you searched "+r.Form.Get("q")+"</body></html>")
	}))
}

// encodingServer reflects values percent-encoded, so no payload survives verbatim.
func encodingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		io.WriteString(w, "<p>"+url.QueryEscape(r.Form.Get("name"))+url.QueryEscape(r.Form.Get("q"))+"</p>")
	}))
}

// flakyFetcher fails the first n requests, then delegates.
type flakyFetcher struct {
	next     httpclient.Fetcher
	failures int32
	calls    int32
}

func (f *flakyFetcher) Fetch(ctx context.Context, method, rawURL string, params url.Values) (*httpclient.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.Fetch(ctx, method, rawURL, params)
}

// recordingFetcher captures every request it sees.
type recordingFetcher struct {
	mu       sync.Mutex
	next     httpclient.Fetcher
	requests []string
	params   []url.Values
}

func (r *recordingFetcher) Fetch(ctx context.Context, method, rawURL string, params url.Values) (*httpclient.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, method+" "+rawURL)
	r.params = append(r.params, params)
	r.mu.Unlock()
	return r.next.Fetch(ctx, method, rawURL, params)
}

func newClient() *httpclient.Client {
	return httpclient.NewClient(logger.Discard(), httpclient.ClientOptions{})
}

func nameForm(action, method string) extractor.FormDescriptor {
	return extractor.FormDescriptor{
		Action: action,
		Method: method,
		Inputs: []extractor.InputField{
			{Name: "name", Type: "text"},
			{Name: "token", Type: "hidden", Value: "keep-me"},
			{Name: "", Type: "submit", Value: "Go"},
		},
	}
}

func TestScanForm_ReflectedFinding(t *testing.T) {
	for _, method := range []string{"get", "post"} {
		t.Run(method, func(t *testing.T) {
			var hits int32
			server := echoServer(t, &hits)
			defer server.Close()

			s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
			page := server.URL + "/contact"
			finding, ok := s.ScanForm(context.Background(), page, nameForm(server.URL+"/submit", method), newClient(), logger.Discard())

			require.True(t, ok)
			assert.Equal(t, "<script>alert(1)</script>", finding.Payload)
			assert.Equal(t, method, finding.FormMethod)
			assert.Equal(t, server.URL+"/submit", finding.FormAction)
			assert.Equal(t, page, finding.URL)
			assert.Equal(t, scanner.KindXSS, finding.Kind)
			assert.Empty(t, finding.Parameter)
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "probing stops after the first reflected payload")
		})
	}
}

func TestScanForm_FieldValues(t *testing.T) {
	var hits int32
	server := echoServer(t, &hits)
	defer server.Close()

	rec := &recordingFetcher{next: newClient()}
	s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
	_, ok := s.ScanForm(context.Background(), server.URL, nameForm(server.URL, "post"), rec, logger.Discard())
	require.True(t, ok)

	require.Len(t, rec.params, 1)
	assert.Equal(t, url.Values{
		"name":  {"<script>alert(1)</script>"},
		"token": {"keep-me"},
	}, rec.params[0])
	assert.Equal(t, "POST "+server.URL, rec.requests[0])
}

func TestScanForm_EscapedReflectionIsNotAFinding(t *testing.T) {
	server := encodingServer(t)
	defer server.Close()

	s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
	rec := &recordingFetcher{next: newClient()}
	_, ok := s.ScanForm(context.Background(), server.URL, nameForm(server.URL, "get"), rec, logger.Discard())
	assert.False(t, ok)
	assert.Len(t, rec.requests, len(payloads.XSSPayloads()), "every payload is tried")
}

func TestScanForm_TransportFailureDoesNotStopPayloads(t *testing.T) {
	var hits int32
	server := echoServer(t, &hits)
	defer server.Close()

	flaky := &flakyFetcher{next: newClient(), failures: 1}
	s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
	finding, ok := s.ScanForm(context.Background(), server.URL, nameForm(server.URL, "get"), flaky, logger.Discard())

	require.True(t, ok)
	assert.Equal(t, payloads.XSSPayloads()[1].Value, finding.Payload, "second payload is tried after the first one failed")
	assert.Equal(t, int32(2), atomic.LoadInt32(&flaky.calls))
}

func TestScanForm_NoInjectableFields(t *testing.T) {
	rec := &recordingFetcher{next: newClient()}
	form := extractor.FormDescriptor{
		Action: "http://127.0.0.1:1/",
		Method: "get",
		Inputs: []extractor.InputField{{Name: "id", Type: "hidden", Value: "1"}, {Type: "text"}},
	}
	s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
	_, ok := s.ScanForm(context.Background(), "http://127.0.0.1:1/", form, rec, logger.Discard())
	assert.False(t, ok)
	assert.Empty(t, rec.requests)
}

func TestScanner_CustomCatalogOrder(t *testing.T) {
	// Script tags are stripped; anything else comes back verbatim.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		v := r.Form.Get("name") + r.Form.Get("q")
		if strings.Contains(v, "<script") {
			v = ""
		}
		io.WriteString(w, "<p>"+v+"</p>")
	}))
	defer server.Close()

	catalog := []payloads.XSSPayload{
		{Value: `<script>alert(7)</script>`, Context: "HTML"},
		{Value: `<b onmouseover=alert(7)>x</b>`, Context: "HTML"},
		{Value: `<i onclick=alert(7)>never sent</i>`, Context: "HTML"},
	}
	s := NewReflectedXSSScannerWithPayloads(catalog).(*ReflectedXSSScanner)

	rec := &recordingFetcher{next: newClient()}
	finding, ok := s.ScanForm(context.Background(), server.URL+"/", nameForm(server.URL+"/submit", "post"), rec, logger.Discard())
	require.True(t, ok)
	assert.Equal(t, catalog[1].Value, finding.Payload)
	assert.Len(t, rec.requests, 2, "submissions stop at the first reflected payload")

	rec = &recordingFetcher{next: newClient()}
	finding, ok = s.ScanParam(context.Background(), server.URL+"/s?q=a", "q", rec, logger.Discard())
	require.True(t, ok)
	assert.Equal(t, catalog[1].Value, finding.Payload)
	assert.Len(t, rec.requests, 2)

	none := NewReflectedXSSScannerWithPayloads(catalog[:1]).(*ReflectedXSSScanner)
	_, ok = none.ScanForm(context.Background(), server.URL+"/", nameForm(server.URL+"/submit", "get"), newClient(), logger.Discard())
	assert.False(t, ok)
}

func TestScanParam_ReflectedFinding(t *testing.T) {
	var hits int32
	server := echoServer(t, &hits)
	defer server.Close()

	rec := &recordingFetcher{next: newClient()}
	s := NewReflectedXSSScanner().(*ReflectedXSSScanner)
	page := server.URL + "/search?q=hello&lang=en"
	finding, ok := s.ScanParam(context.Background(), page, "q", rec, logger.Discard())

	require.True(t, ok)
	assert.Equal(t, "q", finding.Parameter)
	assert.Equal(t, page, finding.URL)
	assert.Equal(t, "<script>alert(1)</script>", finding.Payload)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, "GET "+server.URL+"/search?q=%3Cscript%3Ealert%281%29%3C%2Fscript%3E&lang=en", rec.requests[0])
}

func TestScan_PageModes(t *testing.T) {
	var hits int32
	server := echoServer(t, &hits)
	defer server.Close()

	page := extractor.Page{
		URL:         server.URL + "/p?q=1",
		Forms:       []extractor.FormDescriptor{nameForm(server.URL+"/f", "post")},
		QueryParams: []string{"q"},
	}
	s := NewReflectedXSSScanner()

	both, err := s.Scan(context.Background(), page, newClient(), logger.Discard(), scanner.ScannerOptions{ProbeForms: true, ProbeParams: true})
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "post", both[0].FormMethod)
	assert.Equal(t, "q", both[1].Parameter)

	formsOnly, err := s.Scan(context.Background(), page, newClient(), logger.Discard(), scanner.ScannerOptions{ProbeForms: true})
	require.NoError(t, err)
	require.Len(t, formsOnly, 1)
	assert.Empty(t, formsOnly[0].Parameter)
}

func TestReplaceQueryParam(t *testing.T) {
	got, ok := ReplaceQueryParam("http://x.y/s?a=1&q=hello&b=%20z", "q", `"><b>`)
	require.True(t, ok)
	assert.Equal(t, "http://x.y/s?a=1&q=%22%3E%3Cb%3E&b=%20z", got)

	got, ok = ReplaceQueryParam("http://x.y/s?q=1&q=2", "q", "v")
	require.True(t, ok)
	assert.Equal(t, "http://x.y/s?q=v&q=v", got)

	_, ok = ReplaceQueryParam("http://x.y/s?a=1", "q", "v")
	assert.False(t, ok)
	_, ok = ReplaceQueryParam("http://x.y/s", "q", "v")
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	site := scanner.InjectionSite{Parameter: "q"}
	payload := "<script>alert(1)</script>"

	_, ok := Detect(scanner.ProbeResult{Body: []byte("<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>")}, payload, "http://x/", site)
	assert.False(t, ok, "escaped reflection")

	_, ok = Detect(scanner.ProbeResult{}, payload, "http://x/", site)
	assert.False(t, ok, "empty body")

	f, ok := Detect(scanner.ProbeResult{StatusCode: 500, Body: []byte("error: " + payload)}, payload, "http://x/", site)
	assert.True(t, ok, "status does not matter")
	assert.Equal(t, "q", f.Parameter)

	// Static content mentioning the payload is still flagged.
	_, ok = Detect(scanner.ProbeResult{Body: []byte("Blog: never echo " + payload + " unescaped")}, payload, "http://x/", site)
	assert.True(t, ok)

	latin1 := append([]byte{0xe9, ' '}, []byte(payload)...)
	_, ok = Detect(scanner.ProbeResult{Body: latin1, ContentType: "text/html; charset=iso-8859-1"}, payload, "http://x/", site)
	assert.True(t, ok)
}

func TestBuildFormData(t *testing.T) {
	form := extractor.FormDescriptor{Inputs: []extractor.InputField{
		{Name: "q", Type: "search"},
		{Name: "mail", Type: "email", Value: "a@b.c"},
		{Name: "body", Type: "textarea", Value: "x"},
		{Name: "pick", Type: "select", Value: "blue"},
		{Name: "agree", Type: "checkbox", Value: "on"},
		{Type: "text"},
	}}
	assert.Equal(t, url.Values{
		"q":     {"P"},
		"mail":  {"P"},
		"body":  {"P"},
		"pick":  {"blue"},
		"agree": {"on"},
	}, BuildFormData(form, "P"))
}
