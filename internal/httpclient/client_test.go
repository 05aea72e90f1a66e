package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"Vscan/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchGETWithParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Vscan/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "a="+r.URL.Query().Get("a")+" b="+r.URL.Query().Get("b"))
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{})
	resp, err := client.Fetch(context.Background(), "get", server.URL+"/p?a=1", url.Values{"b": {"<x>"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a=1 b=<x>", string(resp.Body))
	assert.Contains(t, resp.ContentType, "text/html")
}

func TestClient_FetchPOSTFormEncoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		io.WriteString(w, r.PostForm.Get("name"))
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{})
	resp, err := client.Fetch(context.Background(), "POST", server.URL, url.Values{"name": {"<script>alert(1)</script>"}})
	require.NoError(t, err)
	assert.Equal(t, "<script>alert(1)</script>", string(resp.Body))
}

func TestClient_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{})
	resp, err := client.Fetch(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClient_InvalidCertificateAccepted(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{})
	resp, err := client.Fetch(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(resp.Body))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{MaxRetries: 3})
	resp, err := client.Fetch(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(logger.Discard(), ClientOptions{Timeout: 100 * time.Millisecond})
	_, err := client.Fetch(context.Background(), http.MethodGet, server.URL, nil)
	assert.Error(t, err)
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient(logger.Discard(), ClientOptions{})
	_, err := client.Fetch(context.Background(), http.MethodGet, addr, nil)
	assert.Error(t, err)
}
