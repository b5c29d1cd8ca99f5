package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fluxo/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	return NewMiddleware(log.New(log.Config{Output: buf}), func(*http.Request) string { return "10.0.0.1" })
}

func TestMiddlewareSetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "handler")
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entries", nil))

	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("header %q, context %q", got, seen)
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=201") || !strings.Contains(out, "request_id="+seen) {
		t.Errorf("log output missing fields: %s", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddlewareReusesIncomingID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		in    string
		reuse bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
		req.Header.Set(HeaderRequestID, tt.in)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get(HeaderRequestID) == tt.in; got != tt.reuse {
			t.Errorf("id %q reused = %v, want %v", tt.in, got, tt.reuse)
		}
	}
}

func TestResponseWriterFlushes(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer is not a Flusher")
		}
		_, _ = w.Write([]byte("data: x\n\n"))
		f.Flush()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary/stream", nil))
	if !rec.Flushed {
		t.Error("recorder was not flushed")
	}
}

func TestServerErrorsCounted(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Errorf("ServerErrors = %d", got)
	}
}
