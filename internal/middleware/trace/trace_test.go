package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "tracker/internal/log"
)

func newTestMiddleware() (*Middleware, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Component: applog.ComponentHTTP, Output: &buf})
	return NewMiddleware(logger, func(r *http.Request) string { return "9.9.9.9" }), &buf
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m, buf := newTestMiddleware()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a UUID", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q does not match %q", rr.Header().Get(HeaderRequestID), seen)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "inside handler", "status_code=418", "client_ip=9.9.9.9", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in log output", want)
		}
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Errorf("unexpected metrics %+v", m.GetMetrics())
	}
}

func TestMiddlewareExtendsContextLogger(t *testing.T) {
	m, traceBuf := newTestMiddleware()

	var reqBuf bytes.Buffer
	reqLogger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP, Output: &reqBuf})

	var seen string
	h := applog.Middleware(reqLogger)(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := reqBuf.String()
	if !strings.Contains(out, "inside handler") || !strings.Contains(out, "request_id="+seen) {
		t.Fatalf("handler log should go to the context logger with the request id, got %q", out)
	}
	if strings.Contains(traceBuf.String(), "inside handler") {
		t.Fatal("handler log leaked into the trace logger")
	}
}

func TestMiddlewareReusesValidClientID(t *testing.T) {
	m, _ := newTestMiddleware()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(HeaderRequestID) != id {
		t.Errorf("expected client id to be reused")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got == "<script>" || got == "" {
		t.Errorf("invalid client id should be replaced, got %q", got)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
