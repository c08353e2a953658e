package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWithinWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}

	*now = now.Add(30 * time.Second)
	if rl.Allow("1.2.3.4") {
		t.Fatal("window has not reset yet")
	}

	*now = now.Add(31 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window should have reset")
	}

	if m := rl.GetMetrics(); m.Rejected != 2 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("a")
	*now = now.Add(5 * time.Minute)
	rl.Allow("b")
	*now = now.Add(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("expected 1 stale entry, got %d", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("expected 1 client left, got %d", rl.ActiveClients())
	}
}

func TestDefaultsAndStop(t *testing.T) {
	rl := NewLimiter(Config{})
	if rl.requestsPerMinute != 60 || rl.cleanupInterval != 5*time.Minute {
		t.Fatalf("defaults not applied: %d %v", rl.requestsPerMinute, rl.cleanupInterval)
	}
	rl.Stop()
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(func(r *http.Request) string { return "client" }, nil, http.MethodPost)(ok)

	send := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr
	}

	if rr := send(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST: %d", rr.Code)
	}
	rr := send(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST should be limited, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", rr.Header().Get("Retry-After"))
	}
	for i := 0; i < 3; i++ {
		if rr := send(http.MethodGet); rr.Code != http.StatusNoContent {
			t.Fatalf("GET should not be limited, got %d", rr.Code)
		}
	}
}
