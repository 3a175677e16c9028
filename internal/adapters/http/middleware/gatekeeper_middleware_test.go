package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JeanGrijp/coachgate/internal/adapters/storage/memory"
	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/services"
)

var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router http.Handler
	clock  *testClock
	hits   int
}

func newTestServer(t *testing.T, production bool, rule domain.RateLimitRule) *testServer {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	limiter, err := services.NewRateLimiterService(memory.New(), services.Config{Rule: rule, Clock: clock.Now})
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	gk, err := services.NewGatekeeperService(limiter, services.GatekeeperConfig{
		Production:     production,
		AllowedOrigins: []string{"https://app.example.com"},
		Policy:         domain.DefaultPolicy(),
	})
	if err != nil {
		t.Fatalf("gatekeeper: %v", err)
	}

	ts := &testServer{clock: clock}
	r := chi.NewRouter()
	r.Use(NewGatekeeperMiddleware(gk, GatekeeperOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}))
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		ts.hits++
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func newRequest(path string, remote string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected json error body, got %q: %v", w.Body.String(), err)
	}
	return body["detail"]
}

var defaultRule = domain.RateLimitRule{Requests: 100, Window: 60 * time.Second}

func TestGatekeeperMiddleware_ExemptPathsAreUntouched(t *testing.T) {
	ts := newTestServer(t, true, domain.RateLimitRule{Requests: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		for _, path := range []string{"/health", "/static/app", "/img/logo.png"} {
			w := ts.do(newRequest(path, "10.0.0.1:1234", map[string]string{
				"User-Agent": "curl/8.4.0",
				"Origin":     "https://evil.example",
			}))
			if w.Code != http.StatusOK {
				t.Fatalf("expected exempt path %s to pass, got %d", path, w.Code)
			}
			if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
				t.Fatalf("expected exempt response untouched, got X-Frame-Options=%q", got)
			}
			if w.Header().Get("Strict-Transport-Security") != "" || w.Header().Get("X-Content-Type-Options") != "" {
				t.Fatalf("expected no security headers on exempt path %s", path)
			}
		}
	}
}

func TestGatekeeperMiddleware_BlocksToolsInProduction(t *testing.T) {
	ts := newTestServer(t, true, defaultRule)

	w := ts.do(newRequest("/dashboard", "10.0.0.1:1234", map[string]string{"User-Agent": "curl/8.4.0"}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(detail(t, w), "Direct API access") {
		t.Fatalf("unexpected detail %q", detail(t, w))
	}
	if ts.hits != 0 {
		t.Fatalf("blocked request must not reach the handler")
	}

	w = ts.do(newRequest("/dashboard", "10.0.0.1:1234", map[string]string{
		"User-Agent":    "curl/8.4.0",
		"Authorization": "Bearer xyz",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected bearer request to be forwarded, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_OriginValidation(t *testing.T) {
	ts := newTestServer(t, true, defaultRule)

	w := ts.do(newRequest("/api/plans", "10.0.0.1:1234", map[string]string{"Origin": "https://evil.example"}))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if got := detail(t, w); got != "Invalid request origin" {
		t.Fatalf("unexpected detail %q", got)
	}

	w = ts.do(newRequest("/api/plans", "10.0.0.1:1234", map[string]string{"Origin": "https://app.example.com"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected allowed origin to be forwarded, got %d", w.Code)
	}

	w = ts.do(newRequest("/api/plans", "10.0.0.1:1234", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without origin or authorization, got %d", w.Code)
	}

	w = ts.do(newRequest("/api/plans", "10.0.0.1:1234", map[string]string{"Authorization": "Token abc"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected authorization header to stand in for origin, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_AuthEndpointsSkipToolAndOriginChecks(t *testing.T) {
	ts := newTestServer(t, true, domain.RateLimitRule{Requests: 2, Window: time.Minute})
	headers := map[string]string{"User-Agent": "curl/8.4.0", "Origin": "https://evil.example"}

	for i := 0; i < 2; i++ {
		w := ts.do(newRequest("/api/auth/login", "10.0.0.1:1234", headers))
		if w.Code != http.StatusOK {
			t.Fatalf("expected login attempt %d to be forwarded, got %d", i+1, w.Code)
		}
	}

	w := ts.do(newRequest("/api/auth/login", "10.0.0.1:1234", headers))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected auth endpoint to be rate limited, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_DevelopmentSkipsToolAndOriginChecks(t *testing.T) {
	ts := newTestServer(t, false, defaultRule)

	w := ts.do(newRequest("/api/plans", "10.0.0.1:1234", map[string]string{
		"User-Agent": "curl/8.4.0",
		"Origin":     "https://evil.example",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected development request to pass, got %d", w.Code)
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("expected no HSTS outside production")
	}
	for name, want := range securityHeaders {
		if got := w.Header().Get(name); got != want {
			t.Fatalf("expected %s=%q, got %q", name, want, got)
		}
	}
}

func TestGatekeeperMiddleware_RateLimitWindow(t *testing.T) {
	ts := newTestServer(t, false, defaultRule)

	for i := 0; i < 100; i++ {
		w := ts.do(newRequest("/api/plans", "10.0.0.1:1234", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected request %d to succeed, got %d", i+1, w.Code)
		}
		ts.clock.Advance(100 * time.Millisecond)
	}

	w := ts.do(newRequest("/api/plans", "10.0.0.1:1234", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for request 101, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
	if got := detail(t, w); got != "Rate limit exceeded" {
		t.Fatalf("unexpected detail %q", got)
	}

	ts.clock.Advance(61 * time.Second)
	w = ts.do(newRequest("/api/plans", "10.0.0.1:1234", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected request after window to succeed, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_RejectedRequestIsNotCounted(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitRule{Requests: 1, Window: 10 * time.Second})

	if w := ts.do(newRequest("/api/x", "10.0.0.1:1234", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", w.Code)
	}

	ts.clock.Advance(9 * time.Second)
	if w := ts.do(newRequest("/api/x", "10.0.0.1:1234", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside window, got %d", w.Code)
	}

	// The window rolls over for the first hit only; the 429 at +9s left no trace.
	ts.clock.Advance(1 * time.Second)
	if w := ts.do(newRequest("/api/x", "10.0.0.1:1234", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected exactly one request allowed after rollover, got %d", w.Code)
	}
	if w := ts.do(newRequest("/api/x", "10.0.0.1:1234", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the cap to apply again, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_KeysAreIsolated(t *testing.T) {
	ts := newTestServer(t, false, domain.RateLimitRule{Requests: 1, Window: time.Minute})

	if w := ts.do(newRequest("/api/x", "10.0.0.1:1234", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", w.Code)
	}
	if w := ts.do(newRequest("/api/x", "10.0.0.1:5678", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected same ip and path to be limited regardless of port, got %d", w.Code)
	}
	if w := ts.do(newRequest("/api/y", "10.0.0.1:1234", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected other path to be independent, got %d", w.Code)
	}
	if w := ts.do(newRequest("/api/x", "10.0.0.2:1234", nil)); w.Code != http.StatusOK {
		t.Fatalf("expected other ip to be independent, got %d", w.Code)
	}
}

func TestGatekeeperMiddleware_ProductionHeaders(t *testing.T) {
	ts := newTestServer(t, true, defaultRule)

	w := ts.do(newRequest("/dashboard", "10.0.0.1:1234", map[string]string{"User-Agent": "Mozilla/5.0"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for name, want := range securityHeaders {
		if got := w.Header().Get(name); got != want {
			t.Fatalf("expected %s=%q, got %q", name, want, got)
		}
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS header %q", got)
	}
}

func TestGatekeeperMiddleware_HeadersOnSilentHandler(t *testing.T) {
	gk, err := services.NewGatekeeperService(allowAll{}, services.GatekeeperConfig{Policy: domain.DefaultPolicy()})
	if err != nil {
		t.Fatalf("gatekeeper: %v", err)
	}
	h := NewGatekeeperMiddleware(gk, GatekeeperOptions{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newRequest("/api/x", "10.0.0.1:1234", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected headers even when the handler writes nothing, got %q", got)
	}
}

func TestGatekeeperMiddleware_StorageFailureIsServerError(t *testing.T) {
	gk, err := services.NewGatekeeperService(failingLimiter{}, services.GatekeeperConfig{Policy: domain.DefaultPolicy()})
	if err != nil {
		t.Fatalf("gatekeeper: %v", err)
	}
	called := false
	h := NewGatekeeperMiddleware(gk, GatekeeperOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newRequest("/api/x", "10.0.0.1:1234", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if called {
		t.Fatalf("handler must not run when the gatekeeper fails")
	}
}

func TestClientIP(t *testing.T) {
	req := newRequest("/", "10.0.0.1:1234", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		"X-Real-IP":       "198.51.100.2",
	})

	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Fatalf("expected remote address without proxy trust, got %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req, true); got != "198.51.100.2" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.RemoteAddr = ""
	if got := clientIP(req, false); got != "unknown" {
		t.Fatalf("expected unknown for empty remote address, got %q", got)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id in context and header, got %q / %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming request id to be reused, got %q", seen)
	}
}

type allowAll struct{}

func (allowAll) Allow(_ context.Context, req domain.RateLimitRequest) (domain.Decision, error) {
	return domain.Decision{Allowed: true, Identifier: req.Key()}, nil
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, domain.RateLimitRequest) (domain.Decision, error) {
	return domain.Decision{}, errors.New("redis: connection refused")
}
