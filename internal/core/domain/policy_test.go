package domain

import (
	"testing"
	"time"
)

func TestPolicy_IsExempt(t *testing.T) {
	p := DefaultPolicy()

	for _, path := range []string{"/health", "/api/test", "/static/app.bundle", "/assets/logo", "/img/logo.PNG", "/manifest.json"} {
		if !p.IsExempt(path) {
			t.Fatalf("expected %q to be exempt", path)
		}
	}
	for _, path := range []string{"/api/users", "/api/health/deep", "/healthcheck", "/", "/api/auth/login"} {
		if p.IsExempt(path) {
			t.Fatalf("expected %q not to be exempt", path)
		}
	}
}

func TestPolicy_IsBlockedAgent(t *testing.T) {
	p := DefaultPolicy()

	if !p.IsBlockedAgent("curl/8.4.0") {
		t.Fatalf("expected curl to be blocked")
	}
	if !p.IsBlockedAgent("PostmanRuntime/7.36.0") {
		t.Fatalf("expected postman to be blocked regardless of case")
	}
	if p.IsBlockedAgent("Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0") {
		t.Fatalf("expected browser agent to pass")
	}
	if p.IsBlockedAgent("") {
		t.Fatalf("expected empty agent to pass")
	}
}

func TestPolicy_AuthAndAPI(t *testing.T) {
	p := DefaultPolicy()

	if !p.IsAuthEndpoint("/api/auth/login") || !p.IsAuthEndpoint("/api/auth/register") {
		t.Fatalf("expected login and register to be auth endpoints")
	}
	if p.IsAuthEndpoint("/api/auth/login/extra") {
		t.Fatalf("auth endpoints must match exactly")
	}
	if !p.IsAPI("/api/plans") || p.IsAPI("/dashboard") {
		t.Fatalf("unexpected API prefix classification")
	}
}

func TestHasBearerToken(t *testing.T) {
	if !HasBearerToken("Bearer xyz") {
		t.Fatalf("expected bearer token to be recognised")
	}
	if HasBearerToken("Basic abc") || HasBearerToken("bearer xyz") || HasBearerToken("") {
		t.Fatalf("expected non-bearer values to be rejected")
	}
}

func TestRateLimitRule_RetryAfterSeconds(t *testing.T) {
	if got := (RateLimitRule{Requests: 1, Window: time.Minute}).RetryAfterSeconds(); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := (RateLimitRule{Requests: 1, Window: 1500 * time.Millisecond}).RetryAfterSeconds(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := (RateLimitRule{Requests: 1, Window: time.Millisecond}).RetryAfterSeconds(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestRateLimitRequest_Key(t *testing.T) {
	key := RateLimitRequest{ClientIP: " 10.0.0.1 ", Path: "/api/x"}.Key()
	if key != "10.0.0.1:/api/x" {
		t.Fatalf("unexpected key %q", key)
	}
}
