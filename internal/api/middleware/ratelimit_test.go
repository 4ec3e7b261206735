package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lamitie/server/internal/config"
)

func TestRateLimitEnforcesPublicTier(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 3})
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(okHandler())

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", nil)
		req.RemoteAddr = "203.0.113.7:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 1})
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
		req.RemoteAddr = "203.0.113.7:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			if rec.Header().Get("Retry-After") == "" {
				t.Error("429 response should carry Retry-After")
			}
			return
		}
	}
	t.Fatal("second request should have been limited")
}

func TestRateLimitPerClientIsolation(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 1})
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", nil)
		req.RemoteAddr = fmt.Sprintf("203.0.113.%d:50000", i+1)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %d status = %d, limits should be per-address", i+1, rec.Code)
		}
	}
}

func TestRateLimitZeroDisablesTier(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{AdminPerMinute: 0})
	t.Cleanup(limiter.Stop)
	handler := WithRateLimitTierHandler(TierAdmin)(limiter.Middleware(okHandler()))

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
		req.RemoteAddr = "203.0.113.7:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, zero limit should disable the tier", i, rec.Code)
		}
	}
}

func TestRateLimitLoginTierIsSeparate(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 100, LoginPerMinute: 2})
	t.Cleanup(limiter.Stop)
	base := limiter.Middleware(okHandler())
	login := WithRateLimitTierHandler(TierLogin)(base)

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = "203.0.113.7:50000"
		rec := httptest.NewRecorder()
		login.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("login tier status = %d, want 429 after burst", last)
	}

	// Public tier for the same address is untouched.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", nil)
	req.RemoteAddr = "203.0.113.7:50000"
	rec := httptest.NewRecorder()
	base.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("public tier status = %d, tiers should be independent", rec.Code)
	}
}

func TestRateLimitSkipsHealthEndpoints(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 1})
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(okHandler())

	for _, path := range []string{"/healthz", "/readyz"} {
		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "203.0.113.7:50000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("%s request %d status = %d, probes must never be limited", path, i, rec.Code)
			}
		}
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:50000"
	if got := clientKey(req); got != "203.0.113.7" {
		t.Errorf("clientKey = %q, want bare address", got)
	}
}

func TestRateLimiterStillLimitsAfterStop(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 1})
	limiter.Stop()
	handler := limiter.Middleware(okHandler())

	var last int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", nil)
		req.RemoteAddr = "203.0.113.7:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after Stop = %d, limiting must survive cleanup shutdown", last)
	}
}
