package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenBucket_Exhaustion(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if tb.Allow() {
		t.Error("bucket should be empty")
	}
}

func TestRateLimiter_IsolatesKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("first client should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first client should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second client must have its own bucket")
	}
}

func TestClientIP(t *testing.T) {
	if ip := clientIP("203.0.113.7:40001"); ip != "203.0.113.7" {
		t.Errorf("clientIP = %q, want host only", ip)
	}
	if ip := clientIP("[::1]:8080"); ip != "::1" {
		t.Errorf("clientIP = %q, want ::1", ip)
	}
	// no port at all: pass through unchanged
	if ip := clientIP("203.0.113.7"); ip != "203.0.113.7" {
		t.Errorf("clientIP = %q, want passthrough", ip)
	}
}

func doRequest(h http.Handler, path, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Requests from the same host must share one bucket regardless of the
// ephemeral source port.
func TestRateLimitMiddleware_SharedBucketAcrossPorts(t *testing.T) {
	h := RateLimitMiddleware(1, 1)(okHandler())

	if code := doRequest(h, "/api/history", "203.0.113.7:40001"); code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", code)
	}
	if code := doRequest(h, "/api/history", "203.0.113.7:40002"); code != http.StatusTooManyRequests {
		t.Fatalf("second request from a new port status = %d, want 429", code)
	}
	if code := doRequest(h, "/api/history", "198.51.100.9:40001"); code != http.StatusOK {
		t.Errorf("different host status = %d, want 200", code)
	}
}

func TestRateLimitMiddleware_ExemptsOperationalEndpoints(t *testing.T) {
	h := RateLimitMiddleware(1, 1)(okHandler())

	// exhaust the client's bucket
	if code := doRequest(h, "/api/history", "203.0.113.7:40001"); code != http.StatusOK {
		t.Fatalf("setup request status = %d", code)
	}
	if code := doRequest(h, "/api/history", "203.0.113.7:40001"); code != http.StatusTooManyRequests {
		t.Fatalf("throttle not engaged: %d", code)
	}

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		if code := doRequest(h, path, "203.0.113.7:40001"); code != http.StatusOK {
			t.Errorf("%s status = %d, want 200 for a throttled client", path, code)
		}
	}
}
