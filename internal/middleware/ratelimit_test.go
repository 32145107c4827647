package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestRateLimitConfigValidate rejects non-positive settings.
func TestRateLimitConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  RateLimitConfig
		wantErr bool
	}{
		{name: "valid", config: RateLimitConfig{RequestsPerWindow: 30, WindowDuration: time.Minute}},
		{name: "zero requests", config: RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}, wantErr: true},
		{name: "negative requests", config: RateLimitConfig{RequestsPerWindow: -1, WindowDuration: time.Minute}, wantErr: true},
		{name: "zero window", config: RateLimitConfig{RequestsPerWindow: 30}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestInMemoryStoreAllow: requests within the window limit pass, the
// next one is blocked with a positive retry-after.
func TestInMemoryStoreAllow(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := store.Allow(ctx, "viewer:v1", config)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "viewer:v1", config)
	if allowed {
		t.Error("fourth request should be blocked")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %d, want > 0", retryAfter)
	}

	// A different key has its own bucket.
	if allowed, _ := store.Allow(ctx, "viewer:v2", config); !allowed {
		t.Error("other viewer should not be affected")
	}
}

// TestInMemoryStoreWindowReset: an expired window starts fresh.
func TestInMemoryStoreWindowReset(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 10 * time.Millisecond}
	ctx := context.Background()

	if allowed, _ := store.Allow(ctx, "k", config); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := store.Allow(ctx, "k", config); allowed {
		t.Fatal("second request should be blocked")
	}

	time.Sleep(15 * time.Millisecond)

	if allowed, _ := store.Allow(ctx, "k", config); !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

// TestInMemoryStoreCleanup drops expired buckets only.
func TestInMemoryStoreCleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	ctx := context.Background()

	store.Allow(ctx, "short", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Millisecond})
	store.Allow(ctx, "long", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Hour})

	time.Sleep(5 * time.Millisecond)
	store.Cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.buckets["short"]; ok {
		t.Error("expired bucket not cleaned up")
	}
	if _, ok := store.buckets["long"]; !ok {
		t.Error("live bucket should survive cleanup")
	}
}

// TestRateLimiterMiddleware returns 429 with headers once the limit hits.
func TestRateLimiterMiddleware(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}

	handler := RateLimiter(store, config, IPKeyFunc(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("missing X-RateLimit-Reset header")
	}
}

// TestViewerKeyFunc prefers the viewer id over the IP.
func TestViewerKeyFunc(t *testing.T) {
	keyFunc := ViewerKeyFunc()

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := keyFunc(r); got != "ip:10.0.0.1" {
		t.Errorf("anonymous key = %q, want ip:10.0.0.1", got)
	}

	r = r.WithContext(SetViewerID(r.Context(), "v1"))
	if got := keyFunc(r); got != "viewer:v1" {
		t.Errorf("authenticated key = %q, want viewer:v1", got)
	}
}

// TestIPKeyFunc header precedence.
func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			name:   "remote addr",
			setup:  func(r *http.Request) { r.RemoteAddr = "192.168.1.5:9999" },
			expect: "192.168.1.5",
		},
		{
			name: "x-forwarded-for first hop wins",
			setup: func(r *http.Request) {
				r.RemoteAddr = "10.0.0.1:1234"
				r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			},
			expect: "203.0.113.7",
		},
		{
			name: "x-real-ip fallback",
			setup: func(r *http.Request) {
				r.RemoteAddr = "10.0.0.1:1234"
				r.Header.Set("X-Real-IP", "198.51.100.2")
			},
			expect: "198.51.100.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			tt.setup(r)
			if got := keyFunc(r); got != tt.expect {
				t.Errorf("key = %q, want %q", got, tt.expect)
			}
		})
	}
}
