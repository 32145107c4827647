package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

// TestHealthAlwaysHealthy: liveness does not depend on dependencies.
func TestHealthAlwaysHealthy(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{
		DBChecker: stubChecker{err: errors.New("db down")},
	})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

// TestReady reports per-dependency state and flips to 503 on failure.
func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		config     HealthHandlersConfig
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checkers configured",
			config:     HealthHandlersConfig{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name: "all dependencies up",
			config: HealthHandlersConfig{
				DBChecker:    stubChecker{},
				RedisChecker: stubChecker{},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name: "database down",
			config: HealthHandlersConfig{
				DBChecker:    stubChecker{err: errors.New("dial refused")},
				RedisChecker: stubChecker{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "error", "redis": "ok"},
		},
		{
			name: "redis down",
			config: HealthHandlersConfig{
				DBChecker:    stubChecker{},
				RedisChecker: stubChecker{err: errors.New("dial refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandlers(tt.config)

			r := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			h.Ready(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			for check, want := range tt.wantChecks {
				if resp.Checks[check] != want {
					t.Errorf("checks[%q] = %q, want %q", check, resp.Checks[check], want)
				}
			}
		})
	}
}
