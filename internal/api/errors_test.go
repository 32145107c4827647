package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vicinity-social/vicinity-feed/internal/feed"
	"github.com/vicinity-social/vicinity-feed/internal/middleware"
)

// TestWriteError emits the standard envelope with the right status.
func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, "searchRadius must be > 0")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeValidation)
	}
	if resp.Error.Message != "searchRadius must be > 0" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

// TestStatusCodeMapping covers the code-to-status table.
func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeAuthFailed, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeDependency, http.StatusBadGateway},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StatusCodeMapping(tt.code); got != tt.want {
				t.Errorf("StatusCodeMapping(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

// failingStore always errors, for exercising the dependency_failed path.
type failingStore struct{}

func (failingStore) CandidatesNear(ctx context.Context, loc feed.Location, radiusMeters float64) ([]feed.Post, error) {
	return nil, errors.New("pg: connection refused")
}
func (failingStore) LikesByViewer(ctx context.Context, viewerID string) ([]feed.LikeRow, error) {
	return nil, nil
}
func (failingStore) StatusLikesByViewer(ctx context.Context, viewerID string) ([]feed.StatusLikeRow, error) {
	return nil, nil
}
func (failingStore) PollVotesByViewer(ctx context.Context, viewerID string) ([]feed.PollVoteRow, error) {
	return nil, nil
}
func (failingStore) ResponsesByViewer(ctx context.Context, viewerID string) ([]feed.ResponseRow, error) {
	return nil, nil
}
func (failingStore) ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]feed.UserSummary, error) {
	return nil, nil
}

// TestFeedDependencyFailureMapsTo502: a failed store surfaces as 502
// dependency_failed, never a partial feed.
func TestFeedDependencyFailureMapsTo502(t *testing.T) {
	engine := feed.NewEngine(failingStore{}, failingStore{},
		feed.WithClock(func() time.Time { return testNow }))
	handlers := NewFeedHandlers(engine, nil)

	body := feedRequestBody(t, 5)
	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", bytes.NewReader(body))
	w := httptest.NewRecorder()

	// Bypass RequireAuth; inject the viewer directly.
	r = r.WithContext(middleware.SetViewerID(r.Context(), "viewer"))
	handlers.GetSuggestedPosts(w, r)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502; body: %s", w.Code, w.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Error.Code != ErrCodeDependency {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeDependency)
	}
}
