package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vicinity-social/vicinity-feed/internal/feed"
	"github.com/vicinity-social/vicinity-feed/internal/middleware"
)

// SuggestedPostsRequest represents the request body for the feed
// endpoint. currentFeed carries the posts already shown this session;
// only their ids matter for de-duplication.
type SuggestedPostsRequest struct {
	CurrentFeed   []feed.Post    `json:"currentFeed"`
	Location      *feed.Location `json:"location"`
	SearchRadius  float64        `json:"searchRadius"`
	BlockedPosts  []string       `json:"blockedPosts"`
	NumPostsToAdd int            `json:"numPostsToAdd"`
}

// SuggestedPostsResponse represents the feed endpoint response.
type SuggestedPostsResponse struct {
	NewFeed []feed.RankedPost `json:"newFeed"`
	User    feed.UserSummary  `json:"user"`
}

// FeedHandlers holds dependencies for feed HTTP handlers.
type FeedHandlers struct {
	engine   *feed.Engine
	profiles feed.ProfileSource
}

// NewFeedHandlers creates a new FeedHandlers instance. profiles is used
// to resolve the caller's own summary for the response envelope.
func NewFeedHandlers(engine *feed.Engine, profiles feed.ProfileSource) *FeedHandlers {
	return &FeedHandlers{
		engine:   engine,
		profiles: profiles,
	}
}

// GetSuggestedPosts handles POST /get-suggested-posts.
// Builds a ranked feed page for the authenticated viewer.
func (h *FeedHandlers) GetSuggestedPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	viewerID := middleware.GetViewerID(r.Context())
	if viewerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req SuggestedPostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	currentFeedIDs := make([]string, 0, len(req.CurrentFeed))
	for _, p := range req.CurrentFeed {
		currentFeedIDs = append(currentFeedIDs, p.ID)
	}

	ranked, err := h.engine.Suggest(r.Context(), feed.Request{
		ViewerID:       viewerID,
		Location:       req.Location,
		RadiusMeters:   req.SearchRadius,
		CurrentFeedIDs: currentFeedIDs,
		BlockedPostIDs: req.BlockedPosts,
		NumPostsToAdd:  req.NumPostsToAdd,
	})
	if err != nil {
		h.writeFeedError(w, r, err)
		return
	}

	resp := SuggestedPostsResponse{
		NewFeed: ranked,
		User:    h.callerSummary(r, viewerID),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode feed response", "error", err)
	}
}

// callerSummary resolves the authenticated viewer's own profile summary
// for the response envelope. Best effort: a missing or failed lookup
// degrades to an id-only summary rather than failing the feed.
func (h *FeedHandlers) callerSummary(r *http.Request, viewerID string) feed.UserSummary {
	if h.profiles == nil {
		return feed.UserSummary{ID: viewerID}
	}
	summaries, err := h.profiles.ProfilesByIDs(r.Context(), []string{viewerID})
	if err != nil {
		slog.WarnContext(r.Context(), "caller profile lookup failed",
			"viewer_id", viewerID,
			"error", err)
		return feed.UserSummary{ID: viewerID}
	}
	if s, ok := summaries[viewerID]; ok {
		return s
	}
	return feed.UserSummary{ID: viewerID}
}

// writeFeedError maps engine errors onto the API error envelope.
func (h *FeedHandlers) writeFeedError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, feed.ErrInvalidArgument):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, feed.ErrDependencyFailure):
		slog.ErrorContext(r.Context(), "feed dependency failure", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependency)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeDependency, "A feed dependency is unavailable")
	default:
		slog.ErrorContext(r.Context(), "feed request failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}
