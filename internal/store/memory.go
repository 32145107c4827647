package store

import (
	"context"
	"math"
	"sync"

	"github.com/vicinity-social/vicinity-feed/internal/feed"
)

// MemoryStore is an in-memory implementation of feed.Store and
// feed.ProfileSource for tests and local development.
// Thread-safe via RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	posts       []memoryPost
	likes       map[string][]feed.LikeRow
	statusLikes map[string][]feed.StatusLikeRow
	pollVotes   map[string][]feed.PollVoteRow
	responses   map[string][]feed.ResponseRow
	profiles    map[string]feed.UserSummary
}

type memoryPost struct {
	post feed.Post
	loc  feed.Location
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		likes:       make(map[string][]feed.LikeRow),
		statusLikes: make(map[string][]feed.StatusLikeRow),
		pollVotes:   make(map[string][]feed.PollVoteRow),
		responses:   make(map[string][]feed.ResponseRow),
		profiles:    make(map[string]feed.UserSummary),
	}
}

// AddPost registers a post at the given location.
func (s *MemoryStore) AddPost(p feed.Post, loc feed.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, memoryPost{post: p, loc: loc})
}

// AddLike records a like by viewerID.
func (s *MemoryStore) AddLike(viewerID string, row feed.LikeRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[viewerID] = append(s.likes[viewerID], row)
}

// AddStatusLike records a status-like by viewerID.
func (s *MemoryStore) AddStatusLike(viewerID string, row feed.StatusLikeRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusLikes[viewerID] = append(s.statusLikes[viewerID], row)
}

// AddPollVote records a poll vote by viewerID.
func (s *MemoryStore) AddPollVote(viewerID string, row feed.PollVoteRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollVotes[viewerID] = append(s.pollVotes[viewerID], row)
}

// AddResponse records a response by viewerID.
func (s *MemoryStore) AddResponse(viewerID string, row feed.ResponseRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[viewerID] = append(s.responses[viewerID], row)
}

// AddProfile registers an author profile summary.
func (s *MemoryStore) AddProfile(u feed.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[u.ID] = u
}

// CandidatesNear returns posts within radiusMeters of loc using a
// haversine great-circle distance. Results preserve insertion order so
// ranking tests get deterministic tie-breaking.
func (s *MemoryStore) CandidatesNear(ctx context.Context, loc feed.Location, radiusMeters float64) ([]feed.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []feed.Post
	for _, mp := range s.posts {
		if haversineMeters(loc, mp.loc) <= radiusMeters {
			result = append(result, mp.post)
		}
	}
	return result, nil
}

// LikesByViewer returns the viewer's like rows.
func (s *MemoryStore) LikesByViewer(ctx context.Context, viewerID string) ([]feed.LikeRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]feed.LikeRow(nil), s.likes[viewerID]...), nil
}

// StatusLikesByViewer returns the viewer's status-like rows.
func (s *MemoryStore) StatusLikesByViewer(ctx context.Context, viewerID string) ([]feed.StatusLikeRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]feed.StatusLikeRow(nil), s.statusLikes[viewerID]...), nil
}

// PollVotesByViewer returns the viewer's poll-vote rows.
func (s *MemoryStore) PollVotesByViewer(ctx context.Context, viewerID string) ([]feed.PollVoteRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]feed.PollVoteRow(nil), s.pollVotes[viewerID]...), nil
}

// ResponsesByViewer returns the viewer's response rows.
func (s *MemoryStore) ResponsesByViewer(ctx context.Context, viewerID string) ([]feed.ResponseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]feed.ResponseRow(nil), s.responses[viewerID]...), nil
}

// ProfilesByIDs returns registered profiles for the given ids. Unknown
// ids are simply absent from the result map.
func (s *MemoryStore) ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]feed.UserSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]feed.UserSummary, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.profiles[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

const earthRadiusMeters = 6371000.0

// haversineMeters computes the great-circle distance between two points.
func haversineMeters(a, b feed.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
