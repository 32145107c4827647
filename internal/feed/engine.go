package feed

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vicinity-social/vicinity-feed/internal/tracing"
)

// Store is the candidate-retrieval and signal-fetch collaborator. All
// methods are read-only, viewer-scoped where applicable, and must honor
// ctx cancellation.
type Store interface {
	// CandidatesNear returns posts within radiusMeters of loc, with
	// popularity_score precomputed upstream. No viewer-specific
	// filtering happens here; the engine owns exclusion.
	CandidatesNear(ctx context.Context, loc Location, radiusMeters float64) ([]Post, error)

	// LikesByViewer returns the viewer's likes annotated with each
	// liked post's author id.
	LikesByViewer(ctx context.Context, viewerID string) ([]LikeRow, error)

	// StatusLikesByViewer returns the viewer's status-likes.
	StatusLikesByViewer(ctx context.Context, viewerID string) ([]StatusLikeRow, error)

	// PollVotesByViewer returns the viewer's poll votes annotated with
	// each poll post's author id.
	PollVotesByViewer(ctx context.Context, viewerID string) ([]PollVoteRow, error)

	// ResponsesByViewer returns the viewer's responses annotated with
	// each responded post's author id.
	ResponsesByViewer(ctx context.Context, viewerID string) ([]ResponseRow, error)
}

// ProfileSource resolves author profile summaries in one batched call.
type ProfileSource interface {
	ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]UserSummary, error)
}

// Engine orchestrates one ranking pass: validate, fetch concurrently,
// filter, score, order, truncate, attach profiles. It holds no mutable
// state between requests.
type Engine struct {
	store    Store
	profiles ProfileSource
	weights  *BlendWeights
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the default blend weights, typically with
// calibration loaded at startup.
func WithWeights(w *BlendWeights) Option {
	return func(e *Engine) {
		if w != nil {
			e.weights = w
		}
	}
}

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the evaluation-time source. Tests inject a fixed
// clock to make recency deterministic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a ranking engine over the given store and profile
// source.
func NewEngine(store Store, profiles ProfileSource, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		profiles: profiles,
		weights:  DefaultWeights(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest produces the viewer's next feed page: at most req.NumPostsToAdd
// posts, ordered, with author summaries attached.
//
// Validation failures surface as ErrInvalidArgument before any dependency
// call. The candidate retrieval and the four signal fetches run
// concurrently and join before scoring; if any of them fails the whole
// request fails with ErrDependencyFailure rather than scoring with
// partial signals. Profiles are fetched only for authors of the final
// truncated list.
func (e *Engine) Suggest(ctx context.Context, req Request) (_ []RankedPost, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "feed.suggest")
	defer func() { endSpan(err) }()

	start := e.now()

	if err := validateRequest(req); err != nil {
		if e.metrics != nil {
			e.metrics.IncRankErrors("invalid_argument")
		}
		return nil, err
	}

	var (
		candidates  []Post
		likes       []LikeRow
		statusLikes []StatusLikeRow
		pollVotes   []PollVoteRow
		responses   []ResponseRow
	)

	// Await-all with fail-fast: the five fetches are independent
	// read-only queries, but scoring must not start until every one of
	// them has succeeded.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var ferr error
		candidates, ferr = e.store.CandidatesNear(gctx, *req.Location, req.RadiusMeters)
		if ferr != nil {
			return dependencyErr("candidate retrieval", ferr)
		}
		return nil
	})
	g.Go(func() error {
		var ferr error
		likes, ferr = e.store.LikesByViewer(gctx, req.ViewerID)
		if ferr != nil {
			return dependencyErr("like signals", ferr)
		}
		return nil
	})
	g.Go(func() error {
		var ferr error
		statusLikes, ferr = e.store.StatusLikesByViewer(gctx, req.ViewerID)
		if ferr != nil {
			return dependencyErr("status-like signals", ferr)
		}
		return nil
	})
	g.Go(func() error {
		var ferr error
		pollVotes, ferr = e.store.PollVotesByViewer(gctx, req.ViewerID)
		if ferr != nil {
			return dependencyErr("poll-vote signals", ferr)
		}
		return nil
	})
	g.Go(func() error {
		var ferr error
		responses, ferr = e.store.ResponsesByViewer(gctx, req.ViewerID)
		if ferr != nil {
			return dependencyErr("response signals", ferr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if e.metrics != nil {
			e.metrics.IncRankErrors("dependency_failure")
		}
		return nil, err
	}

	signals := Signals{
		Likes:       likes,
		StatusLikes: statusLikes,
		PollVotes:   pollVotes,
		Responses:   responses,
	}
	excl := Exclusions{
		ViewerID:       req.ViewerID,
		CurrentFeedIDs: req.CurrentFeedIDs,
		BlockedPostIDs: req.BlockedPostIDs,
	}

	ranked := Rank(candidates, signals, excl, req.NumPostsToAdd, e.now(), e.weights)

	profiles, err := e.lookupProfiles(ctx, ranked)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncRankErrors("dependency_failure")
		}
		return nil, err
	}

	result := make([]RankedPost, len(ranked))
	for i, p := range ranked {
		summary, ok := profiles[p.UserID]
		if !ok {
			// Author row missing (e.g. deleted account): keep the post,
			// attach a bare summary so clients always see user_data.id.
			summary = UserSummary{ID: p.UserID}
		}
		result[i] = RankedPost{Post: p, UserData: summary}
	}

	tracing.SetAttributes(ctx,
		attribute.Int("feed.candidates", len(candidates)),
		attribute.Int("feed.returned", len(result)),
		attribute.Int("feed.activity_count", signals.ActivityCount()),
	)
	if e.metrics != nil {
		e.metrics.ObserveRank(e.now().Sub(start).Seconds(), len(candidates), len(result))
	}

	return result, nil
}

// lookupProfiles batches the author-summary fetch for surviving posts.
// Skipped entirely when the feed came back empty.
func (e *Engine) lookupProfiles(ctx context.Context, ranked []Post) (map[string]UserSummary, error) {
	authors := DistinctAuthors(ranked)
	if len(authors) == 0 {
		return map[string]UserSummary{}, nil
	}

	if e.metrics != nil {
		e.metrics.IncProfileFetches()
	}

	profiles, err := e.profiles.ProfilesByIDs(ctx, authors)
	if err != nil {
		return nil, dependencyErr("profile lookup", err)
	}
	return profiles, nil
}

// validateRequest enforces the engine's preconditions. All violations
// are rejected before any dependency call.
func validateRequest(req Request) error {
	if req.NumPostsToAdd <= 0 {
		return invalidArgf("numPostsToAdd must be > 0 (got %d)", req.NumPostsToAdd)
	}
	if req.Location == nil {
		return invalidArgf("location is required")
	}
	if req.RadiusMeters <= 0 {
		return invalidArgf("searchRadius must be > 0 (got %g)", req.RadiusMeters)
	}
	if req.ViewerID == "" {
		return invalidArgf("viewer id is required")
	}
	return nil
}

// ErrKind returns the metric/log label for an engine error.
func ErrKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrDependencyFailure):
		return "dependency_failure"
	default:
		return "internal"
	}
}
