package feed

import (
	"sort"
	"time"
)

// scoredPost pairs a candidate with its internal scoring state. The
// struct never leaves this package; Rank strips it before returning.
type scoredPost struct {
	post       Post
	score      float64
	interacted bool
}

// Exclusions are the viewer-specific filters applied before scoring.
type Exclusions struct {
	ViewerID       string
	CurrentFeedIDs []string
	BlockedPostIDs []string
}

// eligible reports whether a candidate survives all three exclusion
// rules: not blocked, not a self-post, not already shown this session.
func eligible(p Post, viewerID string, blocked, current map[string]struct{}) bool {
	if _, ok := blocked[p.ID]; ok {
		return false
	}
	if p.UserID == viewerID {
		return false
	}
	if _, ok := current[p.ID]; ok {
		return false
	}
	return true
}

// idSet builds a membership set from a slice of ids.
func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Rank filters, scores, orders, and truncates candidates for a viewer.
// It is a pure function of its inputs and the supplied evaluation time:
// identical inputs with identical now produce byte-identical ordering.
//
// Ordering: posts the viewer already liked, voted on, or responded to
// always sort after posts they have not touched, regardless of score.
// Within each partition posts sort by score descending; exact ties keep
// input order (stable sort). Status-likes do not count as interaction
// for partitioning; they signal affinity toward an author's status, not
// toward this post.
func Rank(candidates []Post, signals Signals, excl Exclusions, limit int, now time.Time, w *BlendWeights) []Post {
	if w == nil {
		w = DefaultWeights()
	}

	blocked := idSet(excl.BlockedPostIDs)
	current := idSet(excl.CurrentFeedIDs)

	// Per-request, not per-post: the activity factor depends only on the
	// viewer's total signal volume.
	activity := ActivityFactor(signals.ActivityCount())

	likedPosts := make(map[string]struct{}, len(signals.Likes))
	for _, row := range signals.Likes {
		likedPosts[row.PostID] = struct{}{}
	}
	polledPosts := make(map[string]struct{}, len(signals.PollVotes))
	for _, row := range signals.PollVotes {
		polledPosts[row.PostID] = struct{}{}
	}
	respondedPosts := make(map[string]struct{}, len(signals.Responses))
	for _, row := range signals.Responses {
		respondedPosts[row.PostID] = struct{}{}
	}

	scored := make([]scoredPost, 0, len(candidates))
	for _, p := range candidates {
		if !eligible(p, excl.ViewerID, blocked, current) {
			continue
		}

		_, liked := likedPosts[p.ID]
		_, polled := polledPosts[p.ID]
		_, responded := respondedPosts[p.ID]
		interacted := liked || polled || responded

		affinity := AffinityScore(AuthorScore(p, signals))
		popularity := PopularityScore(p.PopularityScore)
		recency := RecencyScore(PostAgeMS(p.CreatedAt, now))

		scored = append(scored, scoredPost{
			post:       p,
			score:      BlendScore(activity, popularity, affinity, recency, w),
			interacted: interacted,
		})
	}

	// Stable sort: non-interacted partition first, score descending
	// within each partition, input order on exact ties.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].interacted != scored[j].interacted {
			return !scored[i].interacted
		}
		return scored[i].score > scored[j].score
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}

	result := make([]Post, len(scored))
	for i, sp := range scored {
		result[i] = sp.post
	}
	return result
}

// DistinctAuthors returns the distinct author ids of the given posts in
// first-appearance order. Used to batch the profile lookup for the
// final, truncated feed only.
func DistinctAuthors(posts []Post) []string {
	seen := make(map[string]struct{}, len(posts))
	authors := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		authors = append(authors, p.UserID)
	}
	return authors
}
