package feed

import (
	"math"
	"time"
)

// Interaction weights for the author-affinity score. These values are
// part of the ranking contract and must not drift: clients depend on
// the exact ordering they produce.
const (
	// LikeWeight is applied per like the viewer gave to any post by the
	// candidate's author.
	LikeWeight = 0.3

	// StatusWeight is applied per status-like referencing the candidate
	// post's id directly. Status-likes intentionally match by post id,
	// not author id; see the note on AuthorScore.
	StatusWeight = 3.0

	// PollWeight is applied per poll vote the viewer cast on any post by
	// the candidate's author.
	PollWeight = 0.4

	// ResponseWeight is applied per response the viewer gave to any post
	// by the candidate's author.
	ResponseWeight = 0.8
)

// Scaling constants for the saturating/decaying component curves.
const (
	// WeekMS is one week in milliseconds, the reference period for
	// recency decay.
	WeekMS = 1000 * 60 * 60 * 24 * 7

	// PopularityScaling divides the raw popularity score before the
	// saturating transform.
	PopularityScaling = 3.0

	// RecencyScaling multiplies post age (in weeks) inside the
	// exponential decay.
	RecencyScaling = 4.0

	// activitySaturation divides the viewer's total activity count
	// before the saturating transform in ActivityFactor.
	activitySaturation = 10.0
)

// BlendWeights holds the four blend coefficients that combine the
// component scores into the final post score. The defaults are the
// normative values; calibration files may override them at deploy time.
type BlendWeights struct {
	Popularity float64 `json:"popularity"` // Weight for raw popularity (default: 0.45)
	Affinity   float64 `json:"affinity"`   // Weight for author affinity (default: 0.95)
	Recency    float64 `json:"recency"`    // Weight for freshness (default: 0.15)
	Trend      float64 `json:"trend"`      // Weight for popularity discounted by freshness (default: 0.70)
}

// DefaultWeights returns the normative blend weight configuration.
//
// Formula:
//
//	score = (1-a) * (popularity_w*popularity + affinity_w*affinity)
//	      +    a  * (recency_w*recency + trend_w*popularity*recency)
//
// where a is the viewer's activity factor. Low-activity viewers see
// mostly popularity/affinity; high-activity viewers see mostly
// recency/trend.
func DefaultWeights() *BlendWeights {
	return &BlendWeights{
		Popularity: 0.45,
		Affinity:   0.95,
		Recency:    0.15,
		Trend:      0.70,
	}
}

// ActivityFactor converts the viewer's total interaction count into a
// blend factor in [0, 1). Zero activity yields exactly 0; the factor
// saturates toward 1 as activity grows.
func ActivityFactor(activityCount int) float64 {
	return 1 - math.Exp(-float64(activityCount)/activitySaturation)
}

// AffinityScore converts a weighted author score into a saturating
// affinity value in [0, 1).
func AffinityScore(authorScore float64) float64 {
	return 1 - math.Exp(-authorScore)
}

// PopularityScore converts the upstream popularity signal into a
// saturating value in [0, 1).
func PopularityScore(rawPopularity float64) float64 {
	return 1 - math.Exp(-rawPopularity/PopularityScaling)
}

// RecencyScore computes exponential freshness decay from post age in
// milliseconds. A brand-new post scores 1.0; a week-old post scores
// exp(-4) ~= 0.018. Negative ages (future created_at) are passed through
// unclamped, matching the reference behavior.
func RecencyScore(ageMS float64) float64 {
	return math.Exp(-RecencyScaling * ageMS / WeekMS)
}

// PostAgeMS returns the age of a post in milliseconds at the given
// evaluation time.
func PostAgeMS(createdAt, now time.Time) float64 {
	return float64(now.Sub(createdAt).Milliseconds())
}

// BlendScore combines the component scores into the final post score
// using the viewer's activity factor and the configured blend weights.
func BlendScore(activityFactor, popularity, affinity, recency float64, w *BlendWeights) float64 {
	if w == nil {
		w = DefaultWeights()
	}

	return (1-activityFactor)*(w.Popularity*popularity+w.Affinity*affinity) +
		activityFactor*(w.Recency*recency+w.Trend*popularity*recency)
}

// AuthorScore computes the weighted author-affinity score for one
// candidate post from the viewer's signal rows.
//
// Likes, poll votes, and responses match on the candidate's author id
// across all of the viewer's rows of that type. Status-likes match on
// the candidate post's id directly. The asymmetry is intentional and
// load-bearing: reordering feeds depends on it.
func AuthorScore(p Post, s Signals) float64 {
	var likeCount, statusCount, pollCount, responseCount int

	for _, row := range s.Likes {
		if row.PosterUserID == p.UserID {
			likeCount++
		}
	}
	for _, row := range s.StatusLikes {
		if row.StatusID == p.ID {
			statusCount++
		}
	}
	for _, row := range s.PollVotes {
		if row.PosterUserID == p.UserID {
			pollCount++
		}
	}
	for _, row := range s.Responses {
		if row.PosterUserID == p.UserID {
			responseCount++
		}
	}

	return LikeWeight*float64(likeCount) +
		StatusWeight*float64(statusCount) +
		PollWeight*float64(pollCount) +
		ResponseWeight*float64(responseCount)
}
