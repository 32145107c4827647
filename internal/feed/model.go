package feed

import (
	"time"
)

// Post payload kinds for the tagged Data variant.
const (
	DataKindText  = "text"
	DataKindPoll  = "poll"
	DataKindImage = "image"
)

// PostData is the post-type-specific payload. The ranking engine never
// interprets it beyond pass-through; the Kind discriminant tells clients
// which of the optional fields are populated.
type PostData struct {
	Kind        string   `json:"kind"`
	Caption     string   `json:"caption,omitempty"`
	PollOptions []string `json:"poll_options,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Post is an immutable candidate record as returned by geo-filtered
// retrieval. PopularityScore is precomputed upstream and treated as an
// opaque non-negative signal.
type Post struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Data            PostData  `json:"data"`
	CreatedAt       time.Time `json:"created_at"`
	PopularityScore float64   `json:"popularity_score"`
	LocationString  string    `json:"location_string,omitempty"`
}

// UserSummary is the author profile summary attached to each post in the
// final feed. Profiles are looked up only for authors that survive
// filtering, scoring, and truncation.
type UserSummary struct {
	ID        string `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// RankedPost is a surviving post with its author summary attached.
// Internal scoring fields are deliberately absent; they must never reach
// the client.
type RankedPost struct {
	Post
	UserData UserSummary `json:"user_data"`
}

// Location is a WGS84 coordinate pair supplied by the client.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LikeRow records a like the viewer gave, annotated with the liked
// post's author for affinity attribution.
type LikeRow struct {
	PostID       string
	PosterUserID string
}

// StatusLikeRow records a status-like by the viewer. Unlike the other
// three signal types it carries no author attribution; it matches
// candidates by id directly.
type StatusLikeRow struct {
	StatusID string
}

// PollVoteRow records a poll vote the viewer cast, annotated with the
// poll post's author.
type PollVoteRow struct {
	PostID       string
	PosterUserID string
}

// ResponseRow records a response the viewer gave, annotated with the
// responded post's author.
type ResponseRow struct {
	PostID       string
	PosterUserID string
}

// Signals bundles the viewer's four interaction-signal collections.
// All four are scoped exclusively to the requesting viewer; mixing in
// another user's rows is a correctness violation, not a degradation.
type Signals struct {
	Likes       []LikeRow
	StatusLikes []StatusLikeRow
	PollVotes   []PollVoteRow
	Responses   []ResponseRow
}

// ActivityCount is the viewer's total interaction volume across all four
// signal types, request-wide (not per post).
func (s Signals) ActivityCount() int {
	return len(s.Likes) + len(s.StatusLikes) + len(s.PollVotes) + len(s.Responses)
}

// Request carries everything the engine needs for one ranking pass.
// ViewerID comes from the authenticated caller, never from the body.
type Request struct {
	ViewerID       string
	Location       *Location
	RadiusMeters   float64
	CurrentFeedIDs []string
	BlockedPostIDs []string
	NumPostsToAdd  int
}
