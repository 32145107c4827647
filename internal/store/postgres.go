// Package store provides the data-access implementations behind the
// ranking engine: a Postgres-backed store, an in-memory store for tests
// and local development, and a Redis read-through cache for author
// profiles.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/vicinity-social/vicinity-feed/internal/feed"
	"github.com/vicinity-social/vicinity-feed/internal/tracing"
)

// PostgresStore implements feed.Store and feed.ProfileSource over a
// PostgreSQL database with PostGIS. All queries are read-only and honor
// ctx cancellation through database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CandidatesNear returns posts within radiusMeters of loc. Geo filtering
// only; viewer-specific exclusion is the engine's job.
func (s *PostgresStore) CandidatesNear(ctx context.Context, loc feed.Location, radiusMeters float64) (_ []feed.Post, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts")
	defer func() { endSpan(err) }()

	const query = `
		SELECT id, user_id, data, created_at, popularity_score, location_string
		FROM posts
		WHERE ST_DWithin(
			location,
			ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography,
			$3
		)
		ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, loc.Latitude, loc.Longitude, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("query candidate posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []feed.Post
	for rows.Next() {
		var (
			p       feed.Post
			rawData []byte
		)
		if err := rows.Scan(&p.ID, &p.UserID, &rawData, &p.CreatedAt, &p.PopularityScore, &p.LocationString); err != nil {
			return nil, fmt.Errorf("scan candidate post: %w", err)
		}
		if len(rawData) > 0 {
			if err := json.Unmarshal(rawData, &p.Data); err != nil {
				return nil, fmt.Errorf("decode post data for %s: %w", p.ID, err)
			}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate posts: %w", err)
	}

	return posts, nil
}

// LikesByViewer returns the viewer's likes joined to the liked post's
// author.
func (s *PostgresStore) LikesByViewer(ctx context.Context, viewerID string) (_ []feed.LikeRow, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_likes")
	defer func() { endSpan(err) }()

	const query = `
		SELECT l.post_id, p.user_id
		FROM post_likes l
		JOIN posts p ON p.id = l.post_id
		WHERE l.user_id = $1`

	rows, err := s.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []feed.LikeRow
	for rows.Next() {
		var row feed.LikeRow
		if err := rows.Scan(&row.PostID, &row.PosterUserID); err != nil {
			return nil, fmt.Errorf("scan like row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return result, nil
}

// StatusLikesByViewer returns the viewer's status-likes. No author join:
// status-likes match candidates by id directly.
func (s *PostgresStore) StatusLikesByViewer(ctx context.Context, viewerID string) (_ []feed.StatusLikeRow, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "status_likes")
	defer func() { endSpan(err) }()

	const query = `SELECT status_id FROM status_likes WHERE user_id = $1`

	rows, err := s.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query status likes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []feed.StatusLikeRow
	for rows.Next() {
		var row feed.StatusLikeRow
		if err := rows.Scan(&row.StatusID); err != nil {
			return nil, fmt.Errorf("scan status-like row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status likes: %w", err)
	}
	return result, nil
}

// PollVotesByViewer returns the viewer's poll votes joined to the poll
// post's author.
func (s *PostgresStore) PollVotesByViewer(ctx context.Context, viewerID string) (_ []feed.PollVoteRow, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "poll_votes")
	defer func() { endSpan(err) }()

	const query = `
		SELECT v.post_id, p.user_id
		FROM poll_votes v
		JOIN posts p ON p.id = v.post_id
		WHERE v.user_id = $1`

	rows, err := s.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query poll votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []feed.PollVoteRow
	for rows.Next() {
		var row feed.PollVoteRow
		if err := rows.Scan(&row.PostID, &row.PosterUserID); err != nil {
			return nil, fmt.Errorf("scan poll-vote row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate poll votes: %w", err)
	}
	return result, nil
}

// ResponsesByViewer returns the viewer's responses joined to the
// responded post's author.
func (s *PostgresStore) ResponsesByViewer(ctx context.Context, viewerID string) (_ []feed.ResponseRow, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "post_responses")
	defer func() { endSpan(err) }()

	const query = `
		SELECT r.post_id, p.user_id
		FROM post_responses r
		JOIN posts p ON p.id = r.post_id
		WHERE r.user_id = $1`

	rows, err := s.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []feed.ResponseRow
	for rows.Next() {
		var row feed.ResponseRow
		if err := rows.Scan(&row.PostID, &row.PosterUserID); err != nil {
			return nil, fmt.Errorf("scan response row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return result, nil
}

// ProfilesByIDs fetches author summaries for the given user ids in one
// batched query.
func (s *PostgresStore) ProfilesByIDs(ctx context.Context, userIDs []string) (_ map[string]feed.UserSummary, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "users")
	defer func() { endSpan(err) }()

	const query = `
		SELECT id, COALESCE(avatar_url, ''), COALESCE(firstname, ''), COALESCE(lastname, '')
		FROM users
		WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	profiles := make(map[string]feed.UserSummary, len(userIDs))
	for rows.Next() {
		var u feed.UserSummary
		if err := rows.Scan(&u.ID, &u.AvatarURL, &u.Firstname, &u.Lastname); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}
