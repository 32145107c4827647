package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vicinity-social/vicinity-feed/internal/feed"
)

// DefaultProfileTTL is how long cached author summaries stay valid.
// Profiles are display data, not a scoring input, so staleness here can
// never bias ranking.
const DefaultProfileTTL = 5 * time.Minute

const profileKeyPrefix = "profile:"

// CachedProfiles is a Redis read-through cache in front of a
// feed.ProfileSource. Entries are CBOR-encoded with a TTL. Redis errors
// degrade to the underlying source; only a failure of the source itself
// propagates to the caller.
type CachedProfiles struct {
	client *redis.Client
	next   feed.ProfileSource
	ttl    time.Duration
}

// NewCachedProfiles wraps next with a Redis cache. A ttl of 0 uses
// DefaultProfileTTL.
func NewCachedProfiles(client *redis.Client, next feed.ProfileSource, ttl time.Duration) *CachedProfiles {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &CachedProfiles{
		client: client,
		next:   next,
		ttl:    ttl,
	}
}

// ProfilesByIDs resolves author summaries, serving hits from Redis and
// fetching only the misses from the underlying source.
func (c *CachedProfiles) ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]feed.UserSummary, error) {
	if len(userIDs) == 0 {
		return map[string]feed.UserSummary{}, nil
	}

	result := make(map[string]feed.UserSummary, len(userIDs))
	missing := userIDs

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = profileKeyPrefix + id
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		// Fail open: the cache is an optimization, the source is the
		// truth.
		slog.WarnContext(ctx, "profile cache read failed", "error", err)
	} else {
		missing = missing[:0:0]
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, userIDs[i])
				continue
			}
			var u feed.UserSummary
			if err := cbor.Unmarshal([]byte(raw), &u); err != nil {
				slog.WarnContext(ctx, "profile cache entry corrupt, refetching",
					"user_id", userIDs[i],
					"error", err)
				missing = append(missing, userIDs[i])
				continue
			}
			result[u.ID] = u
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.next.ProfilesByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, u := range fetched {
		result[id] = u
	}

	c.storeEntries(ctx, fetched)
	return result, nil
}

// storeEntries writes fetched summaries back to Redis. Write failures
// are logged and ignored.
func (c *CachedProfiles) storeEntries(ctx context.Context, profiles map[string]feed.UserSummary) {
	if len(profiles) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for id, u := range profiles {
		data, err := cbor.Marshal(u)
		if err != nil {
			slog.WarnContext(ctx, "failed to encode profile for cache",
				"user_id", id,
				"error", err)
			continue
		}
		pipe.Set(ctx, profileKeyPrefix+id, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "profile cache write failed", "error", err)
	}
}
