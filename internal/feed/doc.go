// Package feed implements the suggested-posts ranking engine with
// calibration support for the blend weights.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := feed.LoadCalibration("configs/feed.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	engine := feed.NewEngine(store, profiles,
//		feed.WithWeights(weights),
//		feed.WithMetrics(metrics),
//	)
//
//	newFeed, err := engine.Suggest(ctx, feed.Request{
//		ViewerID:       viewerID,
//		Location:       &feed.Location{Latitude: lat, Longitude: lng},
//		RadiusMeters:   5000,
//		CurrentFeedIDs: shownIDs,
//		BlockedPostIDs: blockedIDs,
//		NumPostsToAdd:  10,
//	})
//
// Scoring model:
//
// Each eligible candidate gets four component scores in [0, 1):
// popularity (saturating transform of the upstream engagement signal),
// affinity (saturating transform of the viewer's weighted history with
// the post's author), recency (exponential decay of post age against a
// one-week reference), and trend (popularity discounted by recency).
// The viewer's request-wide activity factor blends two regimes: a
// low-activity viewer is ranked mostly by popularity and affinity, a
// high-activity viewer mostly by recency and trend.
//
// The engine is stateless per request and pure given a fixed clock:
// scores are computed fresh every call and never persisted.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of the four blend
// weights via a JSON file loaded at startup. The defaults in
// DefaultWeights are the normative values; the per-interaction weights
// (like/status/poll/response) and the scaling constants are fixed and
// not calibratable.
package feed
