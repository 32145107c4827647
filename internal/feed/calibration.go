package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string       `json:"version"` // Config version for future compatibility
	Weights BlendWeights `json:"weights"` // Blend weight overrides
}

// LoadCalibration loads blend weights from a JSON calibration file.
// An empty path returns the defaults. On read or parse errors the
// defaults are returned alongside the error so callers can degrade
// gracefully. Partial configurations are merged with defaults: only
// non-zero values override.
func LoadCalibration(filePath string) (*BlendWeights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights. Only
// non-zero override values are applied, which allows partial overrides
// in the calibration file.
func MergeCalibration(base *BlendWeights, override *BlendWeights) *BlendWeights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Popularity != 0 {
		result.Popularity = override.Popularity
	}
	if override.Affinity != 0 {
		result.Affinity = override.Affinity
	}
	if override.Recency != 0 {
		result.Recency = override.Recency
	}
	if override.Trend != 0 {
		result.Trend = override.Trend
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *BlendWeights, loaded *BlendWeights) {
	var overrides []string

	if loaded.Popularity != defaults.Popularity {
		overrides = append(overrides, fmt.Sprintf("popularity: %.2f -> %.2f",
			defaults.Popularity, loaded.Popularity))
	}
	if loaded.Affinity != defaults.Affinity {
		overrides = append(overrides, fmt.Sprintf("affinity: %.2f -> %.2f",
			defaults.Affinity, loaded.Affinity))
	}
	if loaded.Recency != defaults.Recency {
		overrides = append(overrides, fmt.Sprintf("recency: %.2f -> %.2f",
			defaults.Recency, loaded.Recency))
	}
	if loaded.Trend != defaults.Trend {
		overrides = append(overrides, fmt.Sprintf("trend: %.2f -> %.2f",
			defaults.Trend, loaded.Trend))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
