package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCalibrationFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}
	return path
}

// TestLoadCalibrationEmptyPath returns defaults without touching disk.
func TestLoadCalibrationEmptyPath(t *testing.T) {
	w, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *w != *DefaultWeights() {
		t.Errorf("got %+v, want defaults", w)
	}
}

// TestLoadCalibrationMissingFile degrades to defaults and reports the error.
func TestLoadCalibrationMissingFile(t *testing.T) {
	w, err := LoadCalibration(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if w == nil || *w != *DefaultWeights() {
		t.Errorf("got %+v, want defaults", w)
	}
}

// TestLoadCalibrationInvalidJSON degrades to defaults and reports the error.
func TestLoadCalibrationInvalidJSON(t *testing.T) {
	path := writeCalibrationFile(t, `{not json`)

	w, err := LoadCalibration(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
	if w == nil || *w != *DefaultWeights() {
		t.Errorf("got %+v, want defaults", w)
	}
}

// TestLoadCalibrationPartialOverride merges non-zero values over defaults.
func TestLoadCalibrationPartialOverride(t *testing.T) {
	path := writeCalibrationFile(t, `{
		"version": "1",
		"weights": {"affinity": 0.5, "trend": 0.9}
	}`)

	w, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.Affinity != 0.5 {
		t.Errorf("Affinity = %v, want 0.5", w.Affinity)
	}
	if w.Trend != 0.9 {
		t.Errorf("Trend = %v, want 0.9", w.Trend)
	}
	// Unspecified weights keep their defaults.
	if w.Popularity != 0.45 {
		t.Errorf("Popularity = %v, want default 0.45", w.Popularity)
	}
	if w.Recency != 0.15 {
		t.Errorf("Recency = %v, want default 0.15", w.Recency)
	}
}

// TestMergeCalibration covers the nil and zero-value merge rules.
func TestMergeCalibration(t *testing.T) {
	tests := []struct {
		name     string
		base     *BlendWeights
		override *BlendWeights
		want     BlendWeights
	}{
		{
			name:     "nil base falls back to defaults",
			base:     nil,
			override: &BlendWeights{Affinity: 0.1},
			want:     *DefaultWeights(),
		},
		{
			name:     "nil override copies base",
			base:     &BlendWeights{Popularity: 0.2, Affinity: 0.3, Recency: 0.4, Trend: 0.5},
			override: nil,
			want:     BlendWeights{Popularity: 0.2, Affinity: 0.3, Recency: 0.4, Trend: 0.5},
		},
		{
			name:     "zero values do not override",
			base:     &BlendWeights{Popularity: 0.2, Affinity: 0.3, Recency: 0.4, Trend: 0.5},
			override: &BlendWeights{Recency: 0.9},
			want:     BlendWeights{Popularity: 0.2, Affinity: 0.3, Recency: 0.9, Trend: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeCalibration(tt.base, tt.override)
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}
