// Package config provides configuration loading and validation for the
// feed API server. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the feed API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (profile cache + distributed rate limiting); optional
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Ranking
	CalibrationPath string `koanf:"calibration_path"`

	// Rate limiting
	FeedRateLimitPerMinute int `koanf:"feed_rate_limit_per_minute"`

	// Tracing
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	TracingExporter string  `koanf:"tracing_exporter"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	SamplingRate    float64 `koanf:"sampling_rate"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidRateLimit   = errors.New("FEED_RATE_LIMIT_PER_MINUTE must be > 0")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultFeedRateLimitPerMinute = 30
	DefaultSamplingRate           = 0.1
)

// Load reads configuration from environment variables and an optional
// YAML config file. Environment variables take precedence over file
// values. Returns the loaded config and a slice of validation errors
// (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	rateLimit, rateErr := getEnvIntOrDefault("FEED_RATE_LIMIT_PER_MINUTE", k.Int("feed_rate_limit_per_minute"), DefaultFeedRateLimitPerMinute)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("sampling_rate"), DefaultSamplingRate)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:              getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:      getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		CalibrationPath:        getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		FeedRateLimitPerMinute: rateLimit,
		TracingEnabled:         tracingEnabled,
		TracingExporter:        getEnvOrKoanf("TRACING_EXPORTER", k, "tracing_exporter"),
		OTLPEndpoint:           getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		SamplingRate:           samplingRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise
// the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if
// set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.FeedRateLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for
// logging. All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                       fmt.Sprintf("%d", c.Port),
		"env":                        c.Env,
		"database_url":               maskDatabaseURL(c.DatabaseURL),
		"redis_url":                  maskDatabaseURL(c.RedisURL),
		"jwt_secret":                 maskSecret(c.JWTSecret),
		"jwt_previous_secret":        maskSecret(c.JWTPreviousSecret),
		"calibration_path":           c.CalibrationPath,
		"feed_rate_limit_per_minute": fmt.Sprintf("%d", c.FeedRateLimitPerMinute),
		"tracing_enabled":            fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":           c.TracingExporter,
		"otlp_endpoint":              c.OTLPEndpoint,
		"sampling_rate":              fmt.Sprintf("%g", c.SamplingRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters.
// Secrets shorter than 8 characters are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
