// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
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

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (rate limiting)
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`
	// JWTSecondarySecret is accepted during verification only, enabling
	// zero-downtime secret rotation.
	JWTSecondarySecret string `koanf:"jwt_secondary_secret"`

	// Path to a JSON weight calibration file. Empty means built-in presets.
	CalibrationPath string `koanf:"calibration_path"`

	// Pool sync stream (websocket source of profile/assignment changes)
	PoolStreamURL string `koanf:"pool_stream_url"`

	// Ranking knobs
	RankStrictThreshold float64 `koanf:"rank_strict_threshold"`
	RankNearThreshold   float64 `koanf:"rank_near_threshold"`
	RankMaxPoolSize     int     `koanf:"rank_max_pool_size"`

	// Rate limiting
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// CORS allowlist. Empty disables CORS entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidThreshold   = errors.New("rank thresholds must be between 0 and 1")
	ErrInvalidPoolSize    = errors.New("RANK_MAX_POOL_SIZE must be positive")
	ErrInvalidRateLimit   = errors.New("RATE_LIMIT_PER_MINUTE must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultRankStrictThreshold = 0.6
	DefaultRankNearThreshold   = 0.3
	DefaultRankMaxPoolSize     = 10000
	DefaultRateLimitPerMinute  = 120
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try MATCHD_PORT first, then PORT
	port, portErr := getEnvIntOrDefaultMulti([]string{"MATCHD_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	strictThreshold, err := getEnvFloatOrDefault("RANK_STRICT_THRESHOLD", k.Float64("rank_strict_threshold"), DefaultRankStrictThreshold)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	nearThreshold, err := getEnvFloatOrDefault("RANK_NEAR_THRESHOLD", k.Float64("rank_near_threshold"), DefaultRankNearThreshold)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	maxPoolSize, err := getEnvIntOrDefault("RANK_MAX_POOL_SIZE", k.Int("rank_max_pool_size"), DefaultRankMaxPoolSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	rateLimit, err := getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", k.Int("rate_limit_per_minute"), DefaultRateLimitPerMinute)
	if err != nil {
		loadErrs = append(loadErrs, err)
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

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"MATCHD_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecondarySecret:  getEnvOrKoanf("JWT_SECONDARY_SECRET", k, "jwt_secondary_secret"),
		CalibrationPath:     getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		PoolStreamURL:       getEnvOrKoanf("POOL_STREAM_URL", k, "pool_stream_url"),
		RankStrictThreshold: strictThreshold,
		RankNearThreshold:   nearThreshold,
		RankMaxPoolSize:     maxPoolSize,
		RateLimitPerMinute:  rateLimit,
		CORSAllowedOrigins:  getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:      tracingEnabled,
		OTLPEndpoint:        getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns the environment variable split on commas if set,
// otherwise the koanf string slice.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Note: a port of 0 in a YAML file falls back to the default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
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

// Validate checks that all required configuration values are present and
// ranking knobs are in range. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.RankStrictThreshold < 0 || c.RankStrictThreshold > 1 {
		errs = append(errs, fmt.Errorf("rank_strict_threshold %f: %w", c.RankStrictThreshold, ErrInvalidThreshold))
	}
	if c.RankNearThreshold < 0 || c.RankNearThreshold > 1 {
		errs = append(errs, fmt.Errorf("rank_near_threshold %f: %w", c.RankNearThreshold, ErrInvalidThreshold))
	}
	if c.RankMaxPoolSize <= 0 {
		errs = append(errs, ErrInvalidPoolSize)
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_secondary_secret":  maskSecret(c.JWTSecondarySecret),
		"calibration_path":      c.CalibrationPath,
		"pool_stream_url":       c.PoolStreamURL,
		"rank_strict_threshold": fmt.Sprintf("%.2f", c.RankStrictThreshold),
		"rank_near_threshold":   fmt.Sprintf("%.2f", c.RankNearThreshold),
		"rank_max_pool_size":    fmt.Sprintf("%d", c.RankMaxPoolSize),
		"rate_limit_per_minute": fmt.Sprintf("%d", c.RateLimitPerMinute),
		"cors_allowed_origins":  strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":         c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
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
