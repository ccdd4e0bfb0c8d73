// Package common provides shared utilities for AlphaTalk
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for AlphaTalk
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds path configuration for the 2 storage areas.
type StorageConfig struct {
	Analysis AreaConfig `toml:"analysis"` // Analysis documents + latest index (BadgerHold)
	User     AreaConfig `toml:"user"`     // Users, watchlists, system KV (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AnalysisConfig holds orchestration policy configuration.
type AnalysisConfig struct {
	TTL             string `toml:"ttl"`              // document freshness window
	ProviderTimeout string `toml:"provider_timeout"` // per-provider call timeout
	CleanupMaxAge   string `toml:"cleanup_max_age"`  // documents older than this are pruned
	CleanupSchedule string `toml:"cleanup_schedule"` // cron spec for the cleanup job
	ReportLanguage  string `toml:"report_language"`  // language for the final recommendation
}

// GetTTL parses and returns the document freshness window.
func (c *AnalysisConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return FreshnessAnalysis
	}
	return d
}

// GetProviderTimeout parses and returns the per-provider timeout.
func (c *AnalysisConfig) GetProviderTimeout() time.Duration {
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetCleanupMaxAge parses and returns the cleanup age threshold.
func (c *AnalysisConfig) GetCleanupMaxAge() time.Duration {
	d, err := time.ParseDuration(c.CleanupMaxAge)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Analysis: AreaConfig{Path: "data/analysis"},
			User:     AreaConfig{Path: "data/user"},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Analysis: AnalysisConfig{
			TTL:             "1h",
			ProviderTimeout: "120s",
			CleanupMaxAge:   "168h",
			CleanupSchedule: "@every 1h",
			ReportLanguage:  "Korean",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ALPHATALK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ALPHATALK_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ALPHATALK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("ALPHATALK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("ALPHATALK_DATA_PATH"); path != "" {
		config.Storage.Analysis.Path = filepath.Join(path, "analysis")
		config.Storage.User.Path = filepath.Join(path, "user")
	}

	if ttl := os.Getenv("ALPHATALK_ANALYSIS_TTL"); ttl != "" {
		config.Analysis.TTL = ttl
	}

	if lang := os.Getenv("ALPHATALK_REPORT_LANGUAGE"); lang != "" {
		config.Analysis.ReportLanguage = lang
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// SystemKV is the minimal store surface needed to resolve runtime settings.
type SystemKV interface {
	GetSystemKV(ctx context.Context, key string) (string, error)
}

// ResolveAPIKey resolves an API key from environment, system KV, or fallback.
// A missing key is not an error condition for callers that treat the client
// as optional; they log and continue with the provider disabled.
func ResolveAPIKey(ctx context.Context, store SystemKV, name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "ALPHATALK_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "ALPHATALK_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Environment variables win
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Then system KV
	if store != nil {
		apiKey, err := store.GetSystemKV(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}
