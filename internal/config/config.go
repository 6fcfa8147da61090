// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Catalog   CatalogConfig
	Community CommunityConfig
	Sync      SyncConfig
	Auth      AuthConfig
	Server    ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath holds the document store, the account store and the token key.
	BasePath string
}

// DocumentsPath is where per-user profile documents live.
func (d DataConfig) DocumentsPath() string { return filepath.Join(d.BasePath, "documents") }

// AccountsPath is where accounts and the persisted session live.
func (d DataConfig) AccountsPath() string { return filepath.Join(d.BasePath, "accounts") }

// CatalogConfig holds TMDB API configuration.
type CatalogConfig struct {
	APIKey         string
	BaseURL        string
	ImageBaseURL   string
	PosterSize     string // detail screens (default: w500)
	ListPosterSize string // list and grid screens (default: w200)
	Timeout        time.Duration
	RPS            float64
	Burst          int
	MaxRetries     int
}

// CommunityConfig holds community ranking configuration.
type CommunityConfig struct {
	TopN               int
	HydrateConcurrency int
}

// SyncConfig holds remote write configuration.
type SyncConfig struct {
	// RemoteWriteTimeout bounds each background merge-write.
	RemoteWriteTimeout time.Duration
}

// AuthConfig holds session configuration.
type AuthConfig struct {
	// SessionKey is the PASETO v4 symmetric key (32 bytes), set by auth.LoadOrGenerateKey.
	SessionKey      []byte
	SessionDuration time.Duration
}

// ServerConfig holds the presentation bridge HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return loadConfig(flag.CommandLine, os.Args[1:])
}

func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data")
	apiKey := fs.String("tmdb-api-key", "", "TMDB API key")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	topN := fs.String("community-top-n", "", "Community ranking size (default: 10)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Catalog: CatalogConfig{
			APIKey:         getConfigValue(*apiKey, "TMDB_API_KEY", ""),
			BaseURL:        strings.TrimRight(getConfigValue("", "TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
			ImageBaseURL:   strings.TrimRight(getConfigValue("", "TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"), "/"),
			PosterSize:     getConfigValue("", "TMDB_POSTER_SIZE", "w500"),
			ListPosterSize: getConfigValue("", "TMDB_LIST_POSTER_SIZE", "w200"),
			RPS:            getFloatConfigValue("", "TMDB_RPS", 20),
			Burst:          getIntConfigValue("", "TMDB_BURST", 10),
			MaxRetries:     getIntConfigValue("", "TMDB_MAX_RETRIES", 3),
		},
		Community: CommunityConfig{
			TopN:               getIntConfigValue(*topN, "COMMUNITY_TOP_N", 10),
			HydrateConcurrency: getIntConfigValue("", "COMMUNITY_HYDRATE_CONCURRENCY", 10),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "*")),
		},
	}

	durations := []struct {
		dst      *time.Duration
		envKey   string
		fallback string
	}{
		{&cfg.Catalog.Timeout, "TMDB_TIMEOUT", "15s"},
		{&cfg.Sync.RemoteWriteTimeout, "REMOTE_WRITE_TIMEOUT", "10s"},
		{&cfg.Auth.SessionDuration, "SESSION_DURATION", "720h"},
		{&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT", "0s"},
		{&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Catalog.APIKey == "" {
		return errors.New("TMDB_API_KEY is required")
	}

	if c.Community.TopN <= 0 {
		return fmt.Errorf("community top N must be positive, got %d", c.Community.TopN)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "CineWatch", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
