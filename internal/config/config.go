// Package config loads configuration from command-line flags, environment
// variables and a .env file, in that order of precedence, falling back to
// defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Remote backend names.
const (
	BackendMemory   = "memory"
	BackendHTTP     = "http"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Config holds the configuration shared by the CLI and the document server.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Cache  CacheConfig
	Remote RemoteConfig
	Server ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataDir     string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// CacheConfig controls the local document cache.
type CacheConfig struct {
	Path     string
	InMemory bool
}

// RemoteConfig selects and configures the remote document store.
type RemoteConfig struct {
	Backend string

	// http
	URL               string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64

	// badger, sqlite
	Path string

	// postgres
	DSN string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// s3
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

// ServerConfig holds document server configuration.
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	KeyPath        string
	TokenTTL       time.Duration
	MaxBodyBytes   int64
}

// Load builds a Config from args (normally os.Args[1:]) using a dedicated
// flag set, and returns the arguments left after flag parsing so callers
// can dispatch subcommands.
func Load(name string, args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, production, test)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataDir := fs.String("data-dir", "", "Directory for local state (default ~/.tilecatread)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	cachePath := fs.String("cache-path", "", "Local cache directory (default <data-dir>/cache)")
	cacheMemory := fs.String("cache-memory", "", "Keep the local cache in memory only")

	backend := fs.String("remote", "", "Remote backend (memory, http, badger, sqlite, postgres, redis, s3)")
	remoteURL := fs.String("remote-url", "", "Document server base URL")
	remoteToken := fs.String("remote-token", "", "Document server access token")
	remoteTimeout := fs.String("remote-timeout", "", "Remote request timeout (default 10s)")
	remoteRPS := fs.String("remote-rps", "", "Remote requests per second (default 5)")
	remotePath := fs.String("remote-path", "", "Badger directory or SQLite file for embedded backends")
	remoteDSN := fs.String("remote-dsn", "", "Postgres connection string")

	host := fs.String("host", "", "Server listen host")
	port := fs.String("port", "", "Server port (default 8080)")
	keyPath := fs.String("key-path", "", "Token key file (default <data-dir>/server.key)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if err := loadEnvFile(*envFile); err != nil {
		return nil, nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "TILECATREAD_ENV", "development"),
			DataDir:     getConfigValue(*dataDir, "TILECATREAD_DATA_DIR", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Cache: CacheConfig{
			Path:     getConfigValue(*cachePath, "CACHE_PATH", ""),
			InMemory: getBoolConfigValue(*cacheMemory, "CACHE_MEMORY", false),
		},
		Remote: RemoteConfig{
			Backend:           getConfigValue(*backend, "REMOTE_BACKEND", BackendBadger),
			URL:               getConfigValue(*remoteURL, "REMOTE_URL", ""),
			Token:             getConfigValue(*remoteToken, "REMOTE_TOKEN", ""),
			RequestsPerSecond: getFloatConfigValue(*remoteRPS, "REMOTE_RPS", 5),
			Path:              getConfigValue(*remotePath, "REMOTE_PATH", ""),
			DSN:               getConfigValue(*remoteDSN, "REMOTE_DSN", ""),
			RedisAddr:         getConfigValue("", "REDIS_ADDR", "localhost:6379"),
			RedisPassword:     getConfigValue("", "REDIS_PASSWORD", ""),
			RedisDB:           getIntConfigValue("", "REDIS_DB", 0),
			S3Endpoint:        getConfigValue("", "S3_ENDPOINT", ""),
			S3AccessKey:       getConfigValue("", "S3_ACCESS_KEY", ""),
			S3SecretKey:       getConfigValue("", "S3_SECRET_KEY", ""),
			S3Bucket:          getConfigValue("", "S3_BUCKET", "tilecatread"),
			S3Region:          getConfigValue("", "S3_REGION", ""),
			S3UseSSL:          getBoolConfigValue("", "S3_USE_SSL", true),
		},
		Server: ServerConfig{
			Host:           getConfigValue(*host, "SERVER_HOST", ""),
			Port:           getConfigValue(*port, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue("", "SERVER_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   getFloatConfigValue("", "SERVER_RATE_LIMIT_RPS", 10),
			RateLimitBurst: getIntConfigValue("", "SERVER_RATE_LIMIT_BURST", 20),
			KeyPath:        getConfigValue(*keyPath, "SERVER_KEY_PATH", ""),
			MaxBodyBytes:   int64(getIntConfigValue("", "SERVER_MAX_BODY_BYTES", 4<<20)),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flagVal  string
		envKey   string
		fallback string
	}{
		{&cfg.Remote.Timeout, *remoteTimeout, "REMOTE_TIMEOUT", "10s"},
		{&cfg.Server.ReadTimeout, "", "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "", "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, "", "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.TokenTTL, "", "SERVER_TOKEN_TTL", "8760h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagVal, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "production": true, "test": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, production, or test)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if !c.Cache.InMemory && c.Cache.Path == "" {
		return errors.New("cache path cannot be empty")
	}

	return c.Remote.Validate()
}

// Validate checks that the selected backend has the settings it needs.
func (r RemoteConfig) Validate() error {
	switch r.Backend {
	case BackendMemory:
		return nil
	case BackendHTTP:
		u, err := url.Parse(r.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote url %q must be an absolute http(s) URL", r.URL)
		}
		if r.Token == "" {
			return errors.New("remote token is required for the http backend")
		}
		if r.Timeout <= 0 {
			return errors.New("remote timeout must be positive")
		}
	case BackendBadger, BackendSQLite:
		if r.Path == "" {
			return fmt.Errorf("remote path is required for the %s backend", r.Backend)
		}
	case BackendPostgres:
		if r.DSN == "" {
			return errors.New("remote dsn is required for the postgres backend")
		}
	case BackendRedis:
		if r.RedisAddr == "" {
			return errors.New("redis address is required for the redis backend")
		}
	case BackendS3:
		if r.S3Endpoint == "" || r.S3Bucket == "" || r.S3AccessKey == "" || r.S3SecretKey == "" {
			return errors.New("s3 endpoint, bucket, access key and secret key are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown remote backend %q", r.Backend)
	}
	return nil
}

func (c *Config) expandPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataDir, err = expandPath(c.App.DataDir, filepath.Join(home, ".tilecatread")); err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path, filepath.Join(c.App.DataDir, "cache")); err != nil {
		return fmt.Errorf("invalid cache path: %w", err)
	}
	if c.Server.KeyPath, err = expandPath(c.Server.KeyPath, filepath.Join(c.App.DataDir, "server.key")); err != nil {
		return fmt.Errorf("invalid key path: %w", err)
	}

	remoteDefault := ""
	switch c.Remote.Backend {
	case BackendBadger:
		remoteDefault = filepath.Join(c.App.DataDir, "documents")
	case BackendSQLite:
		remoteDefault = filepath.Join(c.App.DataDir, "documents.db")
	}
	if c.Remote.Path, err = expandPath(c.Remote.Path, remoteDefault); err != nil {
		return fmt.Errorf("invalid remote path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. Empty paths take
// defaultPath unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile applies KEY=value pairs from path without overriding
// variables already present in the environment. A missing file is not an
// error.
func loadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for k, v := range values {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", k, err)
		}
	}
	return nil
}
