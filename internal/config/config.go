package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/m3ucatalog/internal/classify"
)

// Cache backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

var (
	ErrMissingPlaylistURL = errors.New("PLAYLIST_URL is required")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres backend")
	ErrMissingRedisURL    = errors.New("REDIS_URL is required for the redis backend")
)

// Config holds application configuration.
type Config struct {
	PlaylistURL   string        `yaml:"playlist_url" env:"PLAYLIST_URL"`
	AlternateURLs []string      `yaml:"alternate_urls" env:"PLAYLIST_ALTERNATES"`
	ProxyPrefixes []string      `yaml:"proxy_prefixes" env:"PLAYLIST_PROXIES"`
	UserAgent     string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout       time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	CacheKey     string        `yaml:"cache_key" env:"CACHE_KEY"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	CacheBackend string        `yaml:"cache_backend" env:"CACHE_BACKEND"`
	SQLitePath   string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	DatabaseURL  string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL     string        `yaml:"redis_url" env:"REDIS_URL"`

	BatchSize  int    `yaml:"batch_size" env:"PARSE_BATCH_SIZE"`
	ServerPort string `yaml:"server_port" env:"SERVER_PORT"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`

	Classifier classify.Rules `yaml:"classifier"`
}

// Default returns a Config with every optional field at its default.
func Default() *Config {
	return &Config{
		UserAgent:    "M3UCatalog/1.0",
		Timeout:      5 * time.Minute,
		CacheKey:     "playlist",
		CacheTTL:     24 * time.Hour,
		CacheBackend: BackendSQLite,
		SQLitePath:   "m3ucatalog.db",
		BatchSize:    5000,
		ServerPort:   "8080",
		LogLevel:     "info",
		Classifier:   classify.DefaultRules(),
	}
}

// Load builds config from environment variables.
// If PLAYLIST_URL is not set, Load tries to load .env.local and .env from the current directory.
// PLAYLIST_URL is required; everything else falls back to Default.
func Load() (*Config, error) {
	if os.Getenv("PLAYLIST_URL") == "" {
		loadEnvFiles()
	}
	c := Default()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv overrides every field tagged `env:"NAME"` whose variable is set.
// Lists are comma-separated; durations use time.ParseDuration syntax.
func (c *Config) applyEnv() error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		if err := setField(v.Field(i), raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setField(f reflect.Value, raw string) error {
	switch {
	case f.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
	case f.Kind() == reflect.String:
		f.SetString(raw)
	case f.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String:
		f.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

// Validate checks required fields and backend settings.
func (c *Config) Validate() error {
	if c.PlaylistURL == "" {
		return ErrMissingPlaylistURL
	}
	switch c.CacheBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q (want sqlite, postgres, redis or memory)", c.CacheBackend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
