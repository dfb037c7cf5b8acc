package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voyagen/m3ucatalog/internal/classify"
)

type fileConfig struct {
	PlaylistURL   string         `yaml:"playlist_url"`
	AlternateURLs []string       `yaml:"alternate_urls"`
	ProxyPrefixes []string       `yaml:"proxy_prefixes"`
	UserAgent     string         `yaml:"user_agent"`
	Timeout       string         `yaml:"timeout"`
	CacheKey      string         `yaml:"cache_key"`
	CacheTTL      string         `yaml:"cache_ttl"`
	CacheBackend  string         `yaml:"cache_backend"`
	SQLitePath    string         `yaml:"sqlite_path"`
	DatabaseURL   string         `yaml:"database_url"`
	RedisURL      string         `yaml:"redis_url"`
	BatchSize     int            `yaml:"batch_size"`
	ServerPort    string         `yaml:"server_port"`
	LogLevel      string         `yaml:"log_level"`
	Classifier    classify.Rules `yaml:"classifier"`
}

// LoadFromFile loads config from a YAML file. playlist_url is required.
// Keyword sets missing from the classifier block keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c := Default()
	overlay(&c.PlaylistURL, f.PlaylistURL)
	overlay(&c.UserAgent, f.UserAgent)
	overlay(&c.CacheKey, f.CacheKey)
	overlay(&c.CacheBackend, f.CacheBackend)
	overlay(&c.SQLitePath, f.SQLitePath)
	overlay(&c.DatabaseURL, f.DatabaseURL)
	overlay(&c.RedisURL, f.RedisURL)
	overlay(&c.ServerPort, f.ServerPort)
	overlay(&c.LogLevel, f.LogLevel)
	if len(f.AlternateURLs) > 0 {
		c.AlternateURLs = f.AlternateURLs
	}
	if len(f.ProxyPrefixes) > 0 {
		c.ProxyPrefixes = f.ProxyPrefixes
	}
	if f.BatchSize != 0 {
		c.BatchSize = f.BatchSize
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if f.CacheTTL != "" {
		d, err := time.ParseDuration(f.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("cache_ttl: %w", err)
		}
		c.CacheTTL = d
	}
	c.Classifier = f.Classifier.Merge(classify.DefaultRules())

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
