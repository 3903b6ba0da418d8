// Package config provides configuration loading and management for semcoach.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete semcoach configuration.
// A loaded Config is treated as an immutable snapshot.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ProvidersConfig configures the chat-completion providers.
type ProvidersConfig struct {
	// Priority is the order providers are tried in (openai, gemini, claude).
	Priority []string `yaml:"priority"`
	// Timeout bounds a single provider attempt.
	Timeout time.Duration `yaml:"timeout"`

	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
	Claude ProviderConfig `yaml:"claude"`
}

// ProviderConfig configures one provider.
type ProviderConfig struct {
	// APIKey is normally supplied through the environment.
	APIKey string `yaml:"api_key,omitempty"`
	// BaseURL overrides the vendor endpoint (proxies, local gateways).
	BaseURL string `yaml:"base_url,omitempty"`
	// Model is validated against the allow-list; invalid values use the default.
	Model string `yaml:"model,omitempty"`
	// AllowedModels replaces the built-in allow-list (glob patterns).
	AllowedModels []string `yaml:"allowed_models,omitempty"`
}

// SearchConfig configures the recommendation search back-ends.
type SearchConfig struct {
	// Timeout bounds a single search request.
	Timeout time.Duration `yaml:"timeout"`
	// ResultsPerSource is the number of results requested per query per source.
	ResultsPerSource int `yaml:"results_per_source"`
	// CacheSize is the number of cached query results per source (0 disables caching).
	CacheSize int `yaml:"cache_size"`
	// CacheTTL is how long a cached query result stays valid.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// RequestsPerSecond paces outbound calls per source (0 disables pacing).
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	YouTube YouTubeConfig `yaml:"youtube"`
	Web     WebConfig     `yaml:"web"`
	Books   BooksConfig   `yaml:"books"`
}

// YouTubeConfig configures video search.
type YouTubeConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// WebConfig configures Google Custom Search.
type WebConfig struct {
	APIKey   string `yaml:"api_key,omitempty"`
	EngineID string `yaml:"engine_id,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// BooksConfig configures Google Books search.
type BooksConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// NATSURL selects the JetStream KV store. Empty uses in-memory storage.
	NATSURL string `yaml:"nats_url"`
	// BucketPrefix namespaces the KV buckets.
	BucketPrefix string `yaml:"bucket_prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Priority: []string{"openai", "gemini", "claude"},
			Timeout:  30 * time.Second,
		},
		Search: SearchConfig{
			Timeout:           10 * time.Second,
			ResultsPerSource:  5,
			CacheSize:         256,
			CacheTTL:          10 * time.Minute,
			RequestsPerSecond: 2,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			BucketPrefix: "SEMCOACH",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Providers.Timeout < 0 {
		return fmt.Errorf("providers.timeout must not be negative")
	}
	for _, p := range c.Providers.Priority {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("providers.priority must not contain empty entries")
		}
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must not be negative")
	}
	if c.Search.ResultsPerSource < 1 || c.Search.ResultsPerSource > 10 {
		return fmt.Errorf("search.results_per_source must be between 1 and 10")
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must not be negative")
	}
	if c.Search.RequestsPerSecond < 0 {
		return fmt.Errorf("search.requests_per_second must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Keys may be present, so keep the file private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Providers
	if len(other.Providers.Priority) > 0 {
		c.Providers.Priority = append([]string(nil), other.Providers.Priority...)
	}
	if other.Providers.Timeout != 0 {
		c.Providers.Timeout = other.Providers.Timeout
	}
	c.Providers.OpenAI.merge(other.Providers.OpenAI)
	c.Providers.Gemini.merge(other.Providers.Gemini)
	c.Providers.Claude.merge(other.Providers.Claude)

	// Search
	if other.Search.Timeout != 0 {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.ResultsPerSource != 0 {
		c.Search.ResultsPerSource = other.Search.ResultsPerSource
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}
	if other.Search.CacheTTL != 0 {
		c.Search.CacheTTL = other.Search.CacheTTL
	}
	if other.Search.RequestsPerSecond != 0 {
		c.Search.RequestsPerSecond = other.Search.RequestsPerSecond
	}
	setIfNonEmpty(&c.Search.YouTube.APIKey, other.Search.YouTube.APIKey)
	setIfNonEmpty(&c.Search.YouTube.BaseURL, other.Search.YouTube.BaseURL)
	setIfNonEmpty(&c.Search.Web.APIKey, other.Search.Web.APIKey)
	setIfNonEmpty(&c.Search.Web.EngineID, other.Search.Web.EngineID)
	setIfNonEmpty(&c.Search.Web.BaseURL, other.Search.Web.BaseURL)
	setIfNonEmpty(&c.Search.Books.APIKey, other.Search.Books.APIKey)
	setIfNonEmpty(&c.Search.Books.BaseURL, other.Search.Books.BaseURL)

	// Server
	setIfNonEmpty(&c.Server.Addr, other.Server.Addr)
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Storage
	setIfNonEmpty(&c.Storage.NATSURL, other.Storage.NATSURL)
	setIfNonEmpty(&c.Storage.BucketPrefix, other.Storage.BucketPrefix)
}

func (p *ProviderConfig) merge(other ProviderConfig) {
	setIfNonEmpty(&p.APIKey, other.APIKey)
	setIfNonEmpty(&p.BaseURL, other.BaseURL)
	setIfNonEmpty(&p.Model, other.Model)
	if len(other.AllowedModels) > 0 {
		p.AllowedModels = append([]string(nil), other.AllowedModels...)
	}
}

func setIfNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
