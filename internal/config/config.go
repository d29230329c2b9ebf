// Package config loads the recall configuration from YAML.
// Values of the form ${VAR} are expanded from the environment before parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/recall/internal/observability"
	"github.com/blueberrycongee/recall/internal/settings"
)

// Config represents the complete recall configuration.
type Config struct {
	Providers ProvidersConfig                  `yaml:"providers"`
	Chat      ChatConfig                       `yaml:"chat"`
	Embedding EmbeddingConfig                  `yaml:"embedding"`
	Cache     CacheConfig                      `yaml:"cache"`
	Users     map[string]settings.UserSettings `yaml:"users"`
	Logging   LoggingConfig                    `yaml:"logging"`
	Metrics   MetricsConfig                    `yaml:"metrics"`
	Tracing   observability.TracingConfig      `yaml:"tracing"`
}

// ProvidersConfig holds the system-level settings of each chat provider.
type ProvidersConfig struct {
	Gemini ProviderConfig `yaml:"gemini"`
	Groq   ProviderConfig `yaml:"groq"`
	Cohere ProviderConfig `yaml:"cohere"`
}

// ByName returns the provider settings keyed by provider name.
func (p ProvidersConfig) ByName() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"gemini": p.Gemini,
		"groq":   p.Groq,
		"cohere": p.Cohere,
	}
}

// ProviderConfig defines a single chat provider.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChatConfig contains chat defaults.
type ChatConfig struct {
	Provider    string  `yaml:"provider"` // empty means the recommended provider
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // gemini, openai
	APIKey    string        `yaml:"api_key"`  // defaults to providers.gemini.api_key for gemini
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	TaskType  string        `yaml:"task_type"`
	Dimension int           `yaml:"dimension"` // expected vector length, 0 accepts any
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig selects the embedding cache backend.
type CacheConfig struct {
	Enabled bool        `yaml:"enabled"`
	Backend string      `yaml:"backend"` // memory, redis, sqlite, postgres
	Redis   RedisConfig `yaml:"redis"`
	SQL     SQLConfig   `yaml:"sql"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Namespace    string        `yaml:"namespace"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SQLConfig configures the sqlite and postgres cache backends.
type SQLConfig struct {
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Gemini: ProviderConfig{Timeout: 60 * time.Second},
			Groq:   ProviderConfig{Timeout: 60 * time.Second},
			Cohere: ProviderConfig{Timeout: 60 * time.Second},
		},
		Chat: ChatConfig{
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Embedding: EmbeddingConfig{
			Provider: "gemini",
			Model:    "models/text-embedding-004",
			TaskType: "RETRIEVAL_DOCUMENT",
			Timeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				Namespace: "recall",
			},
			SQL: SQLConfig{
				DSN:   "recall.db",
				Table: "embedding_cache",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// LoadFromFile loads configuration from a YAML file, then applies
// environment fallbacks and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills empty provider keys and models from the environment:
// GEMINI_API_KEY, GROQ_API_KEY, COHERE_API_KEY, GROQ_MODEL and COHERE_MODEL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(getenv(key))
		}
	}
	fill(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	fill(&c.Providers.Groq.APIKey, "GROQ_API_KEY")
	fill(&c.Providers.Cohere.APIKey, "COHERE_API_KEY")
	fill(&c.Providers.Groq.Model, "GROQ_MODEL")
	fill(&c.Providers.Cohere.Model, "COHERE_MODEL")

	if c.Embedding.APIKey == "" && c.Embedding.Provider == "gemini" {
		c.Embedding.APIKey = c.Providers.Gemini.APIKey
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for name, p := range c.Providers.ByName() {
		if p.Timeout < 0 {
			return fmt.Errorf("providers.%s.timeout cannot be negative", name)
		}
	}

	switch strings.ToLower(c.Chat.Provider) {
	case "", "gemini", "groq", "cohere":
	default:
		return fmt.Errorf("chat.provider: unknown provider %q", c.Chat.Provider)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %v", c.Chat.Temperature)
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("chat.max_tokens must be positive, got %d", c.Chat.MaxTokens)
	}

	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension cannot be negative")
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	case BackendSQLite, BackendPostgres:
		if c.Cache.SQL.DSN == "" {
			return fmt.Errorf("cache.sql.dsn is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}

	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %v", c.Tracing.SampleRate)
	}
	return nil
}
