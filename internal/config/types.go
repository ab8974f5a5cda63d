package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Events  EventsConfig  `yaml:"events" mapstructure:"events"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ModelConfig contains NLI model configuration
type ModelConfig struct {
	// Path is the model directory (model.onnx, tokenizer.json, config.json).
	Path string `yaml:"path" mapstructure:"path"`
	// MaxLength caps tokenized premise/hypothesis pair length.
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`
	// PoolSize is the number of concurrent pipelines (0 = CPU-derived).
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`
}

// CacheConfig contains Redis result cache configuration
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// HistoryConfig contains the PostgreSQL audit store configuration
type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// EventsConfig contains WebSocket event broadcasting configuration
type EventsConfig struct {
	Enabled                  bool `yaml:"enabled" mapstructure:"enabled"`
	BroadcastClassifications bool `yaml:"broadcast_classifications" mapstructure:"broadcast_classifications"`
	BroadcastConnections     bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a config populated with default values
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		Model: ModelConfig{
			Path:      "./models/nli-deberta-v3-base",
			MaxLength: 512,
			PoolSize:  0,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisURL:  "redis://localhost:6379/0",
			KeyPrefix: "labelsmith",
			TTL:       6 * time.Hour,
		},
		History: HistoryConfig{
			Enabled:         false,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Events: EventsConfig{
			Enabled:                  true,
			BroadcastClassifications: true,
			BroadcastConnections:     false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
	return cfg
}
