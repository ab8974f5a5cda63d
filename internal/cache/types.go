package cache

import (
	"time"

	"github.com/labelsmith/labelsmith/internal/zeroshot"
)

// CachedResult is a classification result stored in Redis alongside its
// cache metadata.
type CachedResult struct {
	Result   *zeroshot.Result `json:"result"`
	ModelID  string           `json:"model_id"`
	CachedAt time.Time        `json:"cached_at"`
}

// Stats represents cache performance statistics
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Config contains cache configuration
type Config struct {
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}
