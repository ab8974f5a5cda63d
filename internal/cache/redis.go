package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/labelsmith/labelsmith/internal/zeroshot"
)

// ResultCache handles Redis-based caching of classification results.
// Results are pure functions of (model, text, options), which makes
// them safe to cache for as long as the model directory is unchanged.
type ResultCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a new Redis-backed result cache
func NewResultCache(config *Config, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "labelsmith"
	}
	if config.TTL <= 0 {
		config.TTL = 6 * time.Hour
	}

	logger.Info("Result cache connected",
		zap.String("key_prefix", config.KeyPrefix),
		zap.Duration("ttl", config.TTL))

	return &ResultCache{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Key derives a deterministic cache key from the model identity, input
// text, and call options.
func (c *ResultCache) Key(modelID, text string, opts zeroshot.Options) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0x1f})
	h.Write([]byte(text))
	h.Write([]byte{0x1f})
	h.Write([]byte(strings.Join(opts.CandidateLabels, "\x1f")))
	h.Write([]byte{0x1f})
	h.Write([]byte(opts.HypothesisTemplate))
	h.Write([]byte{0x1f})
	h.Write([]byte(strconv.FormatBool(opts.MultiLabel)))
	return fmt.Sprintf("%s:result:%s", c.config.KeyPrefix, hex.EncodeToString(h.Sum(nil)[:16]))
}

// Get fetches a cached result; the second return reports a cache hit.
func (c *ResultCache) Get(ctx context.Context, key string) (*zeroshot.Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Cache get failed", zap.Error(err))
		}
		c.misses.Add(1)
		return nil, false
	}

	var cached CachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Cache entry corrupt, evicting", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return cached.Result, true
}

// Set stores a classification result under the given key.
func (c *ResultCache) Set(ctx context.Context, key, modelID string, result *zeroshot.Result) error {
	data, err := json.Marshal(CachedResult{
		Result:   result,
		ModelID:  modelID,
		CachedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Stats returns hit/miss counters for this process.
func (c *ResultCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Ping checks the Redis connection.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}
