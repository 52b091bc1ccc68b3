// Package cache provides a read-through cache for assessment results.
// Scoring is deterministic, so identical inputs always produce the same
// assessment apart from its ID and timestamp; caching trades a small
// staleness window on reference data updates for lookup cost.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// AssessmentCache caches completed risk assessments keyed by the
// normalized request. The in-memory LRU is always active; the Redis tier
// is optional and shared across replicas.
type AssessmentCache struct {
	memory *lru.LRU[string, *domain.RiskAssessment]
	redis  *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// New creates an assessment cache. redisClient may be nil for
// memory-only operation.
func New(cfg domain.CacheConfig, redisClient *redis.Client, logger *logrus.Logger) *AssessmentCache {
	return &AssessmentCache{
		memory: lru.NewLRU[string, *domain.RiskAssessment](cfg.MaxEntries, nil, cfg.TTL),
		redis:  redisClient,
		ttl:    cfg.TTL,
		log:    logger,
	}
}

// NewRedisClient builds the Redis client from configuration.
func NewRedisClient(cfg domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries
	return redis.NewClient(opts), nil
}

// Key derives the cache key for a request. Medication names are
// lowercased and sorted so that equivalent requests share an entry
// regardless of input order.
func Key(medications []string, week int, condition string) string {
	normalized := make([]string, 0, len(medications))
	for _, m := range medications {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(m)))
	}
	sort.Strings(normalized)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", strings.Join(normalized, ","), week, strings.ToLower(strings.TrimSpace(condition)))
	return "assessment:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached assessment, checking memory first, then Redis.
// Redis hits are promoted into the memory tier.
func (c *AssessmentCache) Get(ctx context.Context, key string) (*domain.RiskAssessment, bool) {
	if a, ok := c.memory.Get(key); ok {
		return a, true
	}

	if c.redis == nil {
		return nil, false
	}

	payload, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("Redis cache read failed")
		}
		return nil, false
	}

	var assessment domain.RiskAssessment
	if err := json.Unmarshal(payload, &assessment); err != nil {
		c.log.WithError(err).Warn("Discarding undecodable cached assessment")
		return nil, false
	}

	c.memory.Add(key, &assessment)
	return &assessment, true
}

// Put stores an assessment in both tiers. Redis failures are logged and
// ignored; the cache never fails an assessment.
func (c *AssessmentCache) Put(ctx context.Context, key string, assessment *domain.RiskAssessment) {
	c.memory.Add(key, assessment)

	if c.redis == nil {
		return
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		c.log.WithError(err).Warn("Failed to encode assessment for cache")
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("Redis cache write failed")
	}
}

// Purge drops every entry in both tiers, used when reference data changes.
func (c *AssessmentCache) Purge(ctx context.Context) {
	c.memory.Purge()

	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, "assessment:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.WithError(err).Warn("Redis cache purge failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Warn("Redis cache scan failed")
	}
}

// Len returns the number of entries in the memory tier.
func (c *AssessmentCache) Len() int {
	return c.memory.Len()
}
