// Package cache memoizes analysis responses in Redis.
//
// Analyses are pure functions of their request, so a response can be served
// again for an identical request until the TTL expires.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clickit/analytics-engine/apimodels"
)

const keyPrefix = "analytics:result:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(cfg Config) *Cache {
	return &Cache{
		client: cfg.Client,
		ttl:    cfg.TTL,
	}
}

// NewFromURL connects to the Redis instance at url, e.g. redis://localhost:6379/0.
func NewFromURL(url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(Config{Client: redis.NewClient(opts), TTL: ttl}), nil
}

// Key derives a cache key from everything that affects the result.
// defaultSeed is included because it seeds segmentation when the request sets none.
func Key(req apimodels.AnalysisRequest, defaultSeed uint64) (string, error) {
	if len(req.Parameters) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, req.Parameters); err != nil {
			return "", fmt.Errorf("compact parameters: %w", err)
		}
		req.Parameters = compact.Bytes()
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte(strconv.FormatUint(defaultSeed, 10)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached response, or nil if there is none.
func (c *Cache) Get(ctx context.Context, key string) (*apimodels.AnalysisResponse, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found in cache
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var resp apimodels.AnalysisResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

func (c *Cache) Set(ctx context.Context, key string, resp *apimodels.AnalysisResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
