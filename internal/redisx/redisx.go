// Package redisx wraps the redis client with the cache conventions used by
// the analysis endpoints: JSON envelopes with an embedded stale deadline,
// negative caching for known misses, and a short lock for stampede control.
package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct{ Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
	return c.Rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.Rdb.Del(ctx, keys...).Err()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.Rdb.Exists(ctx, key).Result()
	return n == 1, err
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.Rdb.TTL(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error) {
	return c.Rdb.SetNX(ctx, key, val, ttl).Result()
}

// Envelope is the cached JSON wrapper. Data stays raw so callers decide the
// concrete shape; Meta carries freshness for stale-while-revalidate checks.
type Envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		LastFetch  time.Time `json:"last_fetch_at"`
		StaleAfter time.Time `json:"stale_after"`
		Source     string    `json:"source"`
	} `json:"meta"`
}

// GetEnvelope loads and decodes a cached envelope. The second return is
// false on miss or decode failure.
func (c *Client) GetEnvelope(ctx context.Context, key string) (Envelope, bool) {
	var env Envelope
	val, err := c.Get(ctx, key)
	if err != nil || val == "" {
		return env, false
	}
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		return env, false
	}
	return env, true
}

// SetEnvelope encodes and stores data with freshness metadata.
func (c *Client) SetEnvelope(ctx context.Context, key string, data any, source string, staleAfter, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var env Envelope
	env.Data = raw
	env.Meta.LastFetch = time.Now()
	env.Meta.StaleAfter = env.Meta.LastFetch.Add(staleAfter)
	env.Meta.Source = source
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(b), ttl)
}
