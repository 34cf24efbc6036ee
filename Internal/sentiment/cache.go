package sentiment

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheTTL is how long a sentiment report stays fresh.
const CacheTTL = 24 * time.Hour

// Cache stores sentiment reports per symbol with expiry.
type Cache interface {
	Get(ctx context.Context, symbol string) (*Report, bool)
	Set(ctx context.Context, symbol string, rep *Report) error
}

// RedisCache keeps reports as JSON blobs in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: CacheTTL}
}

func cacheKey(symbol string) string { return "sentiment:" + symbol }

func (c *RedisCache) Get(ctx context.Context, symbol string) (*Report, bool) {
	raw, err := c.client.Get(ctx, cacheKey(symbol)).Bytes()
	if err != nil {
		return nil, false
	}
	var rep Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, false
	}
	return &rep, true
}

func (c *RedisCache) Set(ctx context.Context, symbol string, rep *Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(symbol), raw, c.ttl).Err()
}

// MemoryCache is an in-process cache used when no Redis is configured.
type MemoryCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]memoryEntry

	now func() time.Time
}

type memoryEntry struct {
	rep    *Report
	stored time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{ttl: CacheTTL, m: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (*Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[symbol]
	if !ok || c.now().Sub(e.stored) > c.ttl {
		return nil, false
	}
	return e.rep, true
}

func (c *MemoryCache) Set(_ context.Context, symbol string, rep *Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[symbol] = memoryEntry{rep: rep, stored: c.now()}
	return nil
}
