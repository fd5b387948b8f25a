package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "yts:"

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytstamps",
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by tier and outcome.",
	}, []string{"tier", "outcome"})
)

func init() {
	Registry.MustRegister(cacheLookups)
}

// Cache keeps generated results in process memory and, when configured,
// in Redis so they survive restarts. A nil *Cache is valid and always misses.
type Cache struct {
	l1         sync.Map // key → *cacheEntry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type cacheEntry struct {
	data     []byte
	storedAt time.Time
	expires  time.Time
}

func (e *cacheEntry) live(now time.Time) bool { return now.Before(e.expires) }

// NewCache builds the result cache. An empty redisURL keeps it memory-only,
// as does a Redis that cannot be reached at startup.
func NewCache(redisURL string, ttl time.Duration, maxEntries int, sweepEvery time.Duration) *Cache {
	c := &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		sweepEvery: sweepEvery,
		stop:       make(chan struct{}),
	}
	if redisURL != "" {
		c.rdb = dialRedis(redisURL)
	}
	slog.Info("cache: ready",
		slog.Duration("ttl", ttl),
		slog.Int("max_entries", maxEntries),
		slog.Bool("redis", c.rdb != nil))

	go c.sweepLoop()
	return c
}

func dialRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: bad REDIS_URL, using memory only", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis ping failed, using memory only",
			slog.String("addr", opts.Addr), slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// CacheKey joins parts into a short, stable key.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return cacheKeyPrefix + hex.EncodeToString(sum[:12])
}

// Get returns the cached bytes for key. A Redis hit is copied into memory.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		countLookup("none", false)
		return nil, false
	}

	now := time.Now()
	if v, ok := c.l1.Load(key); ok {
		if e := v.(*cacheEntry); e.live(now) {
			countLookup("memory", true)
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.rdb == nil {
		countLookup("memory", false)
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("cache: redis get failed", slog.String("key", key), slog.Any("error", err))
		}
		countLookup("redis", false)
		return nil, false
	}
	c.put(key, data, now)
	countLookup("redis", true)
	return data, true
}

// Set stores data under key in both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	c.put(key, data, time.Now())
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Debug("cache: redis set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Len reports the number of in-memory entries, expired ones included.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the sweeper and the Redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.stopOnce.Do(func() { close(c.stop) })
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// CacheStats returns the process-wide hit and miss counts.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

func countLookup(tier string, hit bool) {
	if hit {
		cacheHits.Add(1)
		cacheLookups.WithLabelValues(tier, "hit").Inc()
		return
	}
	cacheMisses.Add(1)
	cacheLookups.WithLabelValues(tier, "miss").Inc()
}

func (c *Cache) put(key string, data []byte, now time.Time) {
	c.l1.Store(key, &cacheEntry{data: data, storedAt: now, expires: now.Add(c.ttl)})
	c.trim(now)
}

// trim keeps the memory tier at maxEntries: expired entries go first,
// then the oldest stored ones.
func (c *Cache) trim(now time.Time) {
	if c.maxEntries <= 0 || c.Len() <= c.maxEntries {
		return
	}
	type aged struct {
		key any
		at  time.Time
	}
	var live []aged
	c.l1.Range(func(k, v any) bool {
		e := v.(*cacheEntry)
		if !e.live(now) {
			c.l1.Delete(k)
			return true
		}
		live = append(live, aged{k, e.storedAt})
		return true
	})
	if len(live) <= c.maxEntries {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].at.Before(live[j].at) })
	for _, a := range live[:len(live)-c.maxEntries] {
		c.l1.Delete(a.key)
	}
}

func (c *Cache) sweepLoop() {
	every := c.sweepEvery
	if every <= 0 {
		every = 5 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-t.C:
			c.l1.Range(func(k, v any) bool {
				if !v.(*cacheEntry).live(now) {
					c.l1.Delete(k)
				}
				return true
			})
		}
	}
}
