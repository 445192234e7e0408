package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMaxSize = 1000
	DefaultTTL     = 300 * time.Second
	DefaultShards  = 16
)

type Config struct {
	MaxSize    int
	DefaultTTL time.Duration
	Shards     int
}

type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type shard[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]
}

// Cache is a sharded LRU with per-entry expiry. Each shard has its own lock,
// so unrelated keys never contend.
type Cache[V any] struct {
	shards []*shard[V]
	ttl    time.Duration
	clock  clock.Clock

	hits   atomic.Uint64
	misses atomic.Uint64
}

type Option func(*options)

type options struct {
	clock clock.Clock
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func New[V any](cfg Config, opts ...Option) (*Cache[V], error) {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultShards
	}
	if cfg.Shards > cfg.MaxSize {
		cfg.Shards = cfg.MaxSize
	}

	c := &Cache[V]{
		shards: make([]*shard[V], cfg.Shards),
		ttl:    cfg.DefaultTTL,
		clock:  o.clock,
	}

	// The first MaxSize%Shards shards take one extra slot so the capacities
	// add up to MaxSize exactly.
	base, extra := cfg.MaxSize/cfg.Shards, cfg.MaxSize%cfg.Shards
	for i := range c.shards {
		size := base
		if i < extra {
			size++
		}
		l, err := lru.New[string, entry[V]](size)
		if err != nil {
			return nil, err
		}
		c.shards[i] = &shard[V]{lru: l}
	}
	return c, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)

	s.mu.Lock()
	e, ok := s.lru.Get(key)
	if ok && !c.clock.Now().Before(e.expiresAt) {
		s.lru.Remove(key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key. A non-positive ttl uses the default.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	s := c.shardFor(key)

	s.mu.Lock()
	s.lru.Add(key, entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)})
	s.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

func (c *Cache[V]) Purge() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.lru.Purge()
		s.mu.Unlock()
	}
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}
