// Package routecache keeps computed route results in a bounded in-process LRU,
// optionally backed by Redis so several router instances share work.
package routecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
	"github.com/mohammed-shakir/incident-router/internal/core/observability"
)

const (
	TierLRU   = "lru"
	TierRedis = "redis"
)

// Remote is the second tier. *redisstore.Client satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Sweeper is implemented by remotes that can delete keys by pattern.
type Sweeper interface {
	DelPattern(ctx context.Context, pattern string, match func(key string) bool) (int, error)
}

type entry struct {
	res     model.RouteResult
	expires time.Time
}

type Cache struct {
	local     *lru.Cache[string, entry]
	remote    Remote
	ttl       time.Duration
	opTimeout time.Duration
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Cache)

func WithRemote(r Remote) Option {
	return func(c *Cache) { c.remote = r }
}

func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a cache holding up to size results for ttl. A non-positive ttl
// keeps entries until they are evicted.
func New(size int, ttl time.Duration, opts ...Option) (*Cache, error) {
	if size <= 0 {
		return nil, errors.New("routecache: size must be positive")
	}
	local, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		local:     local,
		ttl:       ttl,
		opTimeout: 250 * time.Millisecond,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get looks in the LRU first, then Redis. A Redis hit is copied into the LRU.
// Redis errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (model.RouteResult, bool) {
	if e, ok := c.local.Get(key); ok {
		if c.fresh(e) {
			observability.ObserveRouteCache(TierLRU, "hit")
			return e.res, true
		}
		c.local.Remove(key)
	}
	observability.ObserveRouteCache(TierLRU, "miss")

	if c.remote == nil {
		return model.RouteResult{}, false
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	raw, found, err := c.remote.Get(opCtx, key)
	if err != nil {
		observability.ObserveRouteCache(TierRedis, "error")
		c.log.Warn("route cache remote get failed", "key", key, "err", err)
		return model.RouteResult{}, false
	}
	if !found {
		observability.ObserveRouteCache(TierRedis, "miss")
		return model.RouteResult{}, false
	}
	var res model.RouteResult
	if err := json.Unmarshal(raw, &res); err != nil {
		observability.ObserveRouteCache(TierRedis, "error")
		c.log.Warn("route cache remote value undecodable", "key", key, "err", err)
		return model.RouteResult{}, false
	}
	observability.ObserveRouteCache(TierRedis, "hit")
	c.local.Add(key, c.wrap(res))
	return res, true
}

// Put stores res in both tiers. Remote failures are logged only.
func (c *Cache) Put(ctx context.Context, key string, res model.RouteResult) {
	c.local.Add(key, c.wrap(res))
	if c.remote == nil {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("route cache encode failed", "key", key, "err", err)
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.remote.Set(opCtx, key, body, c.ttl); err != nil {
		c.log.Warn("route cache remote set failed", "key", key, "err", err)
	}
}

// Sweep drops entries whose key matches both pattern (a Redis glob, used
// remotely only) and match, from both tiers. It returns how many remote keys
// were removed.
func (c *Cache) Sweep(ctx context.Context, pattern string, match func(key string) bool) (int, error) {
	for _, k := range c.local.Keys() {
		if match(k) {
			c.local.Remove(k)
		}
	}
	sw, ok := c.remote.(Sweeper)
	if !ok {
		return 0, nil
	}
	n, err := sw.DelPattern(ctx, pattern, match)
	if err != nil {
		return n, fmt.Errorf("routecache sweep: %w", err)
	}
	return n, nil
}

func (c *Cache) Len() int { return c.local.Len() }

// Purge empties the in-process tier.
func (c *Cache) Purge() { c.local.Purge() }

func (c *Cache) wrap(res model.RouteResult) entry {
	e := entry{res: res}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	return e
}

func (c *Cache) fresh(e entry) bool {
	return e.expires.IsZero() || c.now().Before(e.expires)
}
