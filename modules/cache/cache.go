package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"reflect"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/majordome-go/majordome"
)

type key struct {
	typ  reflect.Type
	hash uint64
}

type entry struct {
	value     any
	createdAt time.Time
}

// Cache is an expiring typed cache. It is safe for concurrent use.
type Cache struct {
	config  Config
	entries *ttlcache.Cache[key, entry]
	flights singleflight.Group
	logger  majordome.Logger
}

// New creates a cache outside of an application.
func New(cfg Config, logger majordome.Logger) *Cache {
	opts := []ttlcache.Option[key, entry]{
		ttlcache.WithDisableTouchOnHit[key, entry](),
	}
	if cfg.MaxSize > 0 {
		opts = append(opts, ttlcache.WithCapacity[key, entry](cfg.MaxSize))
	}
	if cfg.DefaultTTL > 0 {
		opts = append(opts, ttlcache.WithTTL[key, entry](cfg.DefaultTTL))
	}
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = defaultExpiryInterval
	}
	return &Cache{
		config:  cfg,
		entries: ttlcache.New(opts...),
		logger:  logger,
	}
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Key creates a getter for the key made of parts. Parts are hashed by their
// type and formatted value.
func (c *Cache) Key(parts ...any) *Getter {
	h := fnv.New64a()
	for _, p := range parts {
		fmt.Fprintf(h, "%T:%v|", p, p)
	}
	return &Getter{cache: c, hash: h.Sum64(), empty: len(parts) == 0}
}

// runExpiry removes expired entries every ExpiryInterval until ctx ends.
func (c *Cache) runExpiry(ctx context.Context) {
	ticker := time.NewTicker(c.config.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.entries.DeleteExpired()
		}
	}
}

// Getter reads and fills one cache key.
type Getter struct {
	cache *Cache
	hash  uint64
	ttl   time.Duration
	empty bool
}

// TTL sets the lifetime of a value stored through this getter. Without it
// the cache's default TTL applies.
func (g *Getter) TTL(d time.Duration) *Getter {
	g.ttl = d
	return g
}

// Item is a value read through the cache.
type Item[T any] struct {
	value     T
	createdAt time.Time
	hit       bool
}

// Hit reports whether the value was produced by another call.
func (i Item[T]) Hit() bool {
	return i.hit
}

// Age returns the time since the value was produced.
func (i Item[T]) Age() time.Duration {
	return time.Since(i.createdAt)
}

// Value returns the cached value.
func (i Item[T]) Value() T {
	return i.value
}

// GetWith returns the value of type T cached under g, calling produce on a
// miss. Concurrent misses share a single produce call. Errors are returned to
// every waiting caller and are not cached.
func GetWith[T any](ctx context.Context, g *Getter, produce func(ctx context.Context) (T, error)) (Item[T], error) {
	var zero Item[T]
	if g.empty {
		return zero, ErrInvalidKey
	}

	k := key{typ: reflect.TypeFor[T](), hash: g.hash}
	if it := g.cache.entries.Get(k); it != nil {
		return toItem[T](it.Value(), true)
	}

	produced := false
	v, err, _ := g.cache.flights.Do(fmt.Sprintf("%v/%x", k.typ, k.hash), func() (any, error) {
		if it := g.cache.entries.Get(k); it != nil {
			return it.Value(), nil
		}
		value, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		produced = true
		e := entry{value: value, createdAt: time.Now()}
		ttl := ttlcache.DefaultTTL
		if g.ttl > 0 {
			ttl = g.ttl
		}
		g.cache.entries.Set(k, e, ttl)
		return e, nil
	})
	if err != nil {
		return zero, err
	}
	return toItem[T](v.(entry), !produced)
}

func toItem[T any](e entry, hit bool) (Item[T], error) {
	value, ok := e.value.(T)
	if !ok {
		return Item[T]{}, fmt.Errorf("%w: %T", ErrUnexpectedType, e.value)
	}
	return Item[T]{value: value, createdAt: e.createdAt, hit: hit}, nil
}
