// Package memo provides a keyed "compute once, share the result" cache.
//
// A Cache runs a producer at most once per key and makes the produced value
// visible to every caller of that key, including callers that arrived while
// production was still running. Population is serialised by a single lock
// for the whole cache; lookups of populated keys never touch that lock.
//
// Basic usage:
//
//	plans := memo.New[string, *Plan]()
//	plan, err := plans.GetOrCompute(ctx, shape, func(ctx context.Context) (*Plan, error) {
//		return compile(ctx, shape)
//	})
package memo

import (
	"context"
	"fmt"
	"sync"
)

// Producer computes the value for a key that is not cached yet.
type Producer[V any] func(ctx context.Context) (V, error)

// Cache is a single-flight memoization table. The zero value is not usable;
// create one with New.
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V

	// fill is a one-slot semaphore held while a producer runs. A channel is
	// used instead of a sync.Mutex so that waiting callers can give up when
	// their context ends.
	fill chan struct{}
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		values: make(map[K]V),
		fill:   make(chan struct{}, 1),
	}
}

// Get returns the cached value for key, if any. It never runs a producer.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]
	return v, ok
}

// Put stores v under key unless a value is already present. It returns the
// value that ends up cached and whether v was the one inserted.
func (c *Cache[K, V]) Put(key K, v V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.values[key]; ok {
		return existing, false
	}
	c.values[key] = v
	return v, true
}

// Delete drops the cached value for key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)
}

// Len returns the number of cached values.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.values)
}

// Range calls fn for every cached entry until fn returns false. The cache
// must not be mutated from fn.
func (c *Cache[K, V]) Range(fn func(key K, v V) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.values {
		if !fn(k, v) {
			return
		}
	}
}

// GetOrCompute returns the value cached for key, running produce to fill it
// when absent. Only one producer runs at a time for the whole cache; callers
// that queue behind it re-check the table before producing, so a key is
// produced at most once. A failed producer leaves the key absent so that the
// next caller tries again.
//
// The producer must not call GetOrCompute on the same cache.
func (c *Cache[K, V]) GetOrCompute(ctx context.Context, key K, produce Producer[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	var zero V
	select {
	case c.fill <- struct{}{}:
	case <-ctx.Done():
		return zero, fmt.Errorf("waiting for cache fill: %w", ctx.Err())
	}
	defer func() { <-c.fill }()

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	stored, _ := c.Put(key, v)
	return stored, nil
}
