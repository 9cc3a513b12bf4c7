// Package cache provides an expiring, typed response cache module.
//
// Values are keyed by their Go type and a hash of caller-provided key parts,
// so the same key parts may cache values of different types side by side.
// Concurrent misses on the same key run the producer once.
//
//	c, _ := cache.Default.Get(app)
//	item, err := cache.GetWith(ctx, c.Key("user", id).TTL(time.Minute), func(ctx context.Context) (*User, error) {
//		return repo.Find(ctx, id)
//	})
package cache

import (
	"context"

	"github.com/majordome-go/majordome"
)

// ModuleName is the name of this module
const ModuleName = "cache"

// Module builds caches. Instances are shared per resolved Config.
var Module = &majordome.Definition[*Cache, Config]{
	Name:    ModuleName,
	Version: "1.0.0",
	Configure: func(ctx context.Context, b *majordome.Builder, opts majordome.InitOptions) (Config, error) {
		if cfg, ok := majordome.OptionConfig[Config](opts); ok {
			return cfg, nil
		}
		return loadConfig(b.Getter(opts, ModuleName)), nil
	},
	Construct: func(ctx context.Context, b *majordome.Builder, cfg Config) (*Cache, error) {
		c := New(cfg, b.Logger())
		b.Logger().Info("Initialized cache", "maxSize", cfg.MaxSize, "defaultTTL", cfg.DefaultTTL)
		return c, nil
	},
}

// Default is the cache configured from the CACHE_* keys.
var Default = majordome.Declare(ModuleName, Module)

// Start runs the expiry loop until the application closes.
func (c *Cache) Start(ctx context.Context, app *majordome.App) ([]*majordome.Task, error) {
	return []*majordome.Task{majordome.Go(ctx, "expiry", func(ctx context.Context) error {
		c.runExpiry(ctx)
		return nil
	})}, nil
}

// Stop drops every entry.
func (c *Cache) Stop(ctx context.Context, app *majordome.App) error {
	n := c.Len()
	c.entries.DeleteAll()
	c.logger.Info("Cache cleared", "entries", n)
	return nil
}
