// Package redis provides a Redis client module with a keepalive task.
package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/majordome-go/majordome"
)

// ModuleName is the name of this module
const ModuleName = "redis"

// Client is a Redis client owned by the application.
type Client struct {
	*goredis.Client

	config Config
	logger majordome.Logger
	pings  atomic.Int64
}

// Module connects Redis clients. Instances are shared per resolved Config.
var Module = &majordome.Definition[*Client, Config]{
	Name:    ModuleName,
	Version: "1.0.0",
	Configure: func(ctx context.Context, b *majordome.Builder, opts majordome.InitOptions) (Config, error) {
		if cfg, ok := majordome.OptionConfig[Config](opts); ok {
			return cfg, nil
		}
		return loadConfig(b.Getter(opts, ModuleName))
	},
	Construct: func(ctx context.Context, b *majordome.Builder, cfg Config) (*Client, error) {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
		}
		b.Logger().Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
		return &Client{Client: client, config: cfg, logger: b.Logger()}, nil
	},
}

// Default is the client configured from the REDIS_* keys.
var Default = majordome.Declare(ModuleName, Module)

// Start runs the keepalive task. It keeps pinging after an exit request so
// that draining handlers still have a healthy connection.
func (c *Client) Start(ctx context.Context, app *majordome.App) ([]*majordome.Task, error) {
	interval := c.config.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return []*majordome.Task{majordome.Go(ctx, "keepalive", func(ctx context.Context) error {
		for app.SleepUntil(ctx, interval, true) {
			if app.IsClosing() {
				break
			}
			if err := c.Ping(ctx).Err(); err != nil {
				if app.IsClosing() {
					break
				}
				c.logger.Warn("Redis keepalive failed", "addr", c.config.Addr, "error", err)
				continue
			}
			c.pings.Add(1)
		}
		return nil
	})}, nil
}

// Stop closes the client.
func (c *Client) Stop(ctx context.Context, app *majordome.App) error {
	if err := c.Close(); err != nil {
		return fmt.Errorf("error closing Redis client: %w", err)
	}
	return nil
}
