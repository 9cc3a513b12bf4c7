package cache

import (
	"time"

	"github.com/majordome-go/majordome/config"
)

// Config defines the configuration of one cache instance.
//
// Example environment variables:
//
//	CACHE_MAX_SIZE=1000
//	CACHE_DEFAULT_TTL=5m
//	CACHE_EXPIRY_INTERVAL=30s
//	PRIMARY_CACHE_MAX_SIZE=50000
type Config struct {
	// MaxSize is the maximum number of entries. When it is reached the
	// least recently used entries are evicted. Default: 1000.
	MaxSize uint64

	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means entries only leave the cache through eviction.
	DefaultTTL time.Duration

	// ExpiryInterval is the period of the expired-entry sweep. Default: 1m.
	ExpiryInterval time.Duration
}

const defaultExpiryInterval = time.Minute

func loadConfig(g *config.Getter) Config {
	return Config{
		MaxSize:        config.GetOr(g, "max_size", uint64(1000)),
		DefaultTTL:     config.GetOr(g, "default_ttl", time.Duration(0)),
		ExpiryInterval: config.GetOr(g, "expiry_interval", time.Duration(0)),
	}
}
