package redis

import (
	"time"

	"github.com/majordome-go/majordome/config"
)

// Config defines one Redis connection.
//
// Example environment variables:
//
//	REDIS_ADDR=localhost:6379
//	REDIS_PASSWORD=secret
//	SESSIONS_REDIS_DB=2
type Config struct {
	// Addr is the host:port of the server. Required.
	Addr string

	// Password is used when set.
	Password string

	// DB selects the logical database.
	DB int

	// PingInterval is the period of the keepalive ping. Default: 30s.
	PingInterval time.Duration
}

func loadConfig(g *config.Getter) (Config, error) {
	addr, err := config.Require[string](g, "addr")
	if err != nil {
		return Config{}, err
	}
	password, _ := config.Optional[string](g, "password")
	return Config{
		Addr:         addr,
		Password:     password,
		DB:           config.GetOr(g, "db", 0),
		PingInterval: config.GetOr(g, "ping_interval", 30*time.Second),
	}, nil
}
