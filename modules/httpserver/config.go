package httpserver

import (
	"time"

	"github.com/majordome-go/majordome/config"
)

// Config defines the configuration of one HTTP server.
//
// Example environment variables:
//
//	HTTPSERVER_ADDR=:8080
//	HTTPSERVER_SHUTDOWN_TIMEOUT=20s
//	ADMIN_HTTPSERVER_ADDR=127.0.0.1:9090
type Config struct {
	// Addr is the listen address. Default: ":8080".
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownTimeout bounds the graceful shutdown. Default: 15s.
	ShutdownTimeout time.Duration

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

func loadConfig(g *config.Getter) Config {
	cert, _ := config.Optional[string](g, "cert_file")
	key, _ := config.Optional[string](g, "key_file")
	return Config{
		Addr:            config.GetOr(g, "addr", ":8080"),
		ReadTimeout:     config.GetOr(g, "read_timeout", 15*time.Second),
		WriteTimeout:    config.GetOr(g, "write_timeout", 15*time.Second),
		IdleTimeout:     config.GetOr(g, "idle_timeout", 60*time.Second),
		ShutdownTimeout: config.GetOr(g, "shutdown_timeout", 15*time.Second),
		CertFile:        cert,
		KeyFile:         key,
	}
}

func (c Config) tls() bool {
	return c.CertFile != "" && c.KeyFile != ""
}
