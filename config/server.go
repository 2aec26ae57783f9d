package config

import (
	"sync"
	"time"
)

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

// ServerConfig holds HTTP server and rate-limit settings.
type ServerConfig struct {
	Port            string
	SyncMaxBytes    int64
	RateLimitWindow time.Duration
	RateLimitMax    int
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()

		serverConfig = &ServerConfig{
			Port:            getenv("SERVER_PORT", "8080"),
			SyncMaxBytes:    int64(getenvInt("SYNC_MAX_BYTES", 10*1024*1024)),
			RateLimitWindow: time.Duration(getenvInt("RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute,
			RateLimitMax:    getenvInt("RATE_LIMIT_MAX_REQUESTS", 50),
		}
	})
	return serverConfig
}
