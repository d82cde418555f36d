package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr             string
	BackendURL           string
	BackendAnonKey       string
	BackendJWTSecret     string
	BackendTimeout       time.Duration
	SessionSecret        string
	SessionTTL           time.Duration
	SessionRefreshLeeway time.Duration
	SessionSweepInterval time.Duration
	SessionSweepTimeout  time.Duration
	RedisAddr            string
	RedisPassword        string
}

func Load() Config {
	return Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		BackendURL:           getenv("BACKEND_URL", "http://127.0.0.1:54321"),
		BackendAnonKey:       getenv("BACKEND_ANON_KEY", ""),
		BackendJWTSecret:     getenv("BACKEND_JWT_SECRET", ""),
		BackendTimeout:       getenvDuration("BACKEND_TIMEOUT", 10*time.Second),
		SessionSecret:        getenv("SESSION_SECRET", ""),
		SessionTTL:           getenvDuration("SESSION_TTL", 12*time.Hour),
		SessionRefreshLeeway: getenvDuration("SESSION_REFRESH_LEEWAY", 2*time.Minute),
		SessionSweepInterval: getenvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		SessionSweepTimeout:  getenvDuration("SESSION_SWEEP_TIMEOUT", 10*time.Second),
		RedisAddr:            getenv("REDIS_ADDR", ""),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
