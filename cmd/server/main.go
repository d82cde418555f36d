package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/eduardobaptist/ifpassweb/internal/backend"
	"github.com/eduardobaptist/ifpassweb/internal/config"
	"github.com/eduardobaptist/ifpassweb/internal/jobs"
	"github.com/eduardobaptist/ifpassweb/internal/metrics"
	"github.com/eduardobaptist/ifpassweb/internal/profile"
	"github.com/eduardobaptist/ifpassweb/internal/session"
	"github.com/eduardobaptist/ifpassweb/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".env load skipped: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var grants session.GrantStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		grants = session.NewRedisGrantStore(redisClient, cfg.SessionTTL)
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendAnonKey, cfg.BackendJWTSecret, cfg.BackendTimeout)
	profiles := profile.NewLoader(backendClient)
	manager := session.NewManager(backendClient, profiles, grants, cfg.SessionTTL, cfg.SessionRefreshLeeway)

	unsubscribe := manager.Subscribe(func(change session.Change) {
		metrics.SessionTransitions.WithLabelValues(change.Snapshot.State.String()).Inc()
	})
	defer unsubscribe()

	jobs.StartSessionMaintenance(ctx, cfg, manager)

	server, err := web.NewServer(cfg, backendClient, manager)
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("ifpassweb listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
