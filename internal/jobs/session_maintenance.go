package jobs

import (
	"context"
	"log"
	"time"

	"github.com/eduardobaptist/ifpassweb/internal/config"
	"github.com/eduardobaptist/ifpassweb/internal/session"
)

// StartSessionMaintenance runs the periodic session upkeep loop: refresh
// grants that are about to expire and drop entries nobody has touched
// within the session TTL. It returns immediately; the loop stops when ctx
// is cancelled.
func StartSessionMaintenance(ctx context.Context, cfg config.Config, manager *session.Manager) {
	interval := cfg.SessionSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.SessionSweepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				manager.RefreshDue(tickCtx, now)
				cancel()
				if removed := manager.SweepExpired(now); removed > 0 {
					log.Printf("session sweep removed %d idle sessions", removed)
				}
			}
		}
	}()
}
