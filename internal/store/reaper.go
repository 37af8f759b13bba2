package store

import (
	"context"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// Reaper periodically sweeps every registered in-memory store for
// TTL-expired entries. It never terminates on a per-store failure —
// only explicit cancellation of the context passed to Run stops it.
type Reaper struct {
	interval time.Duration
	targets  []Reapable
}

// NewReaper builds a reaper that sweeps interval-apart. Register
// stores with Add before calling Run.
func NewReaper(interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Reaper{interval: interval}
}

// Add registers an in-memory store to be swept on every tick.
func (r *Reaper) Add(target Reapable) {
	r.targets = append(r.targets, target)
}

// Run blocks, sweeping every registered store on each tick, until ctx
// is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infow("reaper stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	now := time.Now()
	for _, target := range r.targets {
		removed := func() (n int) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorw("reaper sweep panicked, continuing", "recover", rec)
				}
			}()
			return target.ReapExpired(now)
		}()
		if removed > 0 {
			logger.Debugw("reaper evicted expired entries", "count", removed)
		}
	}
}
