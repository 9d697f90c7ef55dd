package janitor

import (
	"context"
	"time"

	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

// Defaults applied when Janitor fields are zero.
const (
	DefaultInterval  = 10 * time.Minute
	DefaultRetention = 24 * time.Hour
)

// ExpiringStore evicts entries past their TTL.
type ExpiringStore interface {
	CleanupExpired() int
}

// Pruner deletes durable records older than maxAge.
type Pruner interface {
	CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// Janitor periodically clears expired hot sessions and prunes old durable ones.
type Janitor struct {
	Store     ExpiringStore
	Repo      Pruner
	Interval  time.Duration
	Retention time.Duration
}

// RunOnce performs a single cleanup pass.
func (j *Janitor) RunOnce(ctx context.Context) (storeRemoved, repoRemoved int, err error) {
	if j.Store != nil {
		storeRemoved = j.Store.CleanupExpired()
		metrics.AddCleaned("store", storeRemoved)
	}
	if j.Repo != nil {
		retention := j.Retention
		if retention <= 0 {
			retention = DefaultRetention
		}
		repoRemoved, err = j.Repo.CleanupOlderThan(ctx, retention)
		metrics.AddCleaned("repo", repoRemoved)
	}
	return storeRemoved, repoRemoved, err
}

// Run cleans up every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	telemetry.Info("janitor.started", map[string]any{
		"interval":  interval.String(),
		"retention": j.Retention.String(),
	})
	for {
		select {
		case <-ctx.Done():
			telemetry.Info("janitor.stopped", nil)
			return
		case <-ticker.C:
			store, repo, err := j.RunOnce(ctx)
			if err != nil {
				telemetry.Error("janitor.cleanup_failed", map[string]any{"error": err.Error()})
				continue
			}
			if store > 0 || repo > 0 {
				telemetry.Info("janitor.cleanup", map[string]any{
					"store_removed": store,
					"repo_removed":  repo,
				})
			}
		}
	}
}
