package health

import (
	"context"
	"time"
)

type storeStats interface {
	Stats(ctx context.Context) map[string]any
}

type repoStats interface {
	Stats(ctx context.Context) (map[string]any, error)
}

// Service reports liveness together with session store and repository numbers.
type Service struct {
	Store   storeStats
	Repo    repoStats
	Info    map[string]any
	started time.Time
}

// NewService constructs a health service. info is copied into every status payload.
func NewService(store storeStats, repo repoStats, info map[string]any) *Service {
	return &Service{Store: store, Repo: repo, Info: info, started: time.Now()}
}

// Status returns the health payload and whether every dependency answered.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	ok := true
	out := map[string]any{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	for k, v := range s.Info {
		out[k] = v
	}
	if s.Store != nil {
		out["session_store"] = s.Store.Stats(ctx)
	}
	if s.Repo != nil {
		stats, err := s.Repo.Stats(ctx)
		if err != nil {
			ok = false
			out["status"] = "degraded"
			out["session_repo"] = map[string]any{"error": err.Error()}
		} else {
			out["session_repo"] = stats
		}
	}
	return out, ok
}
