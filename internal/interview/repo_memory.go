package interview

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]byte), now: time.Now}
}

// Save stores a deep copy of s.
func (r *MemoryRepo) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.SessionID] = raw
	return nil
}

// Load returns a copy of the stored session.
func (r *MemoryRepo) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	raw, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a session.
func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return false, nil
	}
	delete(r.data, id)
	return true, nil
}

// List returns session ids, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]string, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	return ids, nil
}

// CleanupOlderThan deletes sessions created before now-maxAge.
func (r *MemoryRepo) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := r.now().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(r.data, s.SessionID)
			n++
		}
	}
	return n, nil
}

// Stats reports totals.
func (r *MemoryRepo) Stats(ctx context.Context) (map[string]any, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	exchanges := 0
	for _, s := range sessions {
		exchanges += len(s.Exchanges)
	}
	return map[string]any{
		"backend":         "memory",
		"total_sessions":  len(sessions),
		"total_exchanges": exchanges,
	}, nil
}

func (r *MemoryRepo) all(ctx context.Context) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.data))
	for _, raw := range r.data {
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
