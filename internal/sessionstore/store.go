// Package sessionstore keeps serialized interview sessions hot, in Redis when available and
// in process memory otherwise.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-backend/internal/shared/telemetry"
)

const keyPrefix = "session:"

// Backend names reported by Stats.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type memEntry struct {
	data     []byte
	storedAt time.Time
}

// Store holds session blobs with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	mem map[string]memEntry
}

// New connects to redisURL. When Redis is unreachable it falls back to memory unless required is set.
func New(ctx context.Context, redisURL string, ttl time.Duration, required bool) (*Store, error) {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := NewMemory(ttl)

	if strings.TrimSpace(redisURL) == "" {
		if required {
			return nil, errors.New("REDIS_URL is required")
		}
		return s, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		if required {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		telemetry.Warn("sessionstore.redis_url_invalid", map[string]any{"error": err.Error()})
		return s, nil
	}
	opts.DialTimeout = 2 * time.Second
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		if required {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		telemetry.Warn("sessionstore.redis_unavailable", map[string]any{"error": err.Error(), "fallback": BackendMemory})
		return s, nil
	}

	s.rdb = client
	telemetry.Info("sessionstore.redis_connected", map[string]any{"addr": opts.Addr})
	return s, nil
}

// NewMemory returns a store that never touches Redis.
func NewMemory(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		ttl: ttl,
		now: time.Now,
		mem: make(map[string]memEntry),
	}
}

// Backend reports which backend serves reads and writes.
func (s *Store) Backend() string {
	if s.rdb != nil {
		return BackendRedis
	}
	return BackendMemory
}

// Set stores data for id, replacing any previous value and restarting its TTL.
func (s *Store) Set(ctx context.Context, id string, data []byte) error {
	if s.rdb != nil {
		err := s.rdb.Set(ctx, keyPrefix+id, data, s.ttl).Err()
		if err == nil {
			return nil
		}
		telemetry.Error("sessionstore.redis_set_failed", map[string]any{"session_id": id, "error": err.Error()})
	}
	s.mu.Lock()
	s.mem[id] = memEntry{data: append([]byte(nil), data...), storedAt: s.now()}
	s.mu.Unlock()
	return nil
}

// Get returns the stored data. Expired entries are misses and are evicted.
func (s *Store) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
		switch {
		case err == nil:
			return data, true, nil
		case errors.Is(err, redis.Nil):
		default:
			telemetry.Error("sessionstore.redis_get_failed", map[string]any{"session_id": id, "error": err.Error()})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.mem[id]
	if !ok {
		return nil, false, nil
	}
	if s.expired(entry) {
		delete(s.mem, id)
		return nil, false, nil
	}
	return append([]byte(nil), entry.data...), true, nil
}

// Delete removes id from every backend and reports whether anything was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	if s.rdb != nil {
		n, err := s.rdb.Del(ctx, keyPrefix+id).Result()
		if err != nil {
			telemetry.Error("sessionstore.redis_delete_failed", map[string]any{"session_id": id, "error": err.Error()})
		}
		found = n > 0
	}
	s.mu.Lock()
	if _, ok := s.mem[id]; ok {
		delete(s.mem, id)
		found = true
	}
	s.mu.Unlock()
	return found, nil
}

// ListActive returns ids of live sessions across both backends, sorted. A failed Redis scan
// is logged and the memory entries are still returned.
func (s *Store) ListActive(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	if s.rdb != nil {
		keys, err := s.scan(ctx)
		if err != nil {
			telemetry.Error("sessionstore.redis_scan_failed", map[string]any{"error": err.Error()})
		}
		for _, k := range keys {
			seen[strings.TrimPrefix(k, keyPrefix)] = struct{}{}
		}
	}

	s.mu.Lock()
	for id, entry := range s.mem {
		if !s.expired(entry) {
			seen[id] = struct{}{}
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CleanupExpired evicts expired in-memory entries; Redis expires keys itself.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, entry := range s.mem {
		if s.expired(entry) {
			delete(s.mem, id)
			n++
		}
	}
	return n
}

// Stats describes the store for health output.
func (s *Store) Stats(ctx context.Context) map[string]any {
	redisCount := 0
	if s.rdb != nil {
		if keys, err := s.scan(ctx); err == nil {
			redisCount = len(keys)
		}
	}
	s.mu.Lock()
	memCount := len(s.mem)
	s.mu.Unlock()
	active, _ := s.ListActive(ctx)

	return map[string]any{
		"backend":           s.Backend(),
		"session_ttl_hours": s.ttl.Hours(),
		"redis_sessions":    redisCount,
		"memory_sessions":   memCount,
		"total_active":      len(active),
	}
}

// Ping checks the Redis connection; memory-only stores always succeed.
func (s *Store) Ping(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) scan(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *Store) expired(e memEntry) bool {
	return s.now().Sub(e.storedAt) >= s.ttl
}
