package resumes

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resume
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Resume)}
}

// Create stores a resume.
func (r *MemoryRepo) Create(ctx context.Context, res Resume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[res.ID] = res
	return nil
}

// Get returns a resume by id.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Resume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.data[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return res, nil
}
