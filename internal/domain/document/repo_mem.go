package document

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patreg/patreg/internal/apperr"
)

// MemRepo is a thread-safe, in-memory Repository for testing and development.
type MemRepo struct {
	mu    sync.RWMutex
	files map[uuid.UUID]*File
}

func NewMemRepo() *MemRepo {
	return &MemRepo{files: make(map[uuid.UUID]*File)}
}

func (r *MemRepo) Create(_ context.Context, f *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *MemRepo) GetByID(_ context.Context, id uuid.UUID) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "file not found")
	}
	cp := *f
	return &cp, nil
}

func (r *MemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

// Len reports the number of stored rows; used by tests to assert cleanup.
func (r *MemRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
