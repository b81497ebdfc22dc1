package patient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patreg/patreg/internal/apperr"
)

// MemRepo is a thread-safe, in-memory Repository for testing and development.
// It enforces email uniqueness the way the database constraint does so that
// workflow tests exercise the same failure paths.
type MemRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient

	// FailCreate, when set, makes the next Create return the given error.
	// Used by tests to simulate a failure between file write and commit.
	FailCreate error
	// FailUpdate behaves like FailCreate for Update.
	FailUpdate error
}

func NewMemRepo() *MemRepo {
	return &MemRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (r *MemRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		err := r.FailCreate
		r.FailCreate = nil
		return err
	}
	for _, existing := range r.patients {
		if existing.Email == p.Email {
			return apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *MemRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "Patient not found.")
	}
	cp := *p
	return &cp, nil
}

func (r *MemRepo) FindByEmail(_ context.Context, email string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemRepo) FindByEmailExcluding(_ context.Context, email string, excludeID uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Email == email && p.ID != excludeID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemRepo) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate != nil {
		err := r.FailUpdate
		r.FailUpdate = nil
		return err
	}
	existing, ok := r.patients[p.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "Patient not found.")
	}
	for _, other := range r.patients {
		if other.ID != p.ID && other.Email == p.Email {
			return apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
		}
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *MemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.patients, id)
	return nil
}

// Len reports the number of stored rows; used by tests to assert cleanup.
func (r *MemRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients)
}

func (r *MemRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		cp := *p
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}
