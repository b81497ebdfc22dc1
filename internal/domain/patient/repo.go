package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the transactional store for patient rows. Reads return
// patients with their document file metadata attached. All methods join the
// ambient transaction when the context carries one.
//
// FindByEmail and FindByEmailExcluding return (nil, nil) when no patient
// matches; they are pre-check optimizations, the unique constraint on email
// remains the authoritative arbiter under concurrent inserts.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindByEmail(ctx context.Context, email string) (*Patient, error)
	FindByEmailExcluding(ctx context.Context, email string, excludeID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
