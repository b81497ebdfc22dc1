package document

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the transactional store for file metadata rows. All methods
// join the ambient transaction when the context carries one.
type Repository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
