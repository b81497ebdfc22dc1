// Package patient implements patient registration: the records themselves and
// the workflow that keeps each record consistent with its document photo
// across create, replace, patch, and delete.
package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/patreg/patreg/internal/domain/document"
)

// Patient maps to the patients table. Every patient references exactly one
// document file; the reference is never null after creation.
type Patient struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	PhoneNumber    string         `db:"phone_number" json:"phone_number"`
	DocumentFileID uuid.UUID      `db:"document_file_id" json:"-"`
	DocumentFile   *document.File `json:"document_file,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CreatePayload carries the scalar fields for create and replace. Fields are
// validated at the boundary before they reach the workflow.
type CreatePayload struct {
	FullName    string `json:"full_name" form:"full_name"`
	Email       string `json:"email" form:"email"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
}

// PatchPayload carries optional overwrites; nil means "leave unchanged".
type PatchPayload struct {
	FullName    *string `json:"full_name" form:"full_name"`
	Email       *string `json:"email" form:"email"`
	PhoneNumber *string `json:"phone_number" form:"phone_number"`
}

// Empty reports whether the patch sets no field at all.
func (p PatchPayload) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.PhoneNumber == nil
}
