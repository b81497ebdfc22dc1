// Package document holds the metadata side of an uploaded identity-document
// photo: the validator that decides whether an upload is acceptable and the
// repository over the files table. The bytes themselves live in
// platform/storage; the patient workflow keeps the two consistent.
package document

import (
	"time"

	"github.com/google/uuid"
)

// File maps to the files table. StoragePath is server-generated and unique;
// the on-disk bytes at that path exist for as long as the row does.
type File struct {
	ID               uuid.UUID `db:"id" json:"id"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StoragePath      string    `db:"storage_path" json:"storage_path"`
	ContentType      string    `db:"content_type" json:"content_type"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
