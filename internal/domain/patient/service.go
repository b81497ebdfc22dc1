package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/patreg/patreg/internal/apperr"
	"github.com/patreg/patreg/internal/domain/document"
	"github.com/patreg/patreg/internal/platform/db"
	"github.com/patreg/patreg/internal/platform/storage"
)

// Service orchestrates the patient workflow. The database is the source of
// truth and the uploads directory is treated as a cache of whatever the
// committed rows reference: new bytes are written before any row points at
// them, superseded bytes are removed only after the commit that unlinked
// them, and bytes written for an operation that fails are removed before the
// failure is returned. A crash can therefore leave at most a harmless
// orphaned file on disk, never a patient whose photo is missing.
type Service struct {
	patients Repository
	files    document.Repository
	store    storage.Store
	tx       db.Beginner
	logger   zerolog.Logger
}

func NewService(patients Repository, files document.Repository, store storage.Store, tx db.Beginner, logger zerolog.Logger) *Service {
	return &Service{patients: patients, files: files, store: store, tx: tx, logger: logger}
}

// saveUpload validates the upload against the allow-list and streams it to
// disk under a fresh storage path.
func (s *Service) saveUpload(upload storage.Upload) (*storage.SavedFile, error) {
	canonical, err := document.ValidatePhoto(upload.ContentType, upload.Filename)
	if err != nil {
		return nil, err
	}
	upload.ContentType = canonical
	return s.store.Save(upload)
}

// discard removes bytes written for an operation that did not commit.
func (s *Service) discard(saved *storage.SavedFile) {
	if saved == nil {
		return
	}
	if err := s.store.Delete(saved.StoragePath); err != nil {
		s.logger.Error().Err(err).Str("storage_path", saved.StoragePath).
			Msg("failed to remove uncommitted upload")
	}
}

// dropCommitted removes bytes a commit has just unlinked. Failures are logged
// only: the database no longer references the path, so a leftover file is an
// orphan, not an inconsistency.
func (s *Service) dropCommitted(storagePath string) {
	if err := s.store.Delete(storagePath); err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).
			Msg("failed to remove superseded file")
	}
}

// Create registers a patient with its document photo. The file is written to
// disk first; the file row and patient row are then inserted in one
// transaction. If anything fails after the disk write, the transaction is
// rolled back and the bytes are removed before the error is returned.
func (s *Service) Create(ctx context.Context, payload CreatePayload, upload storage.Upload) (*Patient, error) {
	existing, err := s.patients.FindByEmail(ctx, payload.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
	}

	saved, err := s.saveUpload(upload)
	if err != nil {
		return nil, err
	}

	tx, txCtx, err := s.tx.Begin(ctx)
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	file := &document.File{
		OriginalFilename: saved.OriginalFilename,
		StoragePath:      saved.StoragePath,
		ContentType:      saved.ContentType,
		SizeBytes:        saved.SizeBytes,
	}
	if err := s.files.Create(txCtx, file); err != nil {
		_ = tx.Rollback(ctx)
		s.discard(saved)
		return nil, err
	}

	p := &Patient{
		FullName:       payload.FullName,
		Email:          payload.Email,
		PhoneNumber:    payload.PhoneNumber,
		DocumentFileID: file.ID,
		DocumentFile:   file,
	}
	if err := s.patients.Create(txCtx, p); err != nil {
		_ = tx.Rollback(ctx)
		s.discard(saved)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		s.discard(saved)
		return nil, err
	}

	return p, nil
}

// Get returns the patient with its file metadata attached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// List returns one page of patients ordered by creation time descending,
// plus the total count. Page and size bounds are the caller's contract; the
// workflow only translates them into an offset.
func (s *Service) List(ctx context.Context, page, size int) ([]*Patient, int, error) {
	return s.patients.List(ctx, size, (page-1)*size)
}

// Replace overwrites every scalar field and, when an upload is supplied,
// swaps the document photo. The old file row is deleted in the same
// transaction that repoints the patient; the old bytes are removed only
// after that transaction commits.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, payload CreatePayload, upload *storage.Upload) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	other, err := s.patients.FindByEmailExcluding(ctx, payload.Email, id)
	if err != nil {
		return nil, err
	}
	if other != nil {
		return nil, apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
	}

	p.FullName = payload.FullName
	p.Email = payload.Email
	p.PhoneNumber = payload.PhoneNumber

	return s.commitUpdate(ctx, p, upload)
}

// Patch overwrites only the supplied fields and optionally swaps the photo.
// A patch that sets nothing and carries no file is rejected rather than
// silently accepted.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, payload PatchPayload, upload *storage.Upload) (*Patient, error) {
	if payload.Empty() && upload == nil {
		return nil, apperr.New(apperr.InvalidPayload, "Patch requires at least one field or a document photo.")
	}

	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload.Email != nil {
		other, err := s.patients.FindByEmailExcluding(ctx, *payload.Email, id)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
		}
		p.Email = *payload.Email
	}
	if payload.FullName != nil {
		p.FullName = *payload.FullName
	}
	if payload.PhoneNumber != nil {
		p.PhoneNumber = *payload.PhoneNumber
	}

	return s.commitUpdate(ctx, p, upload)
}

// commitUpdate persists a mutated patient, swapping its file when upload is
// non-nil. On any failure before commit the new bytes are removed and the
// old file, still referenced, is left untouched.
func (s *Service) commitUpdate(ctx context.Context, p *Patient, upload *storage.Upload) (*Patient, error) {
	var saved *storage.SavedFile
	if upload != nil {
		var err error
		saved, err = s.saveUpload(*upload)
		if err != nil {
			return nil, err
		}
	}

	oldFileID := p.DocumentFileID
	oldPath := p.DocumentFile.StoragePath

	tx, txCtx, err := s.tx.Begin(ctx)
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	if saved != nil {
		file := &document.File{
			OriginalFilename: saved.OriginalFilename,
			StoragePath:      saved.StoragePath,
			ContentType:      saved.ContentType,
			SizeBytes:        saved.SizeBytes,
		}
		if err := s.files.Create(txCtx, file); err != nil {
			_ = tx.Rollback(ctx)
			s.discard(saved)
			return nil, err
		}
		p.DocumentFileID = file.ID
		p.DocumentFile = file
	}

	// The reference swap must land before the old row can go: patients
	// holds a foreign key into files.
	if err := s.patients.Update(txCtx, p); err != nil {
		_ = tx.Rollback(ctx)
		s.discard(saved)
		return nil, err
	}

	if saved != nil {
		if err := s.files.Delete(txCtx, oldFileID); err != nil {
			_ = tx.Rollback(ctx)
			s.discard(saved)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		s.discard(saved)
		return nil, err
	}

	if saved != nil {
		s.dropCommitted(oldPath)
	}
	return p, nil
}

// Delete removes the patient row and its file row in one transaction, then
// removes the bytes from disk.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx, txCtx, err := s.tx.Begin(ctx)
	if err != nil {
		return err
	}

	if err := s.patients.Delete(txCtx, id); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := s.files.Delete(txCtx, p.DocumentFileID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	s.dropCommitted(p.DocumentFile.StoragePath)
	return nil
}
