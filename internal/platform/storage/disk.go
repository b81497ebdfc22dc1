// Package storage persists uploaded document bytes on the local filesystem.
// Storage paths are always server-generated, never derived from the
// caller-supplied filename, so concurrent writers cannot collide and path
// traversal is impossible by construction.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/patreg/patreg/internal/apperr"
)

// Upload is the stream handed to Save together with the caller-declared
// metadata. ContentType must already be the canonical type produced by
// document validation.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// SavedFile describes a file that has been written to disk.
type SavedFile struct {
	OriginalFilename string
	StoragePath      string
	ContentType      string
	SizeBytes        int64
}

// Store is the byte-content persistence contract the patient workflow
// depends on.
type Store interface {
	Save(upload Upload) (*SavedFile, error)
	Delete(storagePath string) error
	Exists(storagePath string) bool
}

// DiskStore writes uploads in fixed-size chunks under a single uploads
// directory, enforcing a maximum size incrementally while streaming.
type DiskStore struct {
	dir       string
	chunkSize int
	maxBytes  int64
}

func NewDiskStore(dir string, chunkSize int, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, chunkSize: chunkSize, maxBytes: maxBytes}, nil
}

// Path resolves a storage path to its absolute location under the uploads
// directory.
func (s *DiskStore) Path(storagePath string) string {
	return filepath.Join(s.dir, storagePath)
}

// Save streams the upload to a freshly generated storage path. The size check
// runs per chunk, so an oversized upload is aborted without buffering it in
// full; the partial file is removed before the error is returned.
func (s *DiskStore) Save(upload Upload) (*SavedFile, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	storagePath := uuid.New().String() + ext

	dst, err := os.Create(s.Path(storagePath))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", storagePath, err)
	}

	var size int64
	buf := make([]byte, s.chunkSize)
	for {
		n, readErr := upload.Reader.Read(buf)
		if n > 0 {
			size += int64(n)
			if size > s.maxBytes {
				dst.Close()
				_ = s.Delete(storagePath)
				return nil, apperr.Newf(apperr.InvalidPayload,
					"Document photo exceeds max size of %dMB.", s.maxBytes/(1024*1024))
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				dst.Close()
				_ = s.Delete(storagePath)
				return nil, fmt.Errorf("write %s: %w", storagePath, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			_ = s.Delete(storagePath)
			return nil, fmt.Errorf("read upload: %w", readErr)
		}
	}

	if err := dst.Close(); err != nil {
		_ = s.Delete(storagePath)
		return nil, fmt.Errorf("close %s: %w", storagePath, err)
	}

	original := filepath.Base(upload.Filename)
	if original == "." || original == string(filepath.Separator) || original == "" {
		original = storagePath
	}

	return &SavedFile{
		OriginalFilename: original,
		StoragePath:      storagePath,
		ContentType:      upload.ContentType,
		SizeBytes:        size,
	}, nil
}

// Delete removes the file at storagePath. Deleting a path that does not exist
// is a no-op, so concurrent or repeated deletes are safe.
func (s *DiskStore) Delete(storagePath string) error {
	err := os.Remove(s.Path(storagePath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", storagePath, err)
	}
	return nil
}

// Exists reports whether bytes are present at storagePath.
func (s *DiskStore) Exists(storagePath string) bool {
	_, err := os.Stat(s.Path(storagePath))
	return err == nil
}
