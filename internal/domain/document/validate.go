package document

import (
	"path/filepath"
	"strings"

	"github.com/patreg/patreg/internal/apperr"
)

// contentTypeByExtension is the fixed allow-list of document photo formats.
// The extension decides the canonical content type used for storage.
var contentTypeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ValidatePhoto checks the declared content type against the filename
// extension and returns the canonical content type to store. Both checks are
// case-insensitive, and the two must agree: a .gif renamed to .jpg, or a .jpg
// declared as text/plain, is rejected.
func ValidatePhoto(declaredContentType, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	canonical, ok := contentTypeByExtension[ext]
	if !ok {
		return "", apperr.New(apperr.InvalidPayload, "Document photo must be PNG or JPG/JPEG.")
	}

	declared := strings.ToLower(strings.TrimSpace(declaredContentType))
	if !allowedContentTypes[declared] || declared != canonical {
		return "", apperr.New(apperr.InvalidPayload, "Document photo must be PNG or JPG/JPEG.")
	}

	return canonical, nil
}
