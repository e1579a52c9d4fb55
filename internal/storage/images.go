// Package storage stores uploaded card images on the local filesystem.
//
// The store is deliberately dumb: bounded read, content-type sniff,
// write under a generated name, return the relative path. The card row
// records the path; the HTTP layer serves the directory statically.
package storage

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/apperror"
)

// MaxImageBytes bounds a single upload. Reads stop at the limit plus
// one byte, so an oversized body is detected without buffering it.
const MaxImageBytes = 5 << 20 // 5 MiB

// imageExtensions maps the sniffed content type to the stored file
// extension. Anything not in this map is rejected — the extension comes
// from the bytes, never from the client's filename.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore writes uploaded images into a directory on disk.
type ImageStore struct {
	dir string
}

// NewImageStore creates the directory if needed and returns the store.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir}, nil
}

// Save reads an uploaded image from r and writes it under a generated
// xid filename. Returns the filename (relative to the store's dir) to
// record on the card.
//
// Validation errors — not an image, or over the size limit — come back
// as apperror.ErrValidation so the handler renders them as a 400 rather
// than a server fault.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	// Read up to the limit plus one byte; landing past the limit means
	// the upload is too large.
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: reading upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", apperror.ValidationFailed("image",
			fmt.Sprintf("image must be %d bytes or smaller", MaxImageBytes))
	}
	if len(data) == 0 {
		return "", apperror.ValidationFailed("image", "image file is empty")
	}

	// http.DetectContentType sniffs the first 512 bytes, same algorithm
	// browsers use. The client-supplied Content-Type header is ignored.
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", apperror.ValidationFailed("image",
			fmt.Sprintf("unsupported image type %s", contentType))
	}

	name := xid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing image %s: %w", name, err)
	}

	return name, nil
}

// Dir returns the directory the store writes into, for the static file
// route.
func (s *ImageStore) Dir() string {
	return s.dir
}
