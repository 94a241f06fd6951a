// Package blobstore stores uploaded medical documents. File bytes live in a
// Backend (local disk or memory) and their metadata in a Repository, and
// records reference them by id and url.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("file not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("only PDF, JPEG, PNG and WebP files are allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrForbidden          = errors.New("not allowed")
)

// AllowedContentTypes maps accepted MIME types to the extension used for
// storage keys.
var AllowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
}

const (
	MethodLocal  = "local"
	MethodMemory = "memory"
)

// File is the stored metadata of one upload.
type File struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	URL          string    `json:"url"`
	StorageKey   string    `json:"-"`
	Filename     string    `json:"filename"`
	Mime         string    `json:"mime"`
	Size         int64     `json:"size"`
	Hash         string    `json:"hash"`
	UploadMethod string    `json:"upload_method"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Backend holds file content under opaque keys.
type Backend interface {
	// Method names the backend as recorded in File.UploadMethod.
	Method() string
	Put(ctx context.Context, key string, content io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Repository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
