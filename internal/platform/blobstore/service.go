package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sniffLen is how many leading bytes content type detection inspects.
const sniffLen = 512

// Caller is who is asking for a file operation.
type Caller struct {
	ID       uuid.UUID
	Clinical bool
	Admin    bool
}

type Service struct {
	backend Backend
	files   Repository
	maxSize int64
	urlBase string
	logger  zerolog.Logger
}

// NewService builds the file service. urlBase prefixes the download URL
// stored on each file, e.g. "/api/v1/files".
func NewService(backend Backend, files Repository, maxSize int64, urlBase string, logger zerolog.Logger) *Service {
	return &Service{
		backend: backend,
		files:   files,
		maxSize: maxSize,
		urlBase: strings.TrimRight(urlBase, "/"),
		logger:  logger,
	}
}

// Upload stores content for caller. The content type is detected from the
// bytes themselves; the client supplied type is ignored.
func (s *Service) Upload(ctx context.Context, caller Caller, filename string, content io.Reader) (*File, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, ErrMissingFileName
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	mime := http.DetectContentType(head)
	ext, ok := AllowedContentTypes[mime]
	if !ok {
		return nil, ErrInvalidContentType
	}

	sum := sha256.Sum256(data)
	id := uuid.New()
	f := &File{
		ID:           id,
		UserID:       caller.ID,
		URL:          fmt.Sprintf("%s/%s/download", s.urlBase, id),
		StorageKey:   id.String() + ext,
		Filename:     filename,
		Mime:         mime,
		Size:         int64(len(data)),
		Hash:         hex.EncodeToString(sum[:]),
		UploadMethod: s.backend.Method(),
	}

	if err := s.backend.Put(ctx, f.StorageKey, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	if err := s.files.Create(ctx, f); err != nil {
		if delErr := s.backend.Delete(ctx, f.StorageKey); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", f.StorageKey).Msg("orphaned upload content")
		}
		return nil, err
	}
	return f, nil
}

func canRead(c Caller, f *File) bool {
	return c.ID == f.UserID || c.Clinical || c.Admin
}

func (s *Service) Get(ctx context.Context, caller Caller, id uuid.UUID) (*File, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(caller, f) {
		return nil, ErrForbidden
	}
	return f, nil
}

// Open returns the content of a file. The caller closes the reader.
func (s *Service) Open(ctx context.Context, caller Caller, id uuid.UUID) (io.ReadCloser, *File, error) {
	f, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.backend.Open(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

// Delete removes a file. Only its owner or an admin may delete it.
func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if caller.ID != f.UserID && !caller.Admin {
		return ErrForbidden
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, f.StorageKey); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", f.StorageKey).Msg("file content not removed")
	}
	return nil
}
