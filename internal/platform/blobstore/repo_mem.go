package blobstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fileRepoMem struct {
	mu    sync.RWMutex
	files map[uuid.UUID]File
}

func NewFileRepoMem() Repository {
	return &fileRepoMem{files: make(map[uuid.UUID]File)}
}

func (r *fileRepoMem) Create(_ context.Context, f *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.UploadedAt = time.Now().UTC()
	r.files[f.ID] = *f
	return nil
}

func (r *fileRepoMem) GetByID(_ context.Context, id uuid.UUID) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (r *fileRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return ErrNotFound
	}
	delete(r.files, id)
	return nil
}
