package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Record
}

// NewRecordRepoMem returns a process-local store for demo mode and tests.
func NewRecordRepoMem() RecordRepository {
	return &recordRepoMem{items: make(map[uuid.UUID]*Record)}
}

func clone(r *Record) *Record {
	cp := *r
	cp.Files = append([]FileRef{}, r.Files...)
	cp.Tags = append([]string{}, r.Tags...)
	return &cp
}

func (m *recordRepoMem) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	r.normalize()
	m.items[r.ID] = clone(r)
	return nil
}

func (m *recordRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[id]
	if !ok || r.Deleted {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (m *recordRepoMem) byUser(userID uuid.UUID) []*Record {
	var out []*Record
	for _, r := range m.items {
		if r.UserID == userID && !r.Deleted {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateOfVisit.Equal(out[j].DateOfVisit) {
			return out[i].DateOfVisit.After(out[j].DateOfVisit)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *recordRepoMem) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.byUser(userID)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *recordRepoMem) AllByUser(_ context.Context, userID uuid.UUID) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byUser(userID), nil
}

func (m *recordRepoMem) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found []*Record
	for _, id := range ids {
		if r, ok := m.items[id]; ok && !r.Deleted {
			found = append(found, clone(r))
		}
	}
	return orderByIDs(found, ids), nil
}

func (m *recordRepoMem) Update(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[r.ID]
	if !ok || cur.Deleted {
		return ErrNotFound
	}
	r.UserID, r.UploadedBy, r.Type, r.CreatedAt = cur.UserID, cur.UploadedBy, cur.Type, cur.CreatedAt
	r.normalize()
	r.UpdatedAt = time.Now().UTC()
	m.items[r.ID] = clone(r)
	return nil
}

func (m *recordRepoMem) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.Deleted {
		return ErrNotFound
	}
	r.Deleted = true
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *recordRepoMem) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.items {
		if !r.Deleted {
			n++
		}
	}
	return n, nil
}
