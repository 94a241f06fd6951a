package emergency

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/platform/db"
)

// -- Share tokens --

type shareTokenRepoMem struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*ShareToken
	byToken map[string]uuid.UUID
}

// NewShareTokenRepoMem returns a process-local token store. Consume is a
// compare-and-swap under the store mutex and is undone if the surrounding
// db.MemTransactor unit fails.
func NewShareTokenRepoMem() ShareTokenRepository {
	return &shareTokenRepoMem{
		byID:    make(map[uuid.UUID]*ShareToken),
		byToken: make(map[string]uuid.UUID),
	}
}

func cloneToken(t *ShareToken) *ShareToken {
	cp := *t
	cp.RecordIDs = append([]uuid.UUID(nil), t.RecordIDs...)
	if t.UserID != nil {
		id := *t.UserID
		cp.UserID = &id
	}
	if t.ExpiresAt != nil {
		at := *t.ExpiresAt
		cp.ExpiresAt = &at
	}
	return &cp
}

func (r *shareTokenRepoMem) Create(_ context.Context, t *ShareToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[t.Token]; ok {
		return ErrTokenTaken
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Used = false
	t.CreatedAt = time.Now().UTC()
	r.byID[t.ID] = cloneToken(t)
	r.byToken[t.Token] = t.ID
	return nil
}

func (r *shareTokenRepoMem) GetByToken(_ context.Context, token string) (*ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneToken(r.byID[id]), nil
}

func (r *shareTokenRepoMem) Consume(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if t.Used {
		return ErrTokenUsed
	}
	t.Used = true
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		t.Used = false
		r.mu.Unlock()
	})
	return nil
}

// -- Access log --

type accessLogRepoMem struct {
	mu      sync.RWMutex
	entries []*AccessLog
}

func NewAccessLogRepoMem() AccessLogRepository {
	return &accessLogRepoMem{}
}

func cloneLog(l *AccessLog) *AccessLog {
	cp := *l
	// Keep an empty list empty: "data_returned" renders as [] not null.
	cp.DataReturned = append([]string{}, l.DataReturned...)
	return &cp
}

func (r *accessLogRepoMem) Append(ctx context.Context, l *AccessLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := cloneLog(l)
	r.entries = append(r.entries, entry)
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.entries {
			if e == entry {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *accessLogRepoMem) List(_ context.Context, limit, offset int) ([]*AccessLog, int, error) {
	r.mu.RLock()
	sorted := make([]*AccessLog, len(r.entries))
	for i, e := range r.entries {
		sorted[i] = cloneLog(e)
	}
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].AccessedAt.Equal(sorted[j].AccessedAt) {
			return sorted[i].AccessedAt.After(sorted[j].AccessedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	total := len(sorted)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return sorted[offset:end], total, nil
}
