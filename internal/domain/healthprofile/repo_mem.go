package healthprofile

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type profileRepoMem struct {
	mu       sync.RWMutex
	byUser   map[uuid.UUID]*Profile
	byPublic map[string]uuid.UUID
	retired  map[string]struct{}
}

// NewProfileRepoMem returns a process-local store for demo mode and tests.
func NewProfileRepoMem() ProfileRepository {
	return &profileRepoMem{
		byUser:   make(map[uuid.UUID]*Profile),
		byPublic: make(map[string]uuid.UUID),
		retired:  make(map[string]struct{}),
	}
}

// clone deep copies p so callers never share slices with the store.
func clone(p *Profile) *Profile {
	b, _ := json.Marshal(p)
	var cp Profile
	_ = json.Unmarshal(b, &cp)
	cp.normalize()
	return &cp
}

func (r *profileRepoMem) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[p.UserID]; ok {
		return ErrExists
	}
	if p.PublicEmergencyID != nil {
		if _, ok := r.byPublic[*p.PublicEmergencyID]; ok {
			return ErrPublicIDTaken
		}
		if _, ok := r.retired[*p.PublicEmergencyID]; ok {
			return ErrPublicIDTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.normalize()

	r.byUser[p.UserID] = clone(p)
	if p.PublicEmergencyID != nil {
		r.byPublic[*p.PublicEmergencyID] = p.UserID
	}
	return nil
}

func (r *profileRepoMem) Update(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byUser[p.UserID]
	if !ok || cur.ID != p.ID {
		return ErrNotFound
	}
	p.PublicEmergencyID = cur.PublicEmergencyID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.byUser[p.UserID] = clone(p)
	return nil
}

func (r *profileRepoMem) GetByUserID(_ context.Context, userID uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (r *profileRepoMem) GetByPublicID(ctx context.Context, publicID string) (*Profile, error) {
	r.mu.RLock()
	userID, ok := r.byPublic[publicID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByUserID(ctx, userID)
}

func (r *profileRepoMem) RotatePublicID(_ context.Context, userID uuid.UUID, newID string) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, taken := r.byPublic[newID]; taken {
		return nil, ErrPublicIDTaken
	}
	if _, retired := r.retired[newID]; retired {
		return nil, ErrPublicIDTaken
	}
	if p.PublicEmergencyID != nil {
		delete(r.byPublic, *p.PublicEmergencyID)
		r.retired[*p.PublicEmergencyID] = struct{}{}
	}
	id := newID
	p.PublicEmergencyID = &id
	p.UpdatedAt = time.Now().UTC()
	r.byPublic[newID] = userID
	return clone(p), nil
}

func (r *profileRepoMem) PublicIDAvailable(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, live := r.byPublic[id]
	_, retired := r.retired[id]
	return !live && !retired, nil
}

func (r *profileRepoMem) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), nil
}
