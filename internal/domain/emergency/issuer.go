package emergency

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/domain/identity"
)

const (
	shareTokenBytes    = 32
	maxShareTokenTries = 5
)

func newShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a share token for either an explicit set of records or a
// whole profile. The caller must own what is shared unless they hold a
// clinical role.
func (s *Service) Issue(ctx context.Context, actor identity.Actor, req IssueRequest) (*ShareToken, error) {
	hasRecords := len(req.RecordIDs) > 0
	hasUser := req.UserID != nil && *req.UserID != uuid.Nil
	if hasRecords == hasUser {
		return nil, ErrInvalidScope
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidExpiry
	}

	t := &ShareToken{
		CreatedBy: actor.ID,
		ExpiresAt: req.ExpiresAt,
		SingleUse: req.SingleUse == nil || *req.SingleUse,
	}
	if hasRecords {
		ids, err := s.authorizeRecords(ctx, actor, req.RecordIDs)
		if err != nil {
			return nil, err
		}
		t.RecordIDs = ids
	} else {
		if err := s.authorizeUser(ctx, actor, *req.UserID); err != nil {
			return nil, err
		}
		uid := *req.UserID
		t.UserID = &uid
	}
	if t.ExpiresAt != nil {
		at := t.ExpiresAt.UTC()
		t.ExpiresAt = &at
	}

	for attempt := 1; attempt <= maxShareTokenTries; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, err
		}
		t.Token = tok
		err = s.tokens.Create(ctx, t)
		if err == nil {
			s.observer.ShareIssued()
			s.logger.Info().
				Str("share_token_id", t.ID.String()).
				Str("created_by", actor.ID.String()).
				Bool("single_use", t.SingleUse).
				Msg("share token issued")
			return t, nil
		}
		if !errors.Is(err, ErrTokenTaken) {
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("share token collision")
	}
	return nil, fmt.Errorf("issue share token: %w", ErrTokenTaken)
}

// authorizeRecords dedupes ids and checks every record exists and may be
// shared by actor.
func (s *Service) authorizeRecords(ctx context.Context, actor identity.Actor, ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	recs, err := s.records.ListByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(recs) != len(unique) {
		return nil, ErrUnknownRecords
	}
	if actor.Clinical() {
		return unique, nil
	}
	for _, r := range recs {
		if !actor.Owns(r.UserID) {
			return nil, ErrForbidden
		}
	}
	return unique, nil
}

func (s *Service) authorizeUser(ctx context.Context, actor identity.Actor, userID uuid.UUID) error {
	if !actor.Owns(userID) && !actor.Clinical() {
		return ErrForbidden
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrUnknownUser
		}
		return err
	}
	return nil
}
