package emergency

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
)

// Redeem discloses what token grants. Single-use consumption, payload
// assembly and the access log entry commit together or not at all.
func (s *Service) Redeem(ctx context.Context, token string, req Requester) (*SharePayload, error) {
	payload, err := s.redeem(ctx, token, req)
	s.observer.ShareRedeemed(outcome(err))
	return payload, err
}

func (s *Service) redeem(ctx context.Context, token string, req Requester) (*SharePayload, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	st, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	// Expiry wins over consumption.
	if st.Expired(s.now()) {
		s.logger.Info().Str("share_token_id", st.ID.String()).Msg("expired share token presented")
		return nil, ErrTokenExpired
	}
	if st.SingleUse && st.Used {
		s.logger.Info().Str("share_token_id", st.ID.String()).Msg("used share token presented")
		return nil, ErrTokenUsed
	}
	if !st.hasScope() {
		return nil, ErrNothingToShare
	}

	var payload *SharePayload
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if st.SingleUse {
			if err := s.tokens.Consume(ctx, st.ID); err != nil {
				return err
			}
		}
		p, subject, err := s.buildPayload(ctx, st)
		if err != nil {
			return err
		}
		tokenID := st.ID
		if err := s.recorder.Record(ctx, &AccessLog{
			UserID:       subject,
			Method:       MethodShareToken,
			IP:           req.IP,
			DeviceInfo:   req.UserAgent,
			DataReturned: p.Keys(),
			ShareTokenID: &tokenID,
		}); err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrGone) && !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Str("share_token_id", st.ID.String()).Msg("share token redemption failed")
		}
		return nil, err
	}
	return payload, nil
}

// buildPayload assembles the disclosure and returns the subject the access
// log is attributed to.
func (s *Service) buildPayload(ctx context.Context, st *ShareToken) (*SharePayload, *uuid.UUID, error) {
	if len(st.RecordIDs) > 0 {
		recs, err := s.records.ListByIDs(ctx, st.RecordIDs)
		if err != nil {
			return nil, nil, err
		}
		p := &SharePayload{Records: recs}
		var subject *uuid.UUID
		if st.UserID != nil {
			subject = st.UserID
		} else if len(recs) > 0 {
			owner := recs[0].UserID
			subject = &owner
		}
		return normalizePayload(p), subject, nil
	}

	user, err := s.users.GetByID(ctx, *st.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if errors.Is(err, healthprofile.ErrNotFound) {
		profile = nil
	} else if err != nil {
		return nil, nil, err
	}
	recs, err := s.records.AllByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	subject := user.ID
	return normalizePayload(&SharePayload{User: user, Profile: profile, Records: recs}), &subject, nil
}

func normalizePayload(p *SharePayload) *SharePayload {
	if p.Records == nil {
		p.Records = []*record.Record{}
	}
	return p
}
