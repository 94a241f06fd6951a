package healthprofile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxPublicIDAttempts = 5

var bloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type Service struct {
	profiles ProfileRepository
	logger   zerolog.Logger
	newID    func() (string, error)
}

func NewService(profiles ProfileRepository, logger zerolog.Logger) *Service {
	return &Service{profiles: profiles, logger: logger, newID: NewPublicID}
}

func validateUpsert(req *UpsertRequest) error {
	if req.DOB != nil && req.DOB.After(time.Now()) {
		return &ValidationError{Msg: "dob cannot be in the future"}
	}
	if req.BloodGroup != nil && *req.BloodGroup != "" && !bloodGroups[*req.BloodGroup] {
		return &ValidationError{Msg: "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}
	if req.WeightKg != nil && (*req.WeightKg <= 0 || *req.WeightKg > 1000) {
		return &ValidationError{Msg: "weight_kg is out of range"}
	}
	if req.HeightCm != nil && (*req.HeightCm <= 0 || *req.HeightCm > 300) {
		return &ValidationError{Msg: "height_cm is out of range"}
	}
	if req.PublicEmergencyID != nil && !validPublicID(*req.PublicEmergencyID) {
		return &ValidationError{Msg: "public_emergency_id may only contain letters, digits, '-' and '_'"}
	}
	return nil
}

// Upsert creates the caller's profile or updates the whitelisted fields of
// the existing one. created reports which of the two happened.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, req UpsertRequest) (p *Profile, created bool, err error) {
	if err := validateUpsert(&req); err != nil {
		return nil, false, err
	}

	existing, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		p, err := s.create(ctx, userID, req)
		return p, err == nil, err
	case err != nil:
		return nil, false, err
	}

	req.applyTo(existing)
	if err := s.profiles.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	if req.ResetPublicID {
		existing, err = s.rotate(ctx, userID)
		if err != nil {
			return nil, false, err
		}
	}
	return existing, false, nil
}

func (s *Service) create(ctx context.Context, userID uuid.UUID, req UpsertRequest) (*Profile, error) {
	p := &Profile{UserID: userID}
	req.applyTo(p)

	if req.PublicEmergencyID != nil {
		ok, err := s.profiles.PublicIDAvailable(ctx, *req.PublicEmergencyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPublicIDTaken
		}
		id := *req.PublicEmergencyID
		p.PublicEmergencyID = &id
		if err := s.profiles.Create(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	for attempt := 1; attempt <= maxPublicIDAttempts; attempt++ {
		id, err := s.freshPublicID(ctx)
		if err != nil {
			return nil, err
		}
		p.PublicEmergencyID = &id
		err = s.profiles.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrPublicIDTaken) {
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("public emergency id collision on create")
	}
	return nil, fmt.Errorf("generate public emergency id: %w", ErrPublicIDTaken)
}

func (s *Service) rotate(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	for attempt := 1; attempt <= maxPublicIDAttempts; attempt++ {
		id, err := s.freshPublicID(ctx)
		if err != nil {
			return nil, err
		}
		p, err := s.profiles.RotatePublicID(ctx, userID, id)
		if err == nil {
			s.logger.Info().Str("user_id", userID.String()).Msg("public emergency id rotated")
			return p, nil
		}
		if !errors.Is(err, ErrPublicIDTaken) {
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("public emergency id collision on rotate")
	}
	return nil, fmt.Errorf("rotate public emergency id: %w", ErrPublicIDTaken)
}

// freshPublicID draws ids until one is neither live nor retired.
func (s *Service) freshPublicID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxPublicIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		ok, err := s.profiles.PublicIDAvailable(ctx, id)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("draw public emergency id: %w", ErrPublicIDTaken)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *Service) GetByPublicID(ctx context.Context, publicID string) (*Profile, error) {
	if publicID == "" {
		return nil, ErrNotFound
	}
	return s.profiles.GetByPublicID(ctx, publicID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.profiles.Count(ctx)
}
