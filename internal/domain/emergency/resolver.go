package emergency

import (
	"context"
	"errors"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
)

// Resolve returns the public emergency view for publicID and records the
// disclosure. Unknown ids and profiles without an owner are both ErrNotFound.
// If the access log cannot be written no view is returned.
func (s *Service) Resolve(ctx context.Context, publicID string, req Requester) (*PublicView, error) {
	view, err := s.resolve(ctx, publicID, req)
	s.observer.EmergencyView(outcome(err))
	return view, err
}

func (s *Service) resolve(ctx context.Context, publicID string, req Requester) (*PublicView, error) {
	if publicID == "" {
		return nil, ErrNotFound
	}
	p, err := s.profiles.GetByPublicID(ctx, publicID)
	if errors.Is(err, healthprofile.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, p.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	view := s.publicView(publicID, owner, p)
	subject := p.UserID
	if err := s.recorder.Record(ctx, &AccessLog{
		UserID:       &subject,
		Method:       MethodQR,
		IP:           req.IP,
		DeviceInfo:   req.UserAgent,
		DataReturned: view.Fields(),
	}); err != nil {
		s.logger.Error().Err(err).Str("public_id", publicID).Msg("emergency access log write failed")
		return nil, err
	}
	return view, nil
}

func (s *Service) publicView(publicID string, owner *identity.User, p *healthprofile.Profile) *PublicView {
	view := &PublicView{
		PublicID:          publicID,
		Name:              owner.FullName,
		BloodGroup:        p.BloodGroup,
		Allergies:         p.Allergies,
		ChronicConditions: p.ChronicConditions,
		EmergencyContacts: p.EmergencyContacts,
		Note:              p.PublicEmergencySummary,
	}
	if view.Allergies == nil {
		view.Allergies = []string{}
	}
	if view.ChronicConditions == nil {
		view.ChronicConditions = []string{}
	}
	if view.EmergencyContacts == nil {
		view.EmergencyContacts = []healthprofile.Contact{}
	}
	if p.DOB != nil {
		age := ageOn(p.DOB.Time, s.now())
		view.Age = &age
	}
	return view
}
