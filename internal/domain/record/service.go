package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/domain/identity"
)

const (
	maxTitleLen = 255
	maxTags     = 30
	maxTagLen   = 50
	maxFiles    = 20
)

var (
	validTypes = map[string]bool{
		TypePrescription: true, TypeReport: true, TypeDiagnosis: true, TypeTreatment: true, TypeOther: true,
	}
	validVisibility = map[string]bool{
		VisibilityPrivate: true, VisibilityShared: true, VisibilityPublicEmergency: true,
	}
)

// UserLookup confirms a patient exists before a record is filed for them.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	records RecordRepository
	users   UserLookup
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(records RecordRepository, users UserLookup, logger zerolog.Logger) *Service {
	return &Service{records: records, users: users, logger: logger, now: time.Now}
}

func validateTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, &ValidationError{Msg: fmt.Sprintf("at most %d tags are allowed", maxTags)}
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(t) > maxTagLen {
			return nil, &ValidationError{Msg: fmt.Sprintf("tags must be at most %d characters", maxTagLen)}
		}
		out = append(out, t)
	}
	return out, nil
}

func validateFiles(files []FileRef) error {
	if len(files) > maxFiles {
		return &ValidationError{Msg: fmt.Sprintf("at most %d files may be attached", maxFiles)}
	}
	for _, f := range files {
		if f.FileID == uuid.Nil || f.URL == "" {
			return &ValidationError{Msg: "each file needs a file_id and url"}
		}
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLen {
		return "", &ValidationError{Msg: fmt.Sprintf("title must be at most %d characters", maxTitleLen)}
	}
	return title, nil
}

// Create files a record. Providers and admins may file for another user; a
// record created by a provider starts out verified.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateRequest) (*Record, error) {
	target := actor.ID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		target = *req.UserID
	}
	if !actor.Owns(target) {
		if !actor.Clinical() {
			return nil, ErrForbidden
		}
		if _, err := s.users.GetUser(ctx, target); err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return nil, &ValidationError{Msg: "user_id does not exist"}
			}
			return nil, err
		}
	}

	if req.Type == "" {
		req.Type = TypePrescription
	}
	if !validTypes[req.Type] {
		return nil, &ValidationError{Msg: "type must be one of prescription, report, diagnosis, treatment, other"}
	}
	if req.Visibility == "" {
		req.Visibility = VisibilityPrivate
	}
	if !validVisibility[req.Visibility] {
		return nil, &ValidationError{Msg: "visibility must be one of private, shared, public_emergency"}
	}
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	tags, err := validateTags(req.Tags)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(req.Files); err != nil {
		return nil, err
	}

	visit := s.now().UTC()
	if req.DateOfVisit != nil {
		visit = req.DateOfVisit.UTC()
	}
	uploader := actor.ID
	rec := &Record{
		UserID:             target,
		UploadedBy:         &uploader,
		Type:               req.Type,
		Title:              title,
		Description:        req.Description,
		DateOfVisit:        visit,
		Files:              req.Files,
		Tags:               tags,
		VerifiedByProvider: actor.IsProvider(),
		Visibility:         req.Visibility,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns a page of the target user's records. Only the owner, providers
// and admins may list.
func (s *Service) List(ctx context.Context, actor identity.Actor, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	if userID == uuid.Nil {
		userID = actor.ID
	}
	if !actor.Owns(userID) && !actor.Clinical() {
		return nil, 0, ErrForbidden
	}
	return s.records.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Record, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(rec.UserID) && !actor.Clinical() && !rec.readableByOthers() {
		return nil, ErrForbidden
	}
	return rec, nil
}

// Update applies the whitelisted fields. Verification may only be changed by
// providers and admins.
func (s *Service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateRequest) (*Record, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(rec.UserID) && !actor.Clinical() {
		return nil, ErrForbidden
	}
	if req.VerifiedByProvider != nil && !actor.Clinical() {
		return nil, ErrForbidden
	}

	if req.Visibility != nil && !validVisibility[*req.Visibility] {
		return nil, &ValidationError{Msg: "visibility must be one of private, shared, public_emergency"}
	}
	if req.Title != nil {
		title, err := validateTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		req.Title = &title
	}
	if req.Tags != nil {
		tags, err := validateTags(*req.Tags)
		if err != nil {
			return nil, err
		}
		req.Tags = &tags
	}
	if req.Files != nil {
		if err := validateFiles(*req.Files); err != nil {
			return nil, err
		}
	}

	req.applyTo(rec)
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete soft deletes a record. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(rec.UserID) && !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.records.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("record_id", id.String()).Str("by", actor.ID.String()).Msg("record deleted")
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.records.Count(ctx)
}
