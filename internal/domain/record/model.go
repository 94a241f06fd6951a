package record

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePrescription = "prescription"
	TypeReport       = "report"
	TypeDiagnosis    = "diagnosis"
	TypeTreatment    = "treatment"
	TypeOther        = "other"
)

const (
	VisibilityPrivate         = "private"
	VisibilityShared          = "shared"
	VisibilityPublicEmergency = "public_emergency"
)

// FileRef points at an uploaded file attached to a record.
type FileRef struct {
	FileID   uuid.UUID `json:"file_id"`
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Mime     string    `json:"mime"`
	Size     int64     `json:"size"`
}

type Record struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	UploadedBy         *uuid.UUID `json:"uploaded_by,omitempty"`
	Type               string     `json:"type"`
	Title              string     `json:"title"`
	Description        *string    `json:"description,omitempty"`
	DateOfVisit        time.Time  `json:"date_of_visit"`
	Files              []FileRef  `json:"files"`
	Tags               []string   `json:"tags"`
	VerifiedByProvider bool       `json:"verified_by_provider"`
	Visibility         string     `json:"visibility"`
	Deleted            bool       `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (r *Record) normalize() {
	if r.Files == nil {
		r.Files = []FileRef{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
}

// readableByOthers reports whether a non-owner without a clinical role may
// read the record.
func (r *Record) readableByOthers() bool {
	return r.Visibility == VisibilityShared || r.Visibility == VisibilityPublicEmergency
}

type CreateRequest struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DateOfVisit *time.Time `json:"date_of_visit,omitempty"`
	Files       []FileRef  `json:"files"`
	Tags        []string   `json:"tags"`
	Visibility  string     `json:"visibility"`
}

// UpdateRequest carries the fields a record may change after creation.
type UpdateRequest struct {
	Title              *string    `json:"title,omitempty"`
	Description        *string    `json:"description,omitempty"`
	Visibility         *string    `json:"visibility,omitempty"`
	Tags               *[]string  `json:"tags,omitempty"`
	VerifiedByProvider *bool      `json:"verified_by_provider,omitempty"`
	DateOfVisit        *time.Time `json:"date_of_visit,omitempty"`
	Files              *[]FileRef `json:"files,omitempty"`
}

func (u *UpdateRequest) applyTo(r *Record) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Description != nil {
		r.Description = u.Description
	}
	if u.Visibility != nil {
		r.Visibility = *u.Visibility
	}
	if u.Tags != nil {
		r.Tags = *u.Tags
	}
	if u.VerifiedByProvider != nil {
		r.VerifiedByProvider = *u.VerifiedByProvider
	}
	if u.DateOfVisit != nil {
		r.DateOfVisit = u.DateOfVisit.UTC()
	}
	if u.Files != nil {
		r.Files = *u.Files
	}
	r.normalize()
}
