package emergency

import (
	"time"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
)

// Access methods recorded on every emergency disclosure.
const (
	MethodQR         = "qr"
	MethodNFC        = "nfc"
	MethodShareToken = "share_token"
	MethodLink       = "link"
	MethodAPI        = "api"
)

func validMethod(m string) bool {
	switch m {
	case MethodQR, MethodNFC, MethodShareToken, MethodLink, MethodAPI:
		return true
	}
	return false
}

// ShareToken grants one-time or time-limited access to either an explicit
// list of records or a user's whole profile. Exactly one scope is set.
type ShareToken struct {
	ID        uuid.UUID   `json:"id"`
	Token     string      `json:"-"`
	UserID    *uuid.UUID  `json:"user_id,omitempty"`
	RecordIDs []uuid.UUID `json:"record_ids,omitempty"`
	CreatedBy uuid.UUID   `json:"created_by"`
	ExpiresAt *time.Time  `json:"expires_at"`
	SingleUse bool        `json:"single_use"`
	Used      bool        `json:"used"`
	CreatedAt time.Time   `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now. Tokens without
// an expiry never expire.
func (t *ShareToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

func (t *ShareToken) hasScope() bool {
	return len(t.RecordIDs) > 0 || t.UserID != nil
}

// AccessLog is one append-only audit entry for an emergency disclosure.
type AccessLog struct {
	ID           string     `json:"id"`
	UserID       *uuid.UUID `json:"user_id"`
	AccessedAt   time.Time  `json:"accessed_at"`
	Method       string     `json:"method"`
	IP           string     `json:"ip"`
	DeviceInfo   string     `json:"device_info"`
	DataReturned []string   `json:"data_returned"`
	ShareTokenID *uuid.UUID `json:"share_token_id,omitempty"`
}

// Requester describes the anonymous caller of a public endpoint.
type Requester struct {
	IP        string
	UserAgent string
}

// PublicView is the redacted profile shown to first responders. Weight,
// height, physician and medications are never part of it.
type PublicView struct {
	PublicID          string                  `json:"public_id"`
	Name              string                  `json:"name"`
	Age               *int                    `json:"age,omitempty"`
	BloodGroup        *string                 `json:"blood_group"`
	Allergies         []string                `json:"allergies"`
	ChronicConditions []string                `json:"chronic_conditions"`
	EmergencyContacts []healthprofile.Contact `json:"emergency_contacts"`
	Note              *string                 `json:"note"`
}

// Fields lists the JSON keys the view serialises to, in output order.
func (v *PublicView) Fields() []string {
	fields := []string{"public_id", "name"}
	if v.Age != nil {
		fields = append(fields, "age")
	}
	return append(fields, "blood_group", "allergies", "chronic_conditions", "emergency_contacts", "note")
}

// SharePayload is what a redeemed share token discloses. Record scoped
// tokens carry only records.
type SharePayload struct {
	User    *identity.User         `json:"user,omitempty"`
	Profile *healthprofile.Profile `json:"profile,omitempty"`
	Records []*record.Record       `json:"records"`
}

// Keys lists the top-level JSON keys of the payload.
func (p *SharePayload) Keys() []string {
	var keys []string
	if p.User != nil {
		keys = append(keys, "user")
	}
	if p.Profile != nil {
		keys = append(keys, "profile")
	}
	return append(keys, "records")
}

type IssueRequest struct {
	RecordIDs []uuid.UUID `json:"record_ids"`
	UserID    *uuid.UUID  `json:"user_id,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	// SingleUse defaults to true when absent.
	SingleUse *bool `json:"single_use,omitempty"`
}

type IssueResponse struct {
	Token     string     `json:"token"`
	ID        uuid.UUID  `json:"id"`
	ExpiresAt *time.Time `json:"expires_at"`
	SingleUse bool       `json:"single_use"`
}
