package healthprofile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Date is a calendar date. It accepts "2006-01-02" or RFC 3339 input and
// always renders as "2006-01-02".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date must look like %s", dateLayout)
	}
	y, m, day := t.Date()
	*d = NewDate(y, m, day)
	return nil
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

type Contact struct {
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type Physician struct {
	Name       string     `json:"name,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
}

// Profile is the 1:1 health profile of a user.
type Profile struct {
	ID                     uuid.UUID    `json:"id"`
	UserID                 uuid.UUID    `json:"user_id"`
	DOB                    *Date        `json:"dob,omitempty"`
	Gender                 *string      `json:"gender,omitempty"`
	BloodGroup             *string      `json:"blood_group,omitempty"`
	WeightKg               *float64     `json:"weight_kg,omitempty"`
	HeightCm               *float64     `json:"height_cm,omitempty"`
	Allergies              []string     `json:"allergies"`
	ChronicConditions      []string     `json:"chronic_conditions"`
	Medications            []Medication `json:"medications"`
	EmergencyContacts      []Contact    `json:"emergency_contacts"`
	PrimaryPhysician       *Physician   `json:"primary_physician,omitempty"`
	PublicEmergencySummary *string      `json:"public_emergency_summary,omitempty"`
	PublicEmergencyID      *string      `json:"public_emergency_id,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

func (p *Profile) normalize() {
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.ChronicConditions == nil {
		p.ChronicConditions = []string{}
	}
	if p.Medications == nil {
		p.Medications = []Medication{}
	}
	if p.EmergencyContacts == nil {
		p.EmergencyContacts = []Contact{}
	}
}

// UpsertRequest lists the fields a user may write. Absent fields are left
// unchanged on update. PublicEmergencyID is honoured on creation only.
type UpsertRequest struct {
	DOB                    *Date         `json:"dob,omitempty"`
	Gender                 *string       `json:"gender,omitempty"`
	BloodGroup             *string       `json:"blood_group,omitempty"`
	WeightKg               *float64      `json:"weight_kg,omitempty"`
	HeightCm               *float64      `json:"height_cm,omitempty"`
	Allergies              *[]string     `json:"allergies,omitempty"`
	ChronicConditions      *[]string     `json:"chronic_conditions,omitempty"`
	Medications            *[]Medication `json:"medications,omitempty"`
	EmergencyContacts      *[]Contact    `json:"emergency_contacts,omitempty"`
	PrimaryPhysician       *Physician    `json:"primary_physician,omitempty"`
	PublicEmergencySummary *string       `json:"public_emergency_summary,omitempty"`
	PublicEmergencyID      *string       `json:"public_emergency_id,omitempty"`
	ResetPublicID          bool          `json:"reset_public_id,omitempty"`
}

func (r *UpsertRequest) applyTo(p *Profile) {
	if r.DOB != nil {
		p.DOB = r.DOB
	}
	if r.Gender != nil {
		p.Gender = r.Gender
	}
	if r.BloodGroup != nil {
		p.BloodGroup = r.BloodGroup
	}
	if r.WeightKg != nil {
		p.WeightKg = r.WeightKg
	}
	if r.HeightCm != nil {
		p.HeightCm = r.HeightCm
	}
	if r.Allergies != nil {
		p.Allergies = *r.Allergies
	}
	if r.ChronicConditions != nil {
		p.ChronicConditions = *r.ChronicConditions
	}
	if r.Medications != nil {
		p.Medications = *r.Medications
	}
	if r.EmergencyContacts != nil {
		p.EmergencyContacts = *r.EmergencyContacts
	}
	if r.PrimaryPhysician != nil {
		p.PrimaryPhysician = r.PrimaryPhysician
	}
	if r.PublicEmergencySummary != nil {
		p.PublicEmergencySummary = r.PublicEmergencySummary
	}
	p.normalize()
}
