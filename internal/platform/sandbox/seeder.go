// Package sandbox loads the demo dataset: three accounts with health profiles
// reachable at EMG001, EMG002 and EMG003, a handful of medical records and an
// admin account. Seeding is idempotent.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
	"github.com/swasthya/healthcard/internal/platform/auth"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "demo123"

type demoUser struct {
	key      string
	fullName string
	email    string
	phone    string
	role     string
}

var demoUsers = []demoUser{
	{"rajesh", "Rajesh Kumar", "rajesh@demo.com", "+91 9876543210", auth.RolePatient},
	{"priya", "Priya Sharma", "priya@demo.com", "+91 9876543211", auth.RolePatient},
	{"amit", "Dr. Amit Verma", "amit@demo.com", "+91 9876543212", auth.RoleProvider},
	{"admin", "Demo Admin", "admin@demo.com", "", auth.RoleAdmin},
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func demoProfiles() map[string]*healthprofile.Profile {
	rajeshDOB := healthprofile.NewDate(1985, time.March, 15)
	priyaDOB := healthprofile.NewDate(1992, time.August, 22)
	amitDOB := healthprofile.NewDate(1978, time.November, 5)
	return map[string]*healthprofile.Profile{
		"rajesh": {
			DOB:               &rajeshDOB,
			Gender:            ptr("male"),
			BloodGroup:        ptr("O+"),
			WeightKg:          ptr(75.0),
			HeightCm:          ptr(175.0),
			Allergies:         []string{"Peanuts", "Dust"},
			ChronicConditions: []string{"Hypertension", "Diabetes Type 2"},
			Medications: []healthprofile.Medication{
				{Name: "Metformin", Dosage: "500mg", Frequency: "Twice daily"},
				{Name: "Lisinopril", Dosage: "10mg", Frequency: "Once daily"},
			},
			EmergencyContacts: []healthprofile.Contact{
				{Name: "Sunita Kumar", Relation: "Wife", Phone: "+91 9876543213"},
				{Name: "Rohit Kumar", Relation: "Son", Phone: "+91 9876543214"},
			},
			PrimaryPhysician:       &healthprofile.Physician{Name: "Dr. Kavya Reddy", Phone: "+91 9876543215"},
			PublicEmergencySummary: ptr("Diabetic patient with hypertension. Allergic to peanuts and dust."),
			PublicEmergencyID:      ptr("EMG001"),
		},
		"priya": {
			DOB:                    &priyaDOB,
			Gender:                 ptr("female"),
			BloodGroup:             ptr("A+"),
			WeightKg:               ptr(60.0),
			HeightCm:               ptr(165.0),
			Allergies:              []string{"Shellfish"},
			ChronicConditions:      []string{"Asthma"},
			Medications:            []healthprofile.Medication{{Name: "Ventolin Inhaler", Dosage: "100mcg", Frequency: "As needed"}},
			EmergencyContacts:      []healthprofile.Contact{{Name: "Rakesh Sharma", Relation: "Father", Phone: "+91 9876543216"}},
			PrimaryPhysician:       &healthprofile.Physician{Name: "Dr. Sarah Johnson", Phone: "+91 9876543217"},
			PublicEmergencySummary: ptr("Asthma patient. Allergic to shellfish."),
			PublicEmergencyID:      ptr("EMG002"),
		},
		"amit": {
			DOB:               &amitDOB,
			Gender:            ptr("male"),
			BloodGroup:        ptr("B+"),
			EmergencyContacts: []healthprofile.Contact{{Name: "Neha Verma", Relation: "Wife", Phone: "+91 9876543218"}},
			PublicEmergencyID: ptr("EMG003"),
		},
	}
}

type demoRecord struct {
	owner, uploader string
	rec             record.Record
}

func demoRecords() []demoRecord {
	return []demoRecord{
		{"rajesh", "rajesh", record.Record{
			Type: record.TypeReport, Title: "Annual Blood Test Results",
			Description: ptr("Complete blood count and metabolic panel. Glucose levels slightly elevated."),
			DateOfVisit: day(2024, time.January, 10), Tags: []string{"blood-test", "annual-checkup", "diabetes"},
			VerifiedByProvider: true, Visibility: record.VisibilityPrivate,
		}},
		{"rajesh", "amit", record.Record{
			Type: record.TypePrescription, Title: "Diabetes Medication Update",
			Description: ptr("Adjusted Metformin dosage based on recent HbA1c results."),
			DateOfVisit: day(2024, time.January, 15), Tags: []string{"prescription", "diabetes"},
			VerifiedByProvider: true, Visibility: record.VisibilityPrivate,
		}},
		{"priya", "priya", record.Record{
			Type: record.TypeDiagnosis, Title: "Asthma Control Assessment",
			Description: ptr("Breathing test shows good asthma control."),
			DateOfVisit: day(2024, time.January, 12), Tags: []string{"asthma", "follow-up"},
			Visibility: record.VisibilityShared,
		}},
	}
}

// SeedResult counts what a Seed call created.
type SeedResult struct {
	Users    int `json:"users"`
	Profiles int `json:"profiles"`
	Records  int `json:"records"`
}

// Accounts creates demo accounts without the self-registration rules.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	Seed(ctx context.Context, u *identity.User, password string) error
}

type Seeder struct {
	users    Accounts
	profiles healthprofile.ProfileRepository
	records  record.RecordRepository
	logger   zerolog.Logger
}

func NewSeeder(users Accounts, profiles healthprofile.ProfileRepository, records record.RecordRepository, logger zerolog.Logger) *Seeder {
	return &Seeder{users: users, profiles: profiles, records: records, logger: logger}
}

// Seed creates whatever part of the demo dataset is missing. Records are
// only added for accounts created by this call, so reruns never duplicate.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{}

	ids := make(map[string]uuid.UUID, len(demoUsers))
	fresh := make(map[string]bool, len(demoUsers))
	for _, du := range demoUsers {
		u, err := s.users.FindByEmail(ctx, du.email)
		switch {
		case err == nil:
			ids[du.key] = u.ID
			continue
		case !errors.Is(err, identity.ErrNotFound):
			return nil, fmt.Errorf("look up %s: %w", du.email, err)
		}

		u = &identity.User{FullName: du.fullName, Email: du.email, Role: du.role}
		if du.phone != "" {
			u.Phone = ptr(du.phone)
		}
		if err := s.users.Seed(ctx, u, DemoPassword); err != nil {
			return nil, fmt.Errorf("create %s: %w", du.email, err)
		}
		ids[du.key], fresh[du.key] = u.ID, true
		res.Users++
	}

	for key, p := range demoProfiles() {
		p.UserID = ids[key]
		_, err := s.profiles.GetByUserID(ctx, p.UserID)
		if err == nil {
			continue
		}
		if !errors.Is(err, healthprofile.ErrNotFound) {
			return nil, fmt.Errorf("look up profile for %s: %w", key, err)
		}
		if err := s.profiles.Create(ctx, p); err != nil {
			if errors.Is(err, healthprofile.ErrPublicIDTaken) {
				s.logger.Warn().Str("public_id", *p.PublicEmergencyID).Msg("demo public id already in use, skipping profile")
				continue
			}
			return nil, fmt.Errorf("create profile for %s: %w", key, err)
		}
		res.Profiles++
	}

	for _, dr := range demoRecords() {
		if !fresh[dr.owner] {
			continue
		}
		rec := dr.rec
		rec.UserID = ids[dr.owner]
		uploader := ids[dr.uploader]
		rec.UploadedBy = &uploader
		if err := s.records.Create(ctx, &rec); err != nil {
			return nil, fmt.Errorf("create record %q: %w", rec.Title, err)
		}
		res.Records++
	}

	s.logger.Info().
		Int("users", res.Users).
		Int("profiles", res.Profiles).
		Int("records", res.Records).
		Msg("demo data seeded")
	return res, nil
}
