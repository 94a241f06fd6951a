package healthprofile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestService() *Service {
	return NewService(NewProfileRepoMem(), zerolog.Nop())
}

func strPtr(s string) *string { return &s }

func TestService_Upsert_CreatesWithPublicID(t *testing.T) {
	svc := newTestService()
	dob := NewDate(1985, 3, 15)
	allergies := []string{"Peanuts", "Dust"}

	p, created, err := svc.Upsert(context.Background(), uuid.New(), UpsertRequest{
		DOB:        &dob,
		BloodGroup: strPtr("O+"),
		Allergies:  &allergies,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected profile to be created")
	}
	if p.PublicEmergencyID == nil || len(*p.PublicEmergencyID) != publicIDLength {
		t.Fatalf("expected an %d-char public id, got %v", publicIDLength, p.PublicEmergencyID)
	}
	if len(p.Allergies) != 2 || p.ChronicConditions == nil {
		t.Errorf("unexpected lists %v %v", p.Allergies, p.ChronicConditions)
	}

	got, err := svc.GetByPublicID(context.Background(), *p.PublicEmergencyID)
	if err != nil || got.ID != p.ID {
		t.Errorf("expected lookup by public id to find the profile, got %v", err)
	}
}

func TestService_Upsert_HonoursRequestedPublicID(t *testing.T) {
	svc := newTestService()
	p, _, err := svc.Upsert(context.Background(), uuid.New(), UpsertRequest{PublicEmergencyID: strPtr("EMG001")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *p.PublicEmergencyID != "EMG001" {
		t.Errorf("expected EMG001, got %s", *p.PublicEmergencyID)
	}

	_, _, err = svc.Upsert(context.Background(), uuid.New(), UpsertRequest{PublicEmergencyID: strPtr("EMG001")})
	if !errors.Is(err, ErrPublicIDTaken) {
		t.Errorf("expected ErrPublicIDTaken for duplicate id, got %v", err)
	}
}

func TestService_Upsert_UpdateKeepsPublicID(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()
	first, _, _ := svc.Upsert(context.Background(), userID, UpsertRequest{BloodGroup: strPtr("A+")})

	conditions := []string{"Hypertension"}
	p, created, err := svc.Upsert(context.Background(), userID, UpsertRequest{
		ChronicConditions: &conditions,
		PublicEmergencyID: strPtr("ignored"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected an update")
	}
	if *p.PublicEmergencyID != *first.PublicEmergencyID {
		t.Error("public id must not change without reset_public_id")
	}
	if p.BloodGroup == nil || *p.BloodGroup != "A+" {
		t.Error("absent fields must keep their values")
	}
	if len(p.ChronicConditions) != 1 {
		t.Errorf("expected updated conditions, got %v", p.ChronicConditions)
	}
}

func TestService_Upsert_ResetRetiresOldID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	first, _, _ := svc.Upsert(ctx, userID, UpsertRequest{})
	oldID := *first.PublicEmergencyID

	p, _, err := svc.Upsert(ctx, userID, UpsertRequest{ResetPublicID: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *p.PublicEmergencyID == oldID {
		t.Fatal("expected a new public id")
	}
	if _, err := svc.GetByPublicID(ctx, oldID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old id must no longer resolve, got %v", err)
	}

	_, _, err = svc.Upsert(ctx, uuid.New(), UpsertRequest{PublicEmergencyID: &oldID})
	if !errors.Is(err, ErrPublicIDTaken) {
		t.Errorf("retired id must never be issued again, got %v", err)
	}
}

func TestService_Upsert_RetriesOnCollision(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, _, err := svc.Upsert(ctx, uuid.New(), UpsertRequest{PublicEmergencyID: strPtr("AAAAAAAA")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	draws := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	svc.newID = func() (string, error) {
		id := draws[0]
		draws = draws[1:]
		return id, nil
	}

	p, _, err := svc.Upsert(ctx, uuid.New(), UpsertRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *p.PublicEmergencyID != "BBBBBBBB" {
		t.Errorf("expected BBBBBBBB after collisions, got %s", *p.PublicEmergencyID)
	}
}

func TestService_Upsert_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, _, _ = svc.Upsert(ctx, uuid.New(), UpsertRequest{PublicEmergencyID: strPtr("AAAAAAAA")})
	svc.newID = func() (string, error) { return "AAAAAAAA", nil }

	_, _, err := svc.Upsert(ctx, uuid.New(), UpsertRequest{})
	if !errors.Is(err, ErrPublicIDTaken) {
		t.Errorf("expected ErrPublicIDTaken, got %v", err)
	}
}

func TestService_PublicIDsAreUnique(t *testing.T) {
	svc := newTestService()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		p, _, err := svc.Upsert(context.Background(), uuid.New(), UpsertRequest{})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
		if seen[*p.PublicEmergencyID] {
			t.Fatalf("duplicate public id %s", *p.PublicEmergencyID)
		}
		seen[*p.PublicEmergencyID] = true
	}
}

func TestService_Upsert_Validation(t *testing.T) {
	future := NewDate(2999, 1, 1)
	neg := -3.0
	tests := []struct {
		name string
		req  UpsertRequest
	}{
		{"future dob", UpsertRequest{DOB: &future}},
		{"unknown blood group", UpsertRequest{BloodGroup: strPtr("Z+")}},
		{"negative weight", UpsertRequest{WeightKg: &neg}},
		{"bad public id", UpsertRequest{PublicEmergencyID: strPtr("no spaces")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestService().Upsert(context.Background(), uuid.New(), tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestService_GetByPublicID_Empty(t *testing.T) {
	if _, err := newTestService().GetByPublicID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
