package healthprofile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swasthya/healthcard/internal/platform/db"
)

const (
	userIDConstraint   = "health_profile_user_id_key"
	publicIDConstraint = "health_profile_public_emergency_id_key"
)

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const profileCols = `id, user_id, dob, gender, blood_group, weight_kg, height_cm,
	allergies, chronic_conditions, medications, emergency_contacts, primary_physician,
	public_emergency_summary, public_emergency_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var dob *time.Time
	err := row.Scan(&p.ID, &p.UserID, &dob, &p.Gender, &p.BloodGroup, &p.WeightKg, &p.HeightCm,
		&p.Allergies, &p.ChronicConditions, &p.Medications, &p.EmergencyContacts, &p.PrimaryPhysician,
		&p.PublicEmergencySummary, &p.PublicEmergencyID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if dob != nil {
		d := NewDate(dob.Year(), dob.Month(), dob.Day())
		p.DOB = &d
	}
	p.normalize()
	return &p, nil
}

func dobParam(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err) {
		switch db.ConstraintName(err) {
		case userIDConstraint:
			return ErrExists
		case publicIDConstraint:
			return ErrPublicIDTaken
		}
	}
	return err
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_profile (id, user_id, dob, gender, blood_group, weight_kg, height_cm,
			allergies, chronic_conditions, medications, emergency_contacts, primary_physician,
			public_emergency_summary, public_emergency_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, dobParam(p.DOB), p.Gender, p.BloodGroup, p.WeightKg, p.HeightCm,
		p.Allergies, p.ChronicConditions, p.Medications, p.EmergencyContacts, p.PrimaryPhysician,
		p.PublicEmergencySummary, p.PublicEmergencyID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert health profile: %w", mapWriteErr(err))
	}
	return nil
}

func (r *profileRepoPG) Update(ctx context.Context, p *Profile) error {
	p.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE health_profile SET dob=$2, gender=$3, blood_group=$4, weight_kg=$5, height_cm=$6,
			allergies=$7, chronic_conditions=$8, medications=$9, emergency_contacts=$10,
			primary_physician=$11, public_emergency_summary=$12, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, dobParam(p.DOB), p.Gender, p.BloodGroup, p.WeightKg, p.HeightCm,
		p.Allergies, p.ChronicConditions, p.Medications, p.EmergencyContacts,
		p.PrimaryPhysician, p.PublicEmergencySummary,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update health profile: %w", err)
	}
	return nil
}

func (r *profileRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM health_profile WHERE user_id = $1`, userID))
}

func (r *profileRepoPG) GetByPublicID(ctx context.Context, publicID string) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM health_profile WHERE public_emergency_id = $1`, publicID))
}

// RotatePublicID retires the old id and installs the new one in a single
// statement, so a failure leaves both untouched.
func (r *profileRepoPG) RotatePublicID(ctx context.Context, userID uuid.UUID, newID string) (*Profile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx, `
		WITH old AS (
			SELECT public_emergency_id FROM health_profile WHERE user_id = $1 FOR UPDATE
		), retired AS (
			INSERT INTO retired_public_id (public_emergency_id)
			SELECT public_emergency_id FROM old WHERE public_emergency_id IS NOT NULL
			ON CONFLICT DO NOTHING
		)
		UPDATE health_profile SET public_emergency_id = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+profileCols, userID, newID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("rotate public id: %w", mapWriteErr(err))
	}
	return p, nil
}

func (r *profileRepoPG) PublicIDAvailable(ctx context.Context, id string) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM health_profile WHERE public_emergency_id = $1)
			OR EXISTS (SELECT 1 FROM retired_public_id WHERE public_emergency_id = $1)`, id).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check public id: %w", err)
	}
	return !taken, nil
}

func (r *profileRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM health_profile`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count health profiles: %w", err)
	}
	return n, nil
}
