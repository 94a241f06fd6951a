package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swasthya/healthcard/internal/platform/db"
)

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordCols = `id, user_id, uploaded_by, type, title, description, date_of_visit,
	files, tags, verified_by_provider, visibility, deleted, created_at, updated_at`

const newestFirst = ` ORDER BY date_of_visit DESC, created_at DESC`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.UserID, &rec.UploadedBy, &rec.Type, &rec.Title, &rec.Description,
		&rec.DateOfVisit, &rec.Files, &rec.Tags, &rec.VerifiedByProvider, &rec.Visibility,
		&rec.Deleted, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.normalize()
	return &rec, nil
}

func collect(rows pgx.Rows) ([]*Record, error) {
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_record (id, user_id, uploaded_by, type, title, description, date_of_visit,
			files, tags, verified_by_provider, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		rec.ID, rec.UserID, rec.UploadedBy, rec.Type, rec.Title, rec.Description, rec.DateOfVisit,
		rec.Files, rec.Tags, rec.VerifiedByProvider, rec.Visibility,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE id = $1 AND NOT deleted`, id))
}

func (r *recordRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_record WHERE user_id = $1 AND NOT deleted`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE user_id = $1 AND NOT deleted`+newestFirst+` LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *recordRepoPG) AllByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE user_id = $1 AND NOT deleted`+newestFirst, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collect(rows)
}

func (r *recordRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE id = ANY($1) AND NOT deleted`, ids)
	if err != nil {
		return nil, fmt.Errorf("list records by id: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return orderByIDs(items, ids), nil
}

func (r *recordRepoPG) Update(ctx context.Context, rec *Record) error {
	rec.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_record SET title = $2, description = $3, visibility = $4, tags = $5,
			verified_by_provider = $6, date_of_visit = $7, files = $8, updated_at = NOW()
		WHERE id = $1 AND NOT deleted
		RETURNING updated_at`,
		rec.ID, rec.Title, rec.Description, rec.Visibility, rec.Tags,
		rec.VerifiedByProvider, rec.DateOfVisit, rec.Files,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medical_record SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_record WHERE NOT deleted`).Scan(&n)
	return n, err
}

// orderByIDs arranges items in the order ids lists them, dropping duplicates.
func orderByIDs(items []*Record, ids []uuid.UUID) []*Record {
	byID := make(map[uuid.UUID]*Record, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]*Record, 0, len(items))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out
}
