package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swasthya/healthcard/internal/platform/db"
)

type fileRepoPG struct{ pool *pgxpool.Pool }

func NewFileRepoPG(pool *pgxpool.Pool) Repository { return &fileRepoPG{pool: pool} }

func (r *fileRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *fileRepoPG) Create(ctx context.Context, f *File) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO file_object (id, user_id, storage_key, url, filename, mime, size, hash, upload_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING uploaded_at`,
		f.ID, f.UserID, f.StorageKey, f.URL, f.Filename, f.Mime, f.Size, f.Hash, f.UploadMethod,
	).Scan(&f.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *fileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	var f File
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, storage_key, url, filename, mime, size, hash, upload_method, uploaded_at
		FROM file_object WHERE id = $1`, id,
	).Scan(&f.ID, &f.UserID, &f.StorageKey, &f.URL, &f.Filename, &f.Mime, &f.Size, &f.Hash, &f.UploadMethod, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM file_object WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
