package emergency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swasthya/healthcard/internal/platform/db"
)

// -- Share tokens --

type shareTokenRepoPG struct{ pool *pgxpool.Pool }

func NewShareTokenRepoPG(pool *pgxpool.Pool) ShareTokenRepository {
	return &shareTokenRepoPG{pool: pool}
}

func (r *shareTokenRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *shareTokenRepoPG) Create(ctx context.Context, t *ShareToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	recordIDs := t.RecordIDs
	if recordIDs == nil {
		recordIDs = []uuid.UUID{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO share_token (id, token, user_id, record_ids, created_by, expires_at, single_use)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING used, created_at`,
		t.ID, t.Token, t.UserID, recordIDs, t.CreatedBy, t.ExpiresAt, t.SingleUse,
	).Scan(&t.Used, &t.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrTokenTaken
	}
	if err != nil {
		return fmt.Errorf("insert share token: %w", err)
	}
	return nil
}

func (r *shareTokenRepoPG) GetByToken(ctx context.Context, token string) (*ShareToken, error) {
	var t ShareToken
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, token, user_id, record_ids, created_by, expires_at, single_use, used, created_at
		FROM share_token WHERE token = $1`, token,
	).Scan(&t.ID, &t.Token, &t.UserID, &t.RecordIDs, &t.CreatedBy, &t.ExpiresAt, &t.SingleUse, &t.Used, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share token: %w", err)
	}
	return &t, nil
}

func (r *shareTokenRepoPG) Consume(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE share_token SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("consume share token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenUsed
	}
	return nil
}

// -- Access log --

type accessLogRepoPG struct{ pool *pgxpool.Pool }

func NewAccessLogRepoPG(pool *pgxpool.Pool) AccessLogRepository {
	return &accessLogRepoPG{pool: pool}
}

func (r *accessLogRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *accessLogRepoPG) Append(ctx context.Context, l *AccessLog) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_access_log (id, user_id, accessed_at, method, ip, device_info, data_returned, share_token_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.UserID, l.AccessedAt, l.Method, l.IP, l.DeviceInfo, l.DataReturned, l.ShareTokenID)
	if err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

func (r *accessLogRepoPG) List(ctx context.Context, limit, offset int) ([]*AccessLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM emergency_access_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access logs: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, accessed_at, method, COALESCE(ip, ''), COALESCE(device_info, ''), data_returned, share_token_id
		FROM emergency_access_log
		ORDER BY accessed_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	var items []*AccessLog
	for rows.Next() {
		var l AccessLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.AccessedAt, &l.Method, &l.IP, &l.DeviceInfo, &l.DataReturned, &l.ShareTokenID); err != nil {
			return nil, 0, err
		}
		if l.DataReturned == nil {
			l.DataReturned = []string{}
		}
		items = append(items, &l)
	}
	return items, total, rows.Err()
}
