package coupons

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("coupon not found")
	ErrDuplicate = errors.New("coupon already exists")
	ErrExhausted = errors.New("coupon usage limit reached")
)

// Repo persists coupons:
//
//	coupons(code TEXT PRIMARY KEY, kind, value NUMERIC, min_purchase NUMERIC,
//	        max_discount NUMERIC NULL, expires_at, active BOOL, user_id NULL,
//	        usage_limit INT, used_count INT, created_by, source_order_id NULL,
//	        description, created_at)
//	CREATE UNIQUE INDEX coupons_source_order ON coupons(source_order_id)
//	    WHERE source_order_id IS NOT NULL;
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, c *Coupon) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO coupons(code, kind, value, min_purchase, max_discount, expires_at,
		                    active, user_id, usage_limit, used_count, created_by,
		                    source_order_id, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,NULLIF($12,''),$13)`,
		c.Code, c.Kind, c.Value, c.MinPurchase, c.MaxDiscount, c.ExpiresAt,
		c.Active, c.UserID, c.UsageLimit, c.UsedCount, c.CreatedBy,
		c.SourceOrderID, c.Description)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *Repo) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	err := r.DB.QueryRow(ctx, `
		SELECT code, kind, value, min_purchase, max_discount, expires_at, active,
		       COALESCE(user_id,''), usage_limit, used_count, created_by,
		       COALESCE(source_order_id,''), COALESCE(description,''), created_at
		FROM coupons WHERE code=$1`, code).Scan(
		&c.Code, &c.Kind, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.ExpiresAt, &c.Active,
		&c.UserID, &c.UsageLimit, &c.UsedCount, &c.CreatedBy,
		&c.SourceOrderID, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) FindBySourceOrder(ctx context.Context, orderID string) (*Coupon, error) {
	var code string
	err := r.DB.QueryRow(ctx, `SELECT code FROM coupons WHERE source_order_id=$1`, orderID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByCode(ctx, code)
}

// Redeem counts one use, refusing once the limit is hit. The WHERE clause
// is the concurrency guard; no lock is taken.
func (r *Repo) Redeem(ctx context.Context, code string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code=$1 AND used_count < usage_limit`, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrExhausted
	}
	return nil
}
