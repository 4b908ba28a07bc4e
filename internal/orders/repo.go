package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

// Repo persists orders across three tables:
//
//	orders(id, user_id, total_amount, coupon_code, coupon_discount,
//	       status, payment_status, session_id, created_at, updated_at)
//	order_items(order_id, product_id, name, image, quantity, unit_price)
//	order_status_history(id, order_id, status, note, created_at)
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_amount, coupon_code, coupon_discount,
		                   status, payment_status, session_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''))`,
		o.ID, o.UserID, o.TotalAmount, o.CouponCode, o.CouponDiscount,
		o.Status, o.PaymentStatus, o.SessionID)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, image, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, it.ProductID, it.Name, it.Image, it.Quantity, it.UnitPrice)
		if err != nil {
			return err
		}
	}

	if err := insertHistory(ctx, tx, o.ID, o.unsaved); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	o.unsaved = nil
	return nil
}

// Update writes the mutable columns and appends history entries recorded
// since the last write. Existing history rows are never touched.
func (r *Repo) Update(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status=$2, payment_status=$3, session_id=NULLIF($4,''), updated_at=now()
		WHERE id=$1`,
		o.ID, o.Status, o.PaymentStatus, o.SessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}

	if err := insertHistory(ctx, tx, o.ID, o.unsaved); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	o.unsaved = nil
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID string, changes []StatusChange) error {
	for _, c := range changes {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_status_history(order_id, status, note, created_at)
			VALUES ($1,$2,$3,$4)`,
			orderID, c.Status, c.Note, c.Timestamp)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return r.findOne(ctx, `WHERE id=$1`, id)
}

func (r *Repo) FindBySession(ctx context.Context, sessionID string) (*Order, error) {
	return r.findOne(ctx, `WHERE session_id=$1`, sessionID)
}

func (r *Repo) findOne(ctx context.Context, where string, arg any) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, total_amount, COALESCE(coupon_code,''), coupon_discount,
		       status, payment_status, COALESCE(session_id,''), created_at, updated_at
		FROM orders `+where, arg).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.CouponCode, &o.CouponDiscount,
		&o.Status, &o.PaymentStatus, &o.SessionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, COALESCE(name,''), COALESCE(image,''), quantity, unit_price
		FROM order_items WHERE order_id=$1`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Image, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := r.DB.Query(ctx, `
		SELECT status, COALESCE(note,''), created_at
		FROM order_status_history WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var c StatusChange
		if err := hrows.Scan(&c.Status, &c.Note, &c.Timestamp); err != nil {
			return nil, err
		}
		o.History = append(o.History, c)
	}
	return &o, hrows.Err()
}

// ListByUser returns a page of the user's orders, newest first, optionally
// filtered by status. Items and history are not hydrated for list views.
func (r *Repo) ListByUser(ctx context.Context, userID string, status Status, limit, offset int) ([]Order, int, error) {
	where := `WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`
		SELECT id, user_id, total_amount, COALESCE(coupon_code,''), coupon_discount,
		       status, payment_status, COALESCE(session_id,''), created_at, updated_at
		FROM orders %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.CouponCode, &o.CouponDiscount,
			&o.Status, &o.PaymentStatus, &o.SessionID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}
