package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("transaction not found")

// Repo persists transactions plus the set of provider events already
// applied per transaction:
//
//	transactions(id, user_id, session_id UNIQUE, intent_id, amount, currency,
//	             status, order_id, customer_email, created_at, updated_at)
//	provider_events(transaction_id, event_id, event_type, applied_at,
//	                PRIMARY KEY(transaction_id, event_id))
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, t *Transaction) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO transactions(id, user_id, session_id, intent_id, amount, currency,
		                         status, order_id, customer_email)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,NULLIF($8,''),NULLIF($9,''))`,
		t.ID, t.UserID, t.SessionID, t.IntentID, t.Amount, t.Currency,
		t.Status, t.OrderID, t.CustomerEmail)
	return err
}

func (r *Repo) FindBySession(ctx context.Context, sessionID string) (*Transaction, error) {
	return r.findOne(ctx, `session_id=$1`, sessionID)
}

func (r *Repo) FindByIntent(ctx context.Context, intentID string) (*Transaction, error) {
	return r.findOne(ctx, `intent_id=$1`, intentID)
}

func (r *Repo) Get(ctx context.Context, id string) (*Transaction, error) {
	return r.findOne(ctx, `id=$1`, id)
}

func (r *Repo) findOne(ctx context.Context, where string, arg any) (*Transaction, error) {
	var t Transaction
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, session_id, COALESCE(intent_id,''), amount, currency,
		       status, COALESCE(order_id,''), COALESCE(customer_email,''), created_at, updated_at
		FROM transactions WHERE `+where, arg).Scan(
		&t.ID, &t.UserID, &t.SessionID, &t.IntentID, &t.Amount, &t.Currency,
		&t.Status, &t.OrderID, &t.CustomerEmail, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ApplyUpdate writes the transaction's new state and records the provider
// event id in one database transaction, so a crash between the two can never
// leave the event claimed but unapplied. False means the event id was
// already in the applied set and nothing was written.
func (r *Repo) ApplyUpdate(ctx context.Context, t *Transaction, eventID, eventType string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO provider_events(transaction_id, event_id, event_type)
		VALUES ($1,$2,$3)
		ON CONFLICT (transaction_id, event_id) DO NOTHING`,
		t.ID, eventID, eventType)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() != 1 {
		return false, nil
	}

	ct, err = tx.Exec(ctx, `
		UPDATE transactions
		SET status=$2, intent_id=NULLIF($3,''), order_id=NULLIF($4,''),
		    customer_email=NULLIF($5,''), updated_at=now()
		WHERE id=$1`,
		t.ID, t.Status, t.IntentID, t.OrderID, t.CustomerEmail)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() != 1 {
		return false, ErrNotFound
	}
	return true, tx.Commit(ctx)
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, session_id, COALESCE(intent_id,''), amount, currency,
		       status, COALESCE(order_id,''), COALESCE(customer_email,''), created_at, updated_at
		FROM transactions WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.SessionID, &t.IntentID, &t.Amount, &t.Currency,
			&t.Status, &t.OrderID, &t.CustomerEmail, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
