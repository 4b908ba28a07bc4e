package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmailStatus string

const (
	EmailPending  EmailStatus = "pending"
	EmailRetrying EmailStatus = "retrying"
	EmailSent     EmailStatus = "sent"
	EmailFailed   EmailStatus = "failed"
)

const DefaultMaxAttempts = 3

// EmailLog drives bounded retry of outbound dispatch independent of broker
// redelivery. EventID is unique: one row per email task, however many
// times the envelope arrives.
type EmailLog struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Recipient     string          `json:"recipient"`
	Subject       string          `json:"subject"`
	Status        EmailStatus     `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	MessageID     string          `json:"message_id,omitempty"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

var ErrLogNotFound = errors.New("email log not found")

type LogStore interface {
	Find(ctx context.Context, eventID string) (*EmailLog, error)
	Save(ctx context.Context, l *EmailLog) error
	ListRetryable(ctx context.Context, olderThan time.Time, limit int) ([]EmailLog, error)
}

// LogRepo persists email logs:
//
//	email_logs(event_id TEXT PRIMARY KEY, event_type, recipient, subject,
//	           status, attempts INT, max_attempts INT, message_id, error,
//	           payload JSONB, sent_at, last_attempt_at, created_at)
type LogRepo struct{ DB *pgxpool.Pool }

func (r *LogRepo) Find(ctx context.Context, eventID string) (*EmailLog, error) {
	var l EmailLog
	err := r.DB.QueryRow(ctx, `
		SELECT event_id, event_type, recipient, subject, status, attempts, max_attempts,
		       COALESCE(message_id,''), COALESCE(error,''), payload, sent_at, last_attempt_at
		FROM email_logs WHERE event_id=$1`, eventID).Scan(
		&l.EventID, &l.EventType, &l.Recipient, &l.Subject, &l.Status, &l.Attempts, &l.MaxAttempts,
		&l.MessageID, &l.Error, &l.Payload, &l.SentAt, &l.LastAttemptAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LogRepo) Save(ctx context.Context, l *EmailLog) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO email_logs(event_id, event_type, recipient, subject, status, attempts,
		                       max_attempts, message_id, error, payload, sent_at, last_attempt_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,$11,$12)
		ON CONFLICT (event_id) DO UPDATE SET
			status=$5, attempts=$6, message_id=NULLIF($8,''), error=NULLIF($9,''),
			sent_at=$11, last_attempt_at=$12`,
		l.EventID, l.EventType, l.Recipient, l.Subject, l.Status, l.Attempts,
		l.MaxAttempts, l.MessageID, l.Error, l.Payload, l.SentAt, l.LastAttemptAt)
	return err
}

func (r *LogRepo) ListRetryable(ctx context.Context, olderThan time.Time, limit int) ([]EmailLog, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT event_id, event_type, recipient, subject, status, attempts, max_attempts,
		       COALESCE(message_id,''), COALESCE(error,''), payload, sent_at, last_attempt_at
		FROM email_logs
		WHERE status=$1 AND attempts < max_attempts AND last_attempt_at < $2
		ORDER BY last_attempt_at LIMIT $3`, EmailPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmailLog
	for rows.Next() {
		var l EmailLog
		if err := rows.Scan(&l.EventID, &l.EventType, &l.Recipient, &l.Subject, &l.Status,
			&l.Attempts, &l.MaxAttempts, &l.MessageID, &l.Error, &l.Payload,
			&l.SentAt, &l.LastAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
