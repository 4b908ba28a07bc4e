package analytics

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is a raw copy of one envelope as it crossed the bus. The payload is
// stored untouched so later queries can always reconstruct what producers
// actually sent.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Producer   string          `json:"producer"`
	UserID     string          `json:"user_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Store interface {
	Insert(ctx context.Context, e Event) error
	CountByType(ctx context.Context, since time.Time) (map[string]int, error)
}

// Repo:
//
//	analytics_events(event_id TEXT PRIMARY KEY, event_type, producer,
//	                 user_id, payload JSONB, occurred_at, recorded_at)
//
// event_id as primary key makes redelivered events land on ON CONFLICT DO
// NOTHING instead of duplicating rows.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, e Event) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO analytics_events(event_id, event_type, producer, user_id, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.Producer, nullable(e.UserID), e.Payload, e.OccurredAt)
	return err
}

func (r *Repo) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE occurred_at >= $1 GROUP BY event_type`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Consumer records every envelope it sees. Unlike the task workers it returns
// storage errors to the broker: an analytics row that failed to write should
// be redelivered, and the event_id primary key absorbs the duplicate.
type Consumer struct {
	Store Store
}

func (c *Consumer) HandleEvent(ctx context.Context, env events.Envelope) error {
	e := Event{
		EventID:    env.EventID,
		EventType:  env.EventType,
		Producer:   env.Producer,
		UserID:     userIDOf(env),
		Payload:    env.Payload,
		OccurredAt: env.OccurredAt,
	}
	if err := c.Store.Insert(ctx, e); err != nil {
		return err
	}
	log.Printf("analytics: recorded %s (%s)", env.EventType, env.EventID)
	return nil
}

// userIDOf pulls a user id out of the payload when the producer included one.
// Analytics never validates payloads; a missing user id is fine.
func userIDOf(env events.Envelope) string {
	var p struct {
		UserID string `json:"user_id"`
	}
	_ = json.Unmarshal(env.Payload, &p)
	return p.UserID
}
