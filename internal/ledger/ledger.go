package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Ledger records event ids a consumer has already applied. The Postgres row
// is the record; the Redis key is a fast path with a TTL and must never be
// the only copy.
//
//	CREATE TABLE processed_events (
//	    consumer     TEXT NOT NULL,
//	    event_id     TEXT NOT NULL,
//	    processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (consumer, event_id)
//	);
type Ledger struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// Seen reports whether the event was already recorded as applied, without
// claiming it. Consumers check this on entry and call MarkIfNew only after
// the state write has landed, so a failed write never strands the event.
func (l *Ledger) Seen(ctx context.Context, consumer, eventID string) (bool, error) {
	dkey := fmt.Sprintf(redisx.KeyDedup, consumer, eventID)
	if l.Redis != nil {
		if seen, err := redisx.Exists(ctx, l.Redis, dkey); err == nil && seen {
			return true, nil
		}
	}

	var one int
	err := l.DB.QueryRow(ctx, `
		SELECT 1 FROM processed_events
		WHERE consumer=$1 AND event_id=$2`, consumer, eventID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkIfNew returns true exactly once per (consumer, eventID): the caller
// that gets true owns the first application of that event.
func (l *Ledger) MarkIfNew(ctx context.Context, consumer, eventID string) (bool, error) {
	dkey := fmt.Sprintf(redisx.KeyDedup, consumer, eventID)
	if l.Redis != nil {
		if seen, err := redisx.Exists(ctx, l.Redis, dkey); err == nil && seen {
			return false, nil
		}
	}

	ct, err := l.DB.Exec(ctx, `
		INSERT INTO processed_events(consumer, event_id)
		VALUES ($1, $2)
		ON CONFLICT (consumer, event_id) DO NOTHING`, consumer, eventID)
	if err != nil {
		return false, err
	}
	if l.Redis != nil {
		if err := l.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err(); err != nil {
			log.Printf("ledger: cache %s: %v", dkey, err)
		}
	}
	return ct.RowsAffected() == 1, nil
}
