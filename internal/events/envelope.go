package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format shared by every producer and consumer.
// EventID is globally unique and doubles as the idempotency key: a consumer
// that already applied an event id must treat redelivery as a no-op.
type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // see types.go
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // subject id (order_id / user_id)
	Payload       json.RawMessage `json:"payload"`
}

// New builds a v1 envelope around an already-validated payload.
func New(eventType, producer, correlationID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       MustMarshal(payload),
	}
}

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode unwraps the payload for one event type and validates it before any
// business logic sees it.
func Decode[T interface{ Validate() error }](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher is what saga steps and consumers publish through. Publishing is
// fire-and-forget relative to the caller; delivery is at-least-once.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, env Envelope)
}

// PartitionKey keeps all events for one subject on one partition so per-key
// order is preserved.
func PartitionKey(subjectID string) []byte { return []byte(subjectID) }
