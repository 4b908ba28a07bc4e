package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows      map[string]Event
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]Event{}}
}

func (f *fakeStore) Insert(_ context.Context, e Event) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	// event_id primary key: duplicates land on conflict-do-nothing
	if _, ok := f.rows[e.EventID]; ok {
		return nil
	}
	f.rows[e.EventID] = e
	return nil
}

func (f *fakeStore) CountByType(_ context.Context, since time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, e := range f.rows {
		if !e.OccurredAt.Before(since) {
			out[e.EventType]++
		}
	}
	return out, nil
}

func TestRecordsEnvelopeVerbatim(t *testing.T) {
	store := newFakeStore()
	c := &Consumer{Store: store}

	env := events.New(events.EventOrderCreated, "order-api", "o1", events.OrderCreatedPayload{
		OrderID: "o1", UserID: "user-1", TotalAmount: decimal.NewFromInt(99), Status: "pending",
	})
	require.NoError(t, c.HandleEvent(context.Background(), env))

	e, ok := store.rows[env.EventID]
	require.True(t, ok)
	assert.Equal(t, events.EventOrderCreated, e.EventType)
	assert.Equal(t, "order-api", e.Producer)
	assert.Equal(t, "user-1", e.UserID, "user id lifted from the payload when present")
	assert.JSONEq(t, string(env.Payload), string(e.Payload))
}

func TestRecordsPayloadWithoutUserID(t *testing.T) {
	store := newFakeStore()
	c := &Consumer{Store: store}

	env := events.New(events.EventCouponCreated, "coupon-api", "o1", events.CouponCreatedPayload{Code: "SAVE10-X"})
	require.NoError(t, c.HandleEvent(context.Background(), env))
	assert.Empty(t, store.rows[env.EventID].UserID)
}

func TestStorageFailurePropagatesForRedelivery(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("db down")
	c := &Consumer{Store: store}

	env := events.New(events.EventUserLogin, "auth-api", "u1", events.OrderCreatedPayload{OrderID: "x", UserID: "y"})
	assert.Error(t, c.HandleEvent(context.Background(), env),
		"a lost analytics row should come back around")
}

func TestRedeliveryDoesNotDuplicate(t *testing.T) {
	store := newFakeStore()
	c := &Consumer{Store: store}

	env := events.New(events.EventOrderCreated, "order-api", "o1", events.OrderCreatedPayload{
		OrderID: "o1", UserID: "user-1",
	})
	require.NoError(t, c.HandleEvent(context.Background(), env))
	require.NoError(t, c.HandleEvent(context.Background(), env))
	assert.Len(t, store.rows, 1)
}

func TestCountByTypeWindow(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	store.rows["a"] = Event{EventID: "a", EventType: "order-created", OccurredAt: now}
	store.rows["b"] = Event{EventID: "b", EventType: "order-created", OccurredAt: now.Add(-2 * time.Hour)}
	store.rows["c"] = Event{EventID: "c", EventType: "user-login", OccurredAt: now}

	counts, err := store.CountByType(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"order-created": 1, "user-login": 1}, counts)
}
