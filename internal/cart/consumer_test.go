package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClearer struct {
	cleared []string
	err     error
}

func (f *fakeClearer) Clear(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, userID)
	return nil
}

func completedEnvelope(orderID, userID string) events.Envelope {
	return events.New(events.EventOrderCompleted, "order-api", orderID, events.OrderCompletedPayload{
		OrderID:     orderID,
		UserID:      userID,
		TotalAmount: decimal.NewFromInt(50),
	})
}

func TestClearsCartOnOrderCompleted(t *testing.T) {
	store := &fakeClearer{}
	c := &Consumer{Store: store}

	require.NoError(t, c.HandleOrderEvent(context.Background(), completedEnvelope("o1", "user-1")))
	assert.Equal(t, []string{"user-1"}, store.cleared)
}

func TestAlreadyClearedCartIsNoOp(t *testing.T) {
	store := &fakeClearer{err: ErrNotFound}
	c := &Consumer{Store: store}

	assert.NoError(t, c.HandleOrderEvent(context.Background(), completedEnvelope("o1", "user-1")),
		"a missing cart means the work is already done")
}

func TestInfraFailurePropagatesForRedelivery(t *testing.T) {
	store := &fakeClearer{err: errors.New("db down")}
	c := &Consumer{Store: store}

	assert.Error(t, c.HandleOrderEvent(context.Background(), completedEnvelope("o1", "user-1")))
}

func TestIgnoresOtherEventTypes(t *testing.T) {
	store := &fakeClearer{}
	c := &Consumer{Store: store}

	env := events.New(events.EventOrderCancelled, "order-api", "o1", events.OrderCancelledPayload{OrderID: "o1"})
	require.NoError(t, c.HandleOrderEvent(context.Background(), env))
	assert.Empty(t, store.cleared)
}

func TestDropsMalformedPayload(t *testing.T) {
	store := &fakeClearer{}
	c := &Consumer{Store: store}

	env := events.Envelope{
		EventID:   "evt-1",
		EventType: events.EventOrderCompleted,
		Payload:   []byte(`{"order_id":"o1"}`),
	}
	require.NoError(t, c.HandleOrderEvent(context.Background(), env))
	assert.Empty(t, store.cleared)
}
