package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env := New(EventOrderCreated, "order-api", "order-1", OrderCreatedPayload{
		OrderID: "order-1", UserID: "user-1", Status: "pending",
	})

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventOrderCreated, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "order-api", env.Producer)
	assert.Equal(t, "order-1", env.CorrelationID)
	assert.WithinDuration(t, time.Now().UTC(), env.OccurredAt, time.Second)
}

func TestDecodeValidPayload(t *testing.T) {
	env := New(EventOrderCompleted, "payment-api", "order-1", OrderCompletedPayload{
		OrderID:     "order-1",
		UserID:      "user-1",
		TotalAmount: decimal.NewFromInt(42),
	})

	p, err := Decode[OrderCompletedPayload](env)
	require.NoError(t, err)
	assert.Equal(t, "order-1", p.OrderID)
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(42)))
}

func TestDecodeRejectsInvalidPayload(t *testing.T) {
	// missing user_id must fail validation before any handler sees it
	env := New(EventOrderCompleted, "payment-api", "order-1", OrderCompletedPayload{
		OrderID: "order-1",
	})

	_, err := Decode[OrderCompletedPayload](env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order-completed payload")
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	env := Envelope{
		EventID:   "evt-1",
		EventType: EventOrderCompleted,
		Payload:   json.RawMessage(`{"order_id": 12`),
	}

	_, err := Decode[OrderCompletedPayload](env)
	require.Error(t, err)
}

func TestPaymentStatusUpdatedValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload PaymentStatusUpdatedPayload
		ok      bool
	}{
		{"succeeded with order id", PaymentStatusUpdatedPayload{OrderID: "o1", Status: "succeeded"}, true},
		{"failed with session id", PaymentStatusUpdatedPayload{SessionID: "cs_1", Status: "failed"}, true},
		{"no subject", PaymentStatusUpdatedPayload{Status: "succeeded"}, false},
		{"unknown status", PaymentStatusUpdatedPayload{OrderID: "o1", Status: "maybe"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPartitionKeyIsSubjectID(t *testing.T) {
	assert.Equal(t, []byte("order-7"), PartitionKey("order-7"))
}
