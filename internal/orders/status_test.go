package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionGraph(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusProcessing, StatusCancelled},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusCancelled},
	}
	for _, e := range allowed {
		assert.True(t, CanTransition(e.from, e.to), "%s -> %s should be legal", e.from, e.to)
	}

	rejected := []struct{ from, to Status }{
		{StatusPending, StatusShipped},
		{StatusPending, StatusDelivered},
		{StatusProcessing, StatusDelivered},
		{StatusDelivered, StatusShipped},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusProcessing},
		{StatusShipped, StatusProcessing},
	}
	for _, e := range rejected {
		assert.False(t, CanTransition(e.from, e.to), "%s -> %s should be illegal", e.from, e.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus(Status("returned")))
	assert.False(t, ValidStatus(Status("")))
}

func TestOrderTransitionRecordsHistory(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending}

	require.NoError(t, o.Transition(StatusProcessing, "Payment received"))
	assert.Equal(t, StatusProcessing, o.Status)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusProcessing, o.History[0].Status)
	assert.Equal(t, "Payment received", o.History[0].Note)
	assert.False(t, o.History[0].Timestamp.IsZero())
}

func TestOrderTransitionRejectsIllegalEdge(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusDelivered}

	err := o.Transition(StatusShipped, "going backwards")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusDelivered, o.Status, "status must not change on rejection")
	assert.Empty(t, o.History)
}

func TestSetPaymentStatusKeepsOrderStatus(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending, PaymentStatus: PaymentPending}

	o.SetPaymentStatus(PaymentPaid, "Payment completed successfully")
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusPending, o.History[0].Status)
}
