package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxProcessing TxStatus = "processing"
	TxSucceeded  TxStatus = "succeeded"
	TxFailed     TxStatus = "failed"
	TxCanceled   TxStatus = "canceled"
	TxRefunded   TxStatus = "refunded"
)

// Transaction is the payment-side record of one checkout session. SessionID
// is unique; OrderID links back to the saga's order. Applied provider-event
// ids live in their own table and make webhook application idempotent.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	SessionID     string          `json:"session_id"`
	IntentID      string          `json:"intent_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        TxStatus        `json:"status"`
	OrderID       string          `json:"order_id,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProviderEvent is the already-verified effect of one payment-gateway
// event. The gateway's wire protocol and signature checks live outside
// this system; only the effect is modeled.
type ProviderEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	IntentID  string `json:"intent_id,omitempty"`
	RefundID  string `json:"refund_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Provider event types, named after the gateway's own vocabulary.
const (
	ProviderSessionCompleted = "checkout.session.completed"
	ProviderIntentSucceeded  = "payment_intent.succeeded"
	ProviderIntentFailed     = "payment_intent.payment_failed"
	ProviderSessionExpired   = "checkout.session.expired"
	ProviderChargeRefunded   = "charge.refunded"
)
