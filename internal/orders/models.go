package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type StatusChange struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is owned by the saga. Status and PaymentStatus move only through
// Transition and SetPaymentStatus so every change lands in History; History
// is append-only and answers "why is this order in this state".
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Items          []LineItem      `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Status         Status          `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	SessionID      string          `json:"session_id,omitempty"` // payment session ref
	History        []StatusChange  `json:"status_history"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// history entries appended since the last store write
	unsaved []StatusChange
}

func (o *Order) addHistory(status Status, note string) {
	c := StatusChange{Status: status, Note: note, Timestamp: time.Now().UTC()}
	o.History = append(o.History, c)
	o.unsaved = append(o.unsaved, c)
}

// Transition moves the order along a legal edge and records it.
func (o *Order) Transition(to Status, note string) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%s -> %s: %w", o.Status, to, ErrInvalidTransition)
	}
	o.Status = to
	o.addHistory(to, note)
	return nil
}

// SetPaymentStatus changes the payment axis and records a history entry
// against the current order status.
func (o *Order) SetPaymentStatus(ps PaymentStatus, note string) {
	o.PaymentStatus = ps
	o.addHistory(o.Status, note)
}
