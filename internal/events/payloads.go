package events

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// One payload shape per event type. Consumers decode through Decode so the
// shape is validated before any business logic runs.

type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ProductsCount int             `json:"products_count"`
	Status        string          `json:"status"`
}

func (p OrderCreatedPayload) Validate() error {
	if p.OrderID == "" || p.UserID == "" {
		return errors.New("order_id and user_id are required")
	}
	return nil
}

type OrderStatusChangedPayload struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Note      string `json:"note,omitempty"`
}

func (p OrderStatusChangedPayload) Validate() error {
	if p.OrderID == "" || p.NewStatus == "" {
		return errors.New("order_id and new_status are required")
	}
	return nil
}

type OrderCancelledPayload struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (p OrderCancelledPayload) Validate() error {
	if p.OrderID == "" {
		return errors.New("order_id is required")
	}
	return nil
}

type OrderCompletedPayload struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineItems   []LineItem      `json:"line_items,omitempty"`
}

func (p OrderCompletedPayload) Validate() error {
	if p.OrderID == "" || p.UserID == "" {
		return errors.New("order_id and user_id are required")
	}
	return nil
}

type PaymentInitiatedPayload struct {
	UserID        string          `json:"user_id"`
	SessionID     string          `json:"session_id"`
	Amount        decimal.Decimal `json:"amount"`
	ProductsCount int             `json:"products_count"`
}

func (p PaymentInitiatedPayload) Validate() error {
	if p.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

type PaymentCompletedPayload struct {
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	OrderID       string          `json:"order_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
}

func (p PaymentCompletedPayload) Validate() error {
	if p.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	return nil
}

type PaymentFailedPayload struct {
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
}

func (p PaymentFailedPayload) Validate() error {
	if p.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	return nil
}

// PaymentStatusUpdatedPayload drives the order saga's payment consumer.
// Status is "succeeded" or "failed". Either order_id or session_id must be
// set so the order can be located.
type PaymentStatusUpdatedPayload struct {
	OrderID   string `json:"order_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

func (p PaymentStatusUpdatedPayload) Validate() error {
	if p.OrderID == "" && p.SessionID == "" {
		return errors.New("order_id or session_id is required")
	}
	if p.Status != "succeeded" && p.Status != "failed" {
		return errors.New("status must be succeeded or failed")
	}
	return nil
}

type PaymentRefundedPayload struct {
	OrderID   string `json:"order_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	RefundID  string `json:"refund_id"`
}

func (p PaymentRefundedPayload) Validate() error {
	if p.OrderID == "" && p.SessionID == "" {
		return errors.New("order_id or session_id is required")
	}
	return nil
}

type CouponCreatedPayload struct {
	Code    string `json:"code"`
	UserID  string `json:"user_id,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

func (p CouponCreatedPayload) Validate() error {
	if p.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

// ---- email tasks ----

type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (p WelcomeEmailPayload) Validate() error {
	if p.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type OrderConfirmationEmailPayload struct {
	UserID  string          `json:"user_id"`
	Email   string          `json:"email"`
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

func (p OrderConfirmationEmailPayload) Validate() error {
	if p.Email == "" || p.OrderID == "" {
		return errors.New("email and order_id are required")
	}
	return nil
}

type PaymentReceiptEmailPayload struct {
	Email         string          `json:"email"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

func (p PaymentReceiptEmailPayload) Validate() error {
	if p.Email == "" || p.TransactionID == "" {
		return errors.New("email and transaction_id are required")
	}
	return nil
}

type LoyaltyCouponEmailPayload struct {
	UserID     string          `json:"user_id"`
	Email      string          `json:"email,omitempty"`
	CouponCode string          `json:"coupon_code"`
	Discount   decimal.Decimal `json:"discount"`
	ExpiresAt  time.Time       `json:"expires_at"`
	OrderID    string          `json:"order_id,omitempty"`
}

func (p LoyaltyCouponEmailPayload) Validate() error {
	if p.UserID == "" || p.CouponCode == "" {
		return errors.New("user_id and coupon_code are required")
	}
	return nil
}

// ---- notification tasks ----

type ShippingNotificationPayload struct {
	UserID       string `json:"user_id"`
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	TrackingNote string `json:"tracking_note,omitempty"`
	Email        string `json:"email,omitempty"`
}

func (p ShippingNotificationPayload) Validate() error {
	if p.UserID == "" || p.OrderID == "" {
		return errors.New("user_id and order_id are required")
	}
	return nil
}

type DeliveryNotificationPayload struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

func (p DeliveryNotificationPayload) Validate() error {
	if p.UserID == "" || p.OrderID == "" {
		return errors.New("user_id and order_id are required")
	}
	return nil
}

type LowStockAlertPayload struct {
	AdminID     string `json:"admin_id,omitempty"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

func (p LowStockAlertPayload) Validate() error {
	if p.ProductID == "" {
		return errors.New("product_id is required")
	}
	return nil
}

type AbandonedCartReminderPayload struct {
	UserID     string `json:"user_id"`
	CartID     string `json:"cart_id,omitempty"`
	ItemsCount int    `json:"items_count"`
}

func (p AbandonedCartReminderPayload) Validate() error {
	if p.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}
