package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type SessionItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

type SessionRequest struct {
	OrderID    string        `json:"order_id,omitempty"`
	Items      []SessionItem `json:"items"`
	CouponCode string        `json:"coupon_code,omitempty"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentClient struct{ base }

func NewPaymentClient(url string, timeout time.Duration, retries int) *PaymentClient {
	return &PaymentClient{base: newBase(url, timeout, retries)}
}

// CreateSession must complete before the order can carry a payment session
// ref; its failure triggers the saga's compensation path.
func (c *PaymentClient) CreateSession(ctx context.Context, token string, req SessionRequest) (*CheckoutSession, error) {
	var s CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/api/payments/create-checkout-session", bearer(token), req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
