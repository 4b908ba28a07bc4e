package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type Cart struct {
	UserID     string          `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CartClient talks to the cart collaborator. Get and Clear act on behalf of
// the end user (bearer token); ClearInternal is the service-to-service path
// used by the payment-completion consumer where no user token exists.
type CartClient struct {
	base
	secret string
}

func NewCartClient(url, secret string, timeout time.Duration, retries int) *CartClient {
	return &CartClient{base: newBase(url, timeout, retries), secret: secret}
}

func (c *CartClient) Get(ctx context.Context, token string) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", bearer(token), nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartClient) Clear(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", bearer(token), nil, nil)
}

func (c *CartClient) ClearInternal(ctx context.Context, userID string) error {
	headers := map[string]string{"X-Internal-Secret": c.secret}
	return c.do(ctx, http.MethodDelete, "/internal/cart/"+userID, headers, nil, nil)
}
