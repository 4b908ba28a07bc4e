package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type ProductClient struct{ base }

func NewProductClient(url string, timeout time.Duration, retries int) *ProductClient {
	return &ProductClient{base: newBase(url, timeout, retries)}
}

// Get returns ErrNotFound for an unknown product id.
func (c *ProductClient) Get(ctx context.Context, productID string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+productID, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
