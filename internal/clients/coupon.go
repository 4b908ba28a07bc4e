package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type CouponCheck struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type CouponResult struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
}

type CouponClient struct{ base }

func NewCouponClient(url string, timeout time.Duration, retries int) *CouponClient {
	return &CouponClient{base: newBase(url, timeout, retries)}
}

func (c *CouponClient) Validate(ctx context.Context, code string, amount decimal.Decimal) (*CouponResult, error) {
	var res CouponResult
	req := CouponCheck{Code: code, Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/api/coupons/validate", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
