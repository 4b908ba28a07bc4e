package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("cart not found")

type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type Cart struct {
	UserID     string          `json:"user_id"`
	Items      []Item          `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func (c *Cart) recompute() {
	c.TotalItems = 0
	c.Subtotal = decimal.Zero
	for _, it := range c.Items {
		c.TotalItems += it.Quantity
		c.Subtotal = c.Subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
}

// Store keeps one cart row per user:
//
//	carts(user_id TEXT PRIMARY KEY, items JSONB NOT NULL, updated_at)
//
// The Postgres row is authoritative; the Redis copy is a latency
// optimization with its own TTL and is dropped on every write.
type Store struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	key := fmt.Sprintf(redisx.KeyCart, userID)
	if s.Redis != nil {
		if b, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var c Cart
			if err := json.Unmarshal(b, &c); err == nil {
				return &c, nil
			}
		}
	}

	var raw []byte
	err := s.DB.QueryRow(ctx, `SELECT items FROM carts WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c := Cart{UserID: userID}
	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return nil, err
	}
	c.recompute()

	if s.Redis != nil {
		if b, err := json.Marshal(&c); err == nil {
			_ = s.Redis.Set(ctx, key, b, redisx.TTLCartCache).Err()
		}
	}
	return &c, nil
}

func (s *Store) Save(ctx context.Context, c *Cart) error {
	c.recompute()
	raw, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO carts(user_id, items) VALUES ($1,$2)
		ON CONFLICT (user_id) DO UPDATE SET items=$2, updated_at=now()`,
		c.UserID, raw)
	if err != nil {
		return err
	}
	s.dropCache(ctx, c.UserID)
	return nil
}

// Clear deletes the cart entirely. Returns ErrNotFound when there was
// nothing to clear, so callers can tell "cleared" from "already gone".
func (s *Store) Clear(ctx context.Context, userID string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	s.dropCache(ctx, userID)
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) dropCache(ctx context.Context, userID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCart, userID)).Err(); err != nil {
		log.Printf("cart: drop cache for %s: %v", userID, err)
	}
}
