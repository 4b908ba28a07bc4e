package orders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/clients"
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrValidation marks domain rejections: empty cart, unknown product,
// invalid coupon. Never retried, reported straight back to the caller.
var ErrValidation = errors.New("validation failed")

// SagaError reports a partial failure after the order row exists. OrderID
// lets the caller show the cancelled order instead of a bare failure.
type SagaError struct {
	OrderID string
	Err     error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *SagaError) Unwrap() error { return e.Err }

type Store interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindBySession(ctx context.Context, sessionID string) (*Order, error)
	ListByUser(ctx context.Context, userID string, status Status, limit, offset int) ([]Order, int, error)
}

type CartGateway interface {
	Get(ctx context.Context, token string) (*clients.Cart, error)
	Clear(ctx context.Context, token string) error
	ClearInternal(ctx context.Context, userID string) error
}

type ProductGateway interface {
	Get(ctx context.Context, productID string) (*clients.Product, error)
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, token string, req clients.SessionRequest) (*clients.CheckoutSession, error)
}

type CouponGateway interface {
	Validate(ctx context.Context, code string, amount decimal.Decimal) (*clients.CouponResult, error)
}

type Deduper interface {
	Seen(ctx context.Context, consumer, eventID string) (bool, error)
	MarkIfNew(ctx context.Context, consumer, eventID string) (bool, error)
}

// Service owns the order saga: the synchronous checkout steps, the status
// operations behind the HTTP API, and the payment-event consumer.
type Service struct {
	Store       Store
	Cart        CartGateway
	Products    ProductGateway
	Payments    PaymentGateway
	Coupons     CouponGateway
	Publisher   events.Publisher
	Ledger      Deduper
	Cache       *redis.Client // optional status cache
	ServiceName string
}

// CreateFromCart runs the checkout saga:
// fetch cart -> validate products -> apply coupon -> persist pending order
// -> create payment session -> save session ref -> best-effort cart clear
// -> publish order-created.
func (s *Service) CreateFromCart(ctx context.Context, userID, token, couponCode string) (*Order, *clients.CheckoutSession, error) {
	cart, err := s.Cart.Get(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, nil, fmt.Errorf("cart is empty: %w", ErrValidation)
	}

	// all-or-nothing: one bad line item and nothing is persisted
	items := make([]LineItem, 0, len(cart.Items))
	total := decimal.Zero
	for _, it := range cart.Items {
		if _, err := s.Products.Get(ctx, it.ProductID); err != nil {
			if errors.Is(err, clients.ErrNotFound) {
				return nil, nil, fmt.Errorf("product %s not found: %w", it.ProductID, ErrValidation)
			}
			return nil, nil, fmt.Errorf("validate product %s: %w", it.ProductID, err)
		}
		items = append(items, LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	discount := decimal.Zero
	if couponCode != "" {
		res, err := s.Coupons.Validate(ctx, couponCode, total)
		if err != nil {
			return nil, nil, fmt.Errorf("validate coupon: %w", err)
		}
		if !res.Valid {
			return nil, nil, fmt.Errorf("coupon %s rejected: %s: %w", couponCode, res.Reason, ErrValidation)
		}
		discount = res.Discount
		total = total.Sub(discount)
	}

	order := &Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          items,
		TotalAmount:    total,
		CouponCode:     couponCode,
		CouponDiscount: discount,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
	}
	order.addHistory(StatusPending, "Order created")
	if err := s.Store.Create(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("persist order: %w", err)
	}

	sess, err := s.Payments.CreateSession(ctx, token, sessionRequest(order.ID, items, couponCode))
	if err != nil {
		// compensate: the order row exists, so cancel it and hand the id back
		order.PaymentStatus = PaymentFailed
		if terr := order.Transition(StatusCancelled, "Payment session creation failed"); terr == nil {
			if uerr := s.Store.Update(ctx, order); uerr != nil {
				log.Printf("order %s: compensation update failed: %v", order.ID, uerr)
			}
		}
		return nil, nil, &SagaError{OrderID: order.ID, Err: err}
	}

	order.SessionID = sess.ID
	if err := s.Store.Update(ctx, order); err != nil {
		return nil, nil, &SagaError{OrderID: order.ID, Err: err}
	}

	// cart inconsistency is tolerated; payment completion clears again
	if err := s.Cart.Clear(ctx, token); err != nil {
		log.Printf("order %s: cart clear failed, will retry on payment completion: %v", order.ID, err)
	}

	s.Publisher.Publish(ctx, events.TopicAnalytics, order.ID,
		events.New(events.EventOrderCreated, s.ServiceName, order.ID, events.OrderCreatedPayload{
			OrderID:       order.ID,
			UserID:        userID,
			TotalAmount:   order.TotalAmount,
			ProductsCount: len(items),
			Status:        string(order.Status),
		}))

	return order, sess, nil
}

func sessionRequest(orderID string, items []LineItem, couponCode string) clients.SessionRequest {
	req := clients.SessionRequest{OrderID: orderID, CouponCode: couponCode}
	for _, it := range items {
		req.Items = append(req.Items, clients.SessionItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return req
}

// Cancel handles a user- or admin-initiated cancellation. Only pending and
// processing orders qualify; everything else is an illegal transition.
func (s *Service) Cancel(ctx context.Context, orderID, byWhom string) (*Order, error) {
	order, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending && order.Status != StatusProcessing {
		return nil, fmt.Errorf("cannot cancel order with status %s: %w", order.Status, ErrInvalidTransition)
	}
	if err := order.Transition(StatusCancelled, "Order cancelled by "+byWhom); err != nil {
		return nil, err
	}
	if err := s.Store.Update(ctx, order); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, order.ID)

	s.Publisher.Publish(ctx, events.TopicAnalytics, order.ID,
		events.New(events.EventOrderCancelled, s.ServiceName, order.ID, events.OrderCancelledPayload{
			OrderID:     order.ID,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
		}))
	return order, nil
}

// UpdateStatus is the admin operation. It walks the same transition graph
// as everything else; an admin moves an order along edges, never teleports
// it.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, note string) (*Order, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("unknown status %q: %w", to, ErrValidation)
	}
	order, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status
	if note == "" {
		note = fmt.Sprintf("Status changed from %s to %s", oldStatus, to)
	}
	if err := order.Transition(to, note); err != nil {
		return nil, err
	}
	if err := s.Store.Update(ctx, order); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, order.ID)

	s.Publisher.Publish(ctx, events.TopicAnalytics, order.ID,
		events.New(events.EventOrderStatusChanged, s.ServiceName, order.ID, events.OrderStatusChangedPayload{
			OrderID:   order.ID,
			UserID:    order.UserID,
			OldStatus: string(oldStatus),
			NewStatus: string(to),
			Note:      note,
		}))

	switch to {
	case StatusShipped:
		s.Publisher.Publish(ctx, events.TopicNotificationTasks, order.UserID,
			events.New(events.TaskShippingNotification, s.ServiceName, order.ID, events.ShippingNotificationPayload{
				UserID:       order.UserID,
				OrderID:      order.ID,
				Status:       string(to),
				TrackingNote: note,
			}))
	case StatusDelivered:
		s.Publisher.Publish(ctx, events.TopicNotificationTasks, order.UserID,
			events.New(events.TaskDeliveryNotification, s.ServiceName, order.ID, events.DeliveryNotificationPayload{
				UserID:  order.UserID,
				OrderID: order.ID,
			}))
	}
	return order, nil
}

func (s *Service) invalidateCache(ctx context.Context, orderID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err(); err != nil {
		log.Printf("order %s: cache invalidate: %v", orderID, err)
	}
}
