package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-shop-events.git/internal/clients"
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	orders    map[string]*Order
	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*Order{}}
}

func (f *fakeStore) Create(_ context.Context, o *Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, o *Order) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindBySession(_ context.Context, sessionID string) (*Order, error) {
	for _, o := range f.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ListByUser(_ context.Context, userID string, status Status, limit, offset int) ([]Order, int, error) {
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

type fakeCart struct {
	cart           *clients.Cart
	getErr         error
	clearErr       error
	cleared        int
	clearedForUser []string
}

func (f *fakeCart) Get(context.Context, string) (*clients.Cart, error) {
	return f.cart, f.getErr
}

func (f *fakeCart) Clear(context.Context, string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared++
	return nil
}

func (f *fakeCart) ClearInternal(_ context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clearedForUser = append(f.clearedForUser, userID)
	return nil
}

type fakeProducts struct {
	known map[string]bool
}

func (f *fakeProducts) Get(_ context.Context, id string) (*clients.Product, error) {
	if !f.known[id] {
		return nil, clients.ErrNotFound
	}
	return &clients.Product{ID: id}, nil
}

type fakePayments struct {
	session *clients.CheckoutSession
	err     error
	lastReq clients.SessionRequest
}

func (f *fakePayments) CreateSession(_ context.Context, _ string, req clients.SessionRequest) (*clients.CheckoutSession, error) {
	f.lastReq = req
	return f.session, f.err
}

type fakeCoupons struct {
	result *clients.CouponResult
	err    error
}

func (f *fakeCoupons) Validate(context.Context, string, decimal.Decimal) (*clients.CouponResult, error) {
	return f.result, f.err
}

type published struct {
	topic string
	key   string
	env   events.Envelope
}

type recorder struct {
	msgs []published
}

func (r *recorder) Publish(_ context.Context, topic, key string, env events.Envelope) {
	r.msgs = append(r.msgs, published{topic: topic, key: key, env: env})
}

func (r *recorder) byType(eventType string) []published {
	var out []published
	for _, m := range r.msgs {
		if m.env.EventType == eventType {
			out = append(out, m)
		}
	}
	return out
}

type fakeLedger struct {
	seen map[string]bool
	err  error
}

func (f *fakeLedger) Seen(_ context.Context, consumer, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.seen[consumer+"/"+eventID], nil
}

func (f *fakeLedger) MarkIfNew(_ context.Context, consumer, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	k := consumer + "/" + eventID
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func testService() (*Service, *fakeStore, *fakeCart, *fakePayments, *recorder) {
	store := newFakeStore()
	cart := &fakeCart{
		cart: &clients.Cart{
			UserID: "user-1",
			Items: []clients.CartItem{
				{ProductID: "p1", Name: "Widget", Quantity: 2, Price: price("25.00")},
				{ProductID: "p2", Name: "Gadget", Quantity: 1, Price: price("50.00")},
			},
		},
	}
	payments := &fakePayments{session: &clients.CheckoutSession{ID: "cs_123", URL: "https://pay/cs_123"}}
	rec := &recorder{}
	svc := &Service{
		Store:       store,
		Cart:        cart,
		Products:    &fakeProducts{known: map[string]bool{"p1": true, "p2": true}},
		Payments:    payments,
		Coupons:     &fakeCoupons{},
		Publisher:   rec,
		Ledger:      &fakeLedger{},
		ServiceName: "order-api",
	}
	return svc, store, cart, payments, rec
}

func TestCreateFromCartHappyPath(t *testing.T) {
	svc, store, cart, payments, rec := testService()

	order, sess, err := svc.CreateFromCart(context.Background(), "user-1", "token", "")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentPending, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(price("100.00")), "total is %s", order.TotalAmount)
	assert.Equal(t, "cs_123", sess.ID)
	assert.Equal(t, "cs_123", order.SessionID)

	saved, err := store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_123", saved.SessionID)
	require.NotEmpty(t, saved.History)
	assert.Equal(t, "Order created", saved.History[0].Note)

	// the payment session request carries the order id so events can link back
	assert.Equal(t, order.ID, payments.lastReq.OrderID)
	assert.Len(t, payments.lastReq.Items, 2)

	assert.Equal(t, 1, cart.cleared)

	created := rec.byType(events.EventOrderCreated)
	require.Len(t, created, 1)
	assert.Equal(t, events.TopicAnalytics, created[0].topic)
	assert.Equal(t, order.ID, created[0].key)
}

func TestCreateFromCartEmptyCart(t *testing.T) {
	svc, store, cart, _, _ := testService()
	cart.cart = &clients.Cart{UserID: "user-1"}

	_, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, store.orders)
}

func TestCreateFromCartUnknownProduct(t *testing.T) {
	svc, store, _, _, rec := testService()
	svc.Products = &fakeProducts{known: map[string]bool{"p1": true}} // p2 missing

	_, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "p2", "error should name the offending product")
	assert.Empty(t, store.orders, "nothing may be persisted on a bad line item")
	assert.Empty(t, rec.msgs)
}

func TestCreateFromCartAppliesCoupon(t *testing.T) {
	svc, _, _, _, _ := testService()
	svc.Coupons = &fakeCoupons{result: &clients.CouponResult{Valid: true, Discount: price("10.00")}}

	order, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "SAVE10")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(price("90.00")), "total is %s", order.TotalAmount)
	assert.True(t, order.CouponDiscount.Equal(price("10.00")))
	assert.Equal(t, "SAVE10", order.CouponCode)
}

func TestCreateFromCartRejectedCoupon(t *testing.T) {
	svc, store, _, _, _ := testService()
	svc.Coupons = &fakeCoupons{result: &clients.CouponResult{Valid: false, Reason: "expired"}}

	_, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "OLD")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "expired")
	assert.Empty(t, store.orders)
}

func TestCreateFromCartSessionFailureCompensates(t *testing.T) {
	svc, store, _, payments, rec := testService()
	payments.session = nil
	payments.err = errors.New("gateway down")

	_, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "")
	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	require.NotEmpty(t, sagaErr.OrderID)

	// the order row survives in a cancelled, payment-failed state
	saved, gerr := store.Get(context.Background(), sagaErr.OrderID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusCancelled, saved.Status)
	assert.Equal(t, PaymentFailed, saved.PaymentStatus)

	assert.Empty(t, rec.byType(events.EventOrderCreated), "no order-created after compensation")
}

func TestCreateFromCartCartClearFailureIsTolerated(t *testing.T) {
	svc, store, cart, _, _ := testService()
	cart.clearErr = errors.New("cart unavailable")

	order, _, err := svc.CreateFromCart(context.Background(), "user-1", "token", "")
	require.NoError(t, err, "cart clear is best-effort")
	_, gerr := store.Get(context.Background(), order.ID)
	assert.NoError(t, gerr)
}

func TestCancelPendingOrder(t *testing.T) {
	svc, store, _, _, rec := testService()
	store.orders["o1"] = &Order{ID: "o1", UserID: "user-1", Status: StatusPending}

	order, err := svc.Cancel(context.Background(), "o1", "user")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, order.Status)
	require.NotEmpty(t, order.History)
	assert.Contains(t, order.History[len(order.History)-1].Note, "cancelled by user")

	require.Len(t, rec.byType(events.EventOrderCancelled), 1)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	svc, store, _, _, rec := testService()
	store.orders["o1"] = &Order{ID: "o1", UserID: "user-1", Status: StatusShipped}

	_, err := svc.Cancel(context.Background(), "o1", "user")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusShipped, store.orders["o1"].Status)
	assert.Empty(t, rec.msgs)
}

func TestUpdateStatusWalksGraph(t *testing.T) {
	svc, store, _, _, rec := testService()
	store.orders["o1"] = &Order{ID: "o1", UserID: "user-1", Status: StatusProcessing}

	order, err := svc.UpdateStatus(context.Background(), "o1", StatusShipped, "On the truck")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, order.Status)

	require.Len(t, rec.byType(events.EventOrderStatusChanged), 1)
	ship := rec.byType(events.TaskShippingNotification)
	require.Len(t, ship, 1)
	assert.Equal(t, events.TopicNotificationTasks, ship[0].topic)
	assert.Equal(t, "user-1", ship[0].key, "notification tasks partition by user")
}

func TestUpdateStatusDeliveredQueuesNotification(t *testing.T) {
	svc, store, _, _, rec := testService()
	store.orders["o1"] = &Order{ID: "o1", UserID: "user-1", Status: StatusShipped}

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusDelivered, "")
	require.NoError(t, err)
	require.Len(t, rec.byType(events.TaskDeliveryNotification), 1)
}

func TestUpdateStatusRejectsTeleport(t *testing.T) {
	svc, store, _, _, _ := testService()
	store.orders["o1"] = &Order{ID: "o1", UserID: "user-1", Status: StatusPending}

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusDelivered, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := testService()

	_, err := svc.UpdateStatus(context.Background(), "o1", Status("returned"), "")
	require.ErrorIs(t, err, ErrValidation)
}
