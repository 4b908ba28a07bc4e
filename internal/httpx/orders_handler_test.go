package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	orders map[string]*orders.Order
}

func (f *fakeOrderStore) Create(_ context.Context, o *orders.Order) error {
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderStore) Update(_ context.Context, o *orders.Order) error {
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, id string) (*orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) FindBySession(_ context.Context, _ string) (*orders.Order, error) {
	return nil, orders.ErrNotFound
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID string, _ orders.Status, _, _ int) ([]orders.Order, int, error) {
	var out []orders.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func identityMW(id auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func statusRequest(t *testing.T, store *fakeOrderStore, id auth.Identity, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	h := &OrdersHandler{Svc: &orders.Service{Store: store}}
	r := chi.NewRouter()
	h.Register(r, identityMW(id))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID+"/status", nil))
	return rec
}

func TestGetOrderStatusOwner(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"o1": {ID: "o1", UserID: "user-1", Status: orders.StatusProcessing, PaymentStatus: orders.PaymentPaid},
	}}

	rec := statusRequest(t, store, auth.Identity{UserID: "user-1", Role: "customer"}, "o1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "paid", body["payment_status"])
}

func TestGetOrderStatusForbiddenForOtherUser(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"o1": {ID: "o1", UserID: "user-1", Status: orders.StatusProcessing, PaymentStatus: orders.PaymentPaid},
	}}

	rec := statusRequest(t, store, auth.Identity{UserID: "user-2", Role: "customer"}, "o1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetOrderStatusAdminBypassesOwnership(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*orders.Order{
		"o1": {ID: "o1", UserID: "user-1", Status: orders.StatusShipped, PaymentStatus: orders.PaymentPaid},
	}}

	rec := statusRequest(t, store, auth.Identity{UserID: "admin-1", Role: "admin"}, "o1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrderStatusNotFound(t *testing.T) {
	store := &fakeOrderStore{orders: map[string]*orders.Order{}}

	rec := statusRequest(t, store, auth.Identity{UserID: "user-1", Role: "customer"}, "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
