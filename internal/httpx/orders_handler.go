package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/orders"
	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrdersHandler struct {
	Svc   *orders.Service
	Redis *redis.Client
}

type createOrderReq struct {
	CouponCode string `json:"coupon_code,omitempty"`
}

type createOrderResp struct {
	Order   *orders.Order `json:"order"`
	Payment struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	} `json:"payment"`
}

type updateStatusReq struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authmw)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/status", h.getOrderStatus)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Patch("/{id}/status", h.updateStatus)
		r.Get("/user/{userId}", h.listUserOrders)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req createOrderReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body = no coupon
	}

	order, sess, err := h.Svc.CreateFromCart(r.Context(), id.UserID, auth.TokenFromContext(r.Context()), req.CouponCode)
	if err != nil {
		var sagaErr *orders.SagaError
		switch {
		case errors.Is(err, orders.ErrValidation):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &sagaErr):
			// partially created: hand the cancelled order id back
			WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error":    "failed to create payment session",
				"order_id": sagaErr.OrderID,
			})
		default:
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := createOrderResp{Order: order}
	resp.Payment.SessionID = sess.ID
	resp.Payment.URL = sess.URL
	WriteJSON(w, http.StatusCreated, resp)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	order, err := h.Svc.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !id.IsAdmin() && order.UserID != id.UserID {
		WriteError(w, http.StatusForbidden, "not your order")
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

// cachedStatus is what getOrderStatus keeps in redis. The owner id rides
// along so a cache hit can still be authorized; it never leaves the server.
type cachedStatus struct {
	UserID        string               `json:"user_id"`
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

type orderStatusResp struct {
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

// getOrderStatus is the read-heavy endpoint: cache first, DB on miss.
// The cache copy carries its own TTL and is never the write-of-record.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "id")
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)

	if h.Redis != nil {
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			var cs cachedStatus
			if err := json.Unmarshal([]byte(s), &cs); err == nil {
				if !id.IsAdmin() && cs.UserID != id.UserID {
					WriteError(w, http.StatusForbidden, "not your order")
					return
				}
				WriteJSON(w, http.StatusOK, orderStatusResp{Status: cs.Status, PaymentStatus: cs.PaymentStatus})
				return
			}
		}
	}

	order, err := h.Svc.Store.Get(r.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !id.IsAdmin() && order.UserID != id.UserID {
		WriteError(w, http.StatusForbidden, "not your order")
		return
	}

	if h.Redis != nil {
		b, _ := json.Marshal(cachedStatus{UserID: order.UserID, Status: order.Status, PaymentStatus: order.PaymentStatus})
		_ = h.Redis.Set(r.Context(), key, b, redisx.TTLStatusCache).Err()
	}
	WriteJSON(w, http.StatusOK, orderStatusResp{Status: order.Status, PaymentStatus: order.PaymentStatus})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "id")

	order, err := h.Svc.Store.Get(r.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !id.IsAdmin() && order.UserID != id.UserID {
		WriteError(w, http.StatusForbidden, "not your order")
		return
	}

	byWhom := "user"
	if id.IsAdmin() {
		byWhom = "admin"
	}
	order, err = h.Svc.Cancel(r.Context(), orderID, byWhom)
	if errors.Is(err, orders.ErrInvalidTransition) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if !id.IsAdmin() {
		WriteError(w, http.StatusForbidden, "admin only")
		return
	}

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	order, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), orders.Status(req.Status), req.Note)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		WriteError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrValidation), errors.Is(err, orders.ErrInvalidTransition):
		WriteError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		WriteJSON(w, http.StatusOK, order)
	}
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	userID := chi.URLParam(r, "userId")
	if !id.IsAdmin() && userID != id.UserID {
		WriteError(w, http.StatusForbidden, "not your orders")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	status := orders.Status(r.URL.Query().Get("status"))

	list, total, err := h.Svc.Store.ListByUser(r.Context(), userID, status, limit, (page-1)*limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}
