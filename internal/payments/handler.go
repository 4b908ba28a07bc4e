package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Svc            *Service
	InternalSecret string
}

type checkoutReq struct {
	OrderID    string         `json:"order_id,omitempty"`
	Items      []CheckoutItem `json:"items"`
	CouponCode string         `json:"coupon_code,omitempty"`
}

func (h *Handler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(authmw)
		r.Post("/create-checkout-session", h.createCheckout)
		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/{id}", h.getTransaction)
	})
	// provider event effects arrive over the internal network, not from end users
	r.Post("/internal/payments/provider-events", h.providerEvent)
}

func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid or empty items")
		return
	}

	t, err := h.Svc.CreateCheckout(r.Context(), id.UserID, req.OrderID, req.Items)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":           t.SessionID,
		"url":          "https://checkout.example.com/pay/" + t.SessionID,
		"total_amount": t.Amount,
	})
}

func (h *Handler) providerEvent(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Internal-Secret") != h.InternalSecret {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	var ev ProviderEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if ev.ID == "" || ev.Type == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id and type are required")
		return
	}
	if err := h.Svc.ApplyProviderEvent(r.Context(), ev); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	list, err := h.Svc.Store.ListByUser(r.Context(), id.UserID, limit, (page-1)*limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	t, err := h.Svc.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !id.IsAdmin() && t.UserID != id.UserID {
		httpx.WriteError(w, http.StatusForbidden, "not your transaction")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
