package coupons

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	Store       Store
	Publisher   events.Publisher
	ServiceName string
}

type validateReq struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type validateResp struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
}

func (h *Handler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	// validation is called service-to-service during checkout, no user token
	r.Post("/api/coupons/validate", h.validate)
	r.Route("/api/coupons", func(r chi.Router) {
		r.Use(authmw)
		r.Post("/", h.create)
		r.Post("/{code}/redeem", h.redeem)
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.Store.FindByCode(r.Context(), req.Code)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteJSON(w, http.StatusOK, validateResp{Valid: false, Discount: decimal.Zero, Reason: "unknown coupon"})
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !c.IsValid(time.Now()) {
		httpx.WriteJSON(w, http.StatusOK, validateResp{Valid: false, Discount: decimal.Zero, Reason: "coupon expired or used up"})
		return
	}
	d := c.Discount(req.Amount)
	if d.IsZero() && req.Amount.LessThan(c.MinPurchase) {
		httpx.WriteJSON(w, http.StatusOK, validateResp{Valid: false, Discount: decimal.Zero, Reason: "below minimum purchase"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, validateResp{Valid: true, Discount: d})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if !id.IsAdmin() {
		httpx.WriteError(w, http.StatusForbidden, "admin only")
		return
	}

	var c Coupon
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.Code == "" || (c.Kind != KindPercentage && c.Kind != KindFixed) {
		httpx.WriteError(w, http.StatusBadRequest, "code and kind are required")
		return
	}
	if c.UsageLimit < 1 {
		c.UsageLimit = 1
	}
	c.Active = true
	c.CreatedBy = "admin"

	if err := h.Store.Create(r.Context(), &c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			httpx.WriteError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Publisher.Publish(r.Context(), events.TopicAnalytics, c.Code,
		events.New(events.EventCouponCreated, h.ServiceName, c.Code, events.CouponCreatedPayload{
			Code:   c.Code,
			UserID: c.UserID,
		}))
	httpx.WriteJSON(w, http.StatusCreated, &c)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	code := chi.URLParam(r, "code")

	err := h.Store.Redeem(r.Context(), code)
	if errors.Is(err, ErrExhausted) {
		httpx.WriteError(w, http.StatusConflict, "coupon usage limit reached")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Publisher.Publish(r.Context(), events.TopicAnalytics, id.UserID,
		events.New(events.EventCouponUsed, h.ServiceName, code, map[string]string{
			"code":    code,
			"user_id": id.UserID,
		}))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "coupon redeemed"})
}
