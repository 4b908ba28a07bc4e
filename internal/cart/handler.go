package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Store          *Store
	Publisher      events.Publisher
	InternalSecret string
	ServiceName    string
}

func (h *Handler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authmw)
		r.Get("/", h.getCart)
		r.Post("/items", h.addItem)
		r.Delete("/", h.clearCart)
	})
	r.Delete("/internal/cart/{userId}", h.clearInternal)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	c, err := h.Store.Get(r.Context(), id.UserID)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteJSON(w, http.StatusOK, &Cart{UserID: id.UserID, Items: []Item{}})
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if item.ProductID == "" || item.Quantity < 1 {
		httpx.WriteError(w, http.StatusBadRequest, "product_id and quantity>=1 are required")
		return
	}

	c, err := h.Store.Get(r.Context(), id.UserID)
	if errors.Is(err, ErrNotFound) {
		c = &Cart{UserID: id.UserID}
	} else if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, item)
	}

	if err := h.Store.Save(r.Context(), c); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Publisher.Publish(r.Context(), events.TopicAnalytics, id.UserID,
		events.New(events.EventCartItemAdded, h.ServiceName, id.UserID, map[string]any{
			"user_id":    id.UserID,
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
		}))
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := h.Store.Clear(r.Context(), id.UserID); err != nil && !errors.Is(err, ErrNotFound) {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// clearInternal is the service-to-service clear used by the payment
// completion path, gated by the shared secret instead of a user token.
func (h *Handler) clearInternal(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Internal-Secret") != h.InternalSecret {
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}
	userID := chi.URLParam(r, "userId")
	if err := h.Store.Clear(r.Context(), userID); err != nil && !errors.Is(err, ErrNotFound) {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
