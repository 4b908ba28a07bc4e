package worker

import (
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	"github.com/go-chi/chi/v5"
)

// Handler exposes the notification read surface.
type Handler struct {
	Notifications NotificationStore
}

func (h *Handler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authmw)
		r.Get("/", h.list)
		r.Post("/{id}/read", h.markRead)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	list, err := h.Notifications.ListByUser(r.Context(), id.UserID, limit, (page-1)*limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []Notification{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := h.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), id.UserID); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
