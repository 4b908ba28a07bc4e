package analytics

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Store Store
}

func (h *Handler) Register(r *chi.Mux, authmw func(http.Handler) http.Handler) {
	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(authmw)
		r.Get("/summary", h.summary)
	})
}

// summary: event counts by type over a trailing window, admin only.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if !id.IsAdmin() {
		httpx.WriteError(w, http.StatusForbidden, "admin only")
		return
	}

	window := 24 * time.Hour
	if s := r.URL.Query().Get("window"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			window = d
		}
	}

	counts, err := h.Store.CountByType(r.Context(), time.Now().Add(-window))
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"window": window.String(),
		"counts": counts,
	})
}
