package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/middleware"
	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) StatsHandler(rw http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(rw, http.StatusUnauthorized, "unauthorized")
		return
	}

	shortCode := chi.URLParam(r, "shortCode")

	stats, err := h.shortener.Stats(r.Context(), ident, shortCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			h.writeError(rw, http.StatusNotFound, "short url not found")
		case errors.Is(err, service.ErrForbidden):
			h.writeError(rw, http.StatusForbidden, "forbidden")
		default:
			h.logger.Error("Failed to get stats",
				zap.String("shortCode", shortCode),
				zap.Error(err))
			h.writeError(rw, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(rw, http.StatusOK, stats)
}
