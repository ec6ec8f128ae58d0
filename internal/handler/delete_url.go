package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/middleware"
	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) DeleteURLHandler(rw http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(rw, http.StatusUnauthorized, "unauthorized")
		return
	}

	shortCode := chi.URLParam(r, "shortCode")

	if err := h.shortener.Delete(r.Context(), ident, shortCode); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			h.writeError(rw, http.StatusNotFound, "short url not found")
		case errors.Is(err, service.ErrForbidden):
			h.writeError(rw, http.StatusForbidden, "forbidden")
		default:
			h.logger.Error("Failed to delete short URL",
				zap.String("shortCode", shortCode),
				zap.Error(err))
			h.writeError(rw, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}
