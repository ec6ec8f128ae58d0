package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) RedirectHandler(rw http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		http.Error(rw, "Empty short url", http.StatusBadRequest)
		return
	}

	originalURL, err := h.shortener.Resolve(r.Context(), shortCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(rw, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrExpired):
			http.Error(rw, "Gone", http.StatusGone)
		default:
			h.logger.Error("Failed to resolve short URL",
				zap.String("shortCode", shortCode),
				zap.Error(err))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.metrics.RecordRedirect()
	rw.Header().Set("Location", originalURL)
	rw.WriteHeader(http.StatusTemporaryRedirect)
}
