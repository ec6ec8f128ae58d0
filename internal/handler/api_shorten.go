package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/middleware"
	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) APIShortenHandler(rw http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(rw, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ShortenRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	if req.URL == "" {
		h.writeError(rw, http.StatusBadRequest, "URL cannot be empty")
		return
	}

	resp, err := h.shortener.Create(r.Context(), ident.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			h.writeError(rw, http.StatusBadRequest, "invalid URL")
		case errors.Is(err, service.ErrBlockedURL):
			h.writeError(rw, http.StatusForbidden, "URL is not allowed")
		case errors.Is(err, service.ErrInvalidCode):
			h.writeError(rw, http.StatusBadRequest, "invalid custom code")
		case errors.Is(err, service.ErrInvalidExpiry):
			h.writeError(rw, http.StatusBadRequest, "expiration time is in the past")
		case errors.Is(err, service.ErrCodeTaken):
			h.writeError(rw, http.StatusConflict, "short code already taken")
		default:
			h.logger.Error("Failed to create short URL", zap.Error(err))
			h.writeError(rw, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.metrics.RecordShorten()
	h.writeJSON(rw, http.StatusCreated, resp)
}
