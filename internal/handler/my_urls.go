package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/middleware"
)

func (h *Handler) MyURLsHandler(rw http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(rw, http.StatusUnauthorized, "unauthorized")
		return
	}

	mappings, err := h.shortener.ListByOwner(r.Context(), ident.UserID)
	if err != nil {
		h.logger.Error("Failed to list user URLs", zap.Error(err))
		h.writeError(rw, http.StatusInternalServerError, "internal server error")
		return
	}

	if len(mappings) == 0 {
		rw.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(rw, http.StatusOK, mappings)
}
