package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/metrics"
	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/repository"
	"github.com/casimirlb/shortener/internal/service"
)

type Handler struct {
	shortener *service.Shortener
	users     *service.Users
	slack     *service.SlackDispatcher
	verifier  *auth.SlackVerifier
	metrics   *metrics.Metrics
	store     repository.Store
	logger    *zap.Logger
}

func NewHandler(
	shortener *service.Shortener,
	users *service.Users,
	slack *service.SlackDispatcher,
	verifier *auth.SlackVerifier,
	m *metrics.Metrics,
	store repository.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		shortener: shortener,
		users:     users,
		slack:     slack,
		verifier:  verifier,
		metrics:   m,
		store:     store,
		logger:    logger,
	}
}

func (h *Handler) writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(rw http.ResponseWriter, status int, msg string) {
	h.writeJSON(rw, status, models.ErrorResponse{Error: msg})
}

func (h *Handler) decodeJSON(rw http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		h.writeError(rw, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		h.writeError(rw, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
