package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/models"
)

func (h *Handler) HealthHandler(rw http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(rw, code, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) PingHandler(rw http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusOK)
}
