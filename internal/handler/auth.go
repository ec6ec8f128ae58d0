package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) RegisterHandler(rw http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			h.writeError(rw, http.StatusBadRequest, "invalid username")
		case errors.Is(err, service.ErrWeakPassword):
			h.writeError(rw, http.StatusBadRequest, "password must be at least 8 characters")
		case errors.Is(err, service.ErrUsernameTaken):
			h.writeError(rw, http.StatusConflict, "username already taken")
		default:
			h.logger.Error("Failed to register user", zap.Error(err))
			h.writeError(rw, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(rw, http.StatusCreated, user)
}

func (h *Handler) LoginHandler(rw http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(rw, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("Failed to log in user", zap.Error(err))
		h.writeError(rw, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(rw, http.StatusOK, token)
}
