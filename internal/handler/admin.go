package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/service"
)

func (h *Handler) ListUsersHandler(rw http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		h.writeError(rw, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(rw, http.StatusOK, users)
}

func (h *Handler) CreateUserHandler(rw http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			h.writeError(rw, http.StatusBadRequest, "invalid username")
		case errors.Is(err, service.ErrWeakPassword):
			h.writeError(rw, http.StatusBadRequest, "password must be at least 8 characters")
		case errors.Is(err, service.ErrUsernameTaken):
			h.writeError(rw, http.StatusConflict, "username already taken")
		default:
			h.logger.Error("Failed to create user", zap.Error(err))
			h.writeError(rw, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(rw, http.StatusCreated, user)
}

func (h *Handler) DeleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.users.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.writeError(rw, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("Failed to delete user",
			zap.String("userID", userID),
			zap.Error(err))
		h.writeError(rw, http.StatusInternalServerError, "internal server error")
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListURLsHandler(rw http.ResponseWriter, r *http.Request) {
	mappings, err := h.shortener.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list URLs", zap.Error(err))
		h.writeError(rw, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(rw, http.StatusOK, mappings)
}
