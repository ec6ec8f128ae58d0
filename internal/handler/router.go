package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middlewares bundles the cross-cutting handlers the router mounts per
// route group. Keeping them injectable lets tests wire a bare router.
type Middlewares struct {
	Logger     func(http.Handler) http.Handler
	Auth       func(http.Handler) http.Handler
	AdminOnly  func(http.Handler) http.Handler
	APIKeyOnly func(http.Handler) http.Handler
	RateLimit  func(http.Handler) http.Handler
}

func (h *Handler) SetupRouter(mw Middlewares) *chi.Mux {
	r := chi.NewRouter()

	if mw.Logger != nil {
		r.Use(mw.Logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.With(mw.APIKeyOnly).Get("/metrics", h.metrics.Handler().ServeHTTP)
		r.With(mw.RateLimit).Post("/slack/events", h.SlackHandler)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit)
			r.Post("/register", h.RegisterHandler)
			r.Post("/login", h.LoginHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth, mw.RateLimit)
			r.Post("/shorten", h.APIShortenHandler)
			r.Get("/stats/{shortCode}", h.StatsHandler)
			r.Get("/my-urls", h.MyURLsHandler)
			r.Delete("/urls/{shortCode}", h.DeleteURLHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mw.AdminOnly)
				r.Get("/users", h.ListUsersHandler)
				r.Post("/users", h.CreateUserHandler)
				r.Delete("/users/{userID}", h.DeleteUserHandler)
				r.Get("/urls", h.ListURLsHandler)
			})
		})
	})

	r.Get("/ping", h.PingHandler)
	r.With(mw.RateLimit).Get("/{shortCode}", h.RedirectHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	return r
}
