package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/config"
	"github.com/casimirlb/shortener/internal/handler"
	"github.com/casimirlb/shortener/internal/metrics"
	"github.com/casimirlb/shortener/internal/middleware"
	"github.com/casimirlb/shortener/internal/ratelimit"
	"github.com/casimirlb/shortener/internal/repository"
	"github.com/casimirlb/shortener/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.ParseFlags()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	sugar.Infow("Starting URL shortener service",
		"server_address", cfg.ServerAddress,
		"base_url", cfg.BaseURL,
		"environment", cfg.Environment,
	)

	var store repository.Store
	if cfg.DatabaseDSN != "" {
		store, err = repository.NewPostgresStore(cfg.DatabaseDSN, logger)
		if err != nil {
			sugar.Fatalw("Failed to connect to database", "error", err.Error())
		}
	} else {
		sugar.Warnw("No database configured, using in-memory store; data will not survive restarts")
		store = repository.NewMemoryStore()
	}
	defer store.Close()

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitPerMinute, cfg.RateLimitPerHour)
		if err != nil {
			sugar.Fatalw("Failed to connect to redis", "error", err.Error())
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerHour)
	}
	defer limiter.Stop()

	apiKeyBypass := !cfg.Production() && cfg.APIKey == ""
	if apiKeyBypass {
		sugar.Warnw("API KEY AUTH DISABLED: no API_KEY set in development mode, any X-API-Key value is accepted")
	}

	slackSkip := !cfg.Production() && cfg.SlackSigningSecret == ""
	if slackSkip {
		sugar.Warnw("SLACK SIGNATURE VERIFICATION DISABLED: no SLACK_SIGNING_SECRET set in development mode")
	}

	sessions := auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL, store)
	apiKey := auth.NewAPIKey(cfg.APIKey, apiKeyBypass)
	guard := auth.NewGuard(sessions, apiKey)
	verifier := auth.NewSlackVerifier(cfg.SlackSigningSecret, slackSkip)

	m := metrics.New()
	m.RegisterStoreCollector(store)

	checker := service.NewURLChecker(cfg.Production())
	shortener := service.NewShortener(store, checker, cfg.BaseURL, logger)
	users := service.NewUsers(store, sessions, logger)
	slack := service.NewSlackDispatcher(shortener, store, cfg.BaseURL, logger)

	h := handler.NewHandler(shortener, users, slack, verifier, m, store, logger)

	r := h.SetupRouter(handler.Middlewares{
		Logger:     middleware.Logger(logger, m),
		Auth:       middleware.Authenticate(guard, logger),
		AdminOnly:  middleware.RequireAdmin,
		APIKeyOnly: middleware.RequireAPIKey(apiKey),
		RateLimit:  middleware.RateLimit(limiter, logger, m),
	})

	sugar.Infow("Server starting", "address", cfg.ServerAddress)

	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		sugar.Fatalw(err.Error(), "event", "start server")
	}
}
