package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/metrics"
	"github.com/casimirlb/shortener/internal/middleware"
	"github.com/casimirlb/shortener/internal/ratelimit"
	"github.com/casimirlb/shortener/internal/repository"
	"github.com/casimirlb/shortener/internal/service"
)

const (
	testBaseURL     = "http://localhost:8080"
	testAPIKey      = "service-key"
	testSlackSecret = "8f742231b10e8888abcd99yyyzzz85a5"
)

type testEnv struct {
	router   http.Handler
	store    *repository.MemoryStore
	users    *service.Users
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	sessions := auth.NewSessions("test-secret", time.Hour, store)
	apiKey := auth.NewAPIKey(testAPIKey, false)
	guard := auth.NewGuard(sessions, apiKey)
	verifier := auth.NewSlackVerifier(testSlackSecret, false)

	limiter := ratelimit.NewMemoryLimiter(1000, 10000)
	t.Cleanup(limiter.Stop)

	m := metrics.New()
	m.RegisterStoreCollector(store)

	checker := service.NewURLChecker(false)
	shortener := service.NewShortener(store, checker, testBaseURL, logger)
	users := service.NewUsers(store, sessions, logger)
	slack := service.NewSlackDispatcher(shortener, store, testBaseURL, logger)

	h := NewHandler(shortener, users, slack, verifier, m, store, logger)

	router := h.SetupRouter(Middlewares{
		Auth:       middleware.Authenticate(guard, logger),
		AdminOnly:  middleware.RequireAdmin,
		APIKeyOnly: middleware.RequireAPIKey(apiKey),
		RateLimit:  middleware.RateLimit(limiter, logger, m),
	})

	return &testEnv{
		router:   router,
		store:    store,
		users:    users,
		sessions: sessions,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// loginAs registers the user if needed and returns a bearer token.
func (e *testEnv) loginAs(t *testing.T, username, password string, isAdmin bool) string {
	t.Helper()
	ctx := context.Background()

	if _, err := e.store.GetUserByUsername(ctx, username); err != nil {
		_, err := e.users.CreateUser(ctx, username, password, isAdmin)
		require.NoError(t, err)
	}

	token, err := e.users.Login(ctx, username, password)
	require.NoError(t, err)
	return token.Token
}

func jsonHeaders(extra map[string]string) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}
