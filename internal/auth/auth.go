package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/casimirlb/shortener/internal/models"
)

// ErrUnauthenticated is the only error surfaced for any credential
// failure. Callers must not reveal which scheme or check failed.
var ErrUnauthenticated = errors.New("unauthorized")

const tokenIssuer = "url-shortener"

// ServiceUserID is the synthetic owner recorded for mappings created
// with the static API key.
const ServiceUserID = "service"

// Identity is the resolved caller of a request.
type Identity struct {
	UserID   string
	Username string
	IsAdmin  bool
	Service  bool
}

type sessionClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// UserSource is the subset of the store needed to confirm a session's
// user still exists and is active.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions issues and verifies stateless bearer tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	users  UserSource
}

func NewSessions(secret string, ttl time.Duration, users UserSource) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
	}
}

// Issue signs a token for the user. The token carries enough claims to
// be verified without a store lookup; the user's active flag is still
// re-checked on every resolve.
func (s *Sessions) Issue(u *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Resolve verifies a bearer token and yields the caller identity.
func (s *Sessions) Resolve(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	u, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil || !u.IsActive {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	}, nil
}

// APIKey authenticates service callers by a static shared secret.
type APIKey struct {
	key    []byte
	bypass bool
}

// NewAPIKey builds the key check. bypass disables the check entirely
// and must only be set for development runs; the caller is responsible
// for logging that switch loudly at startup.
func NewAPIKey(key string, bypass bool) *APIKey {
	return &APIKey{
		key:    []byte(key),
		bypass: bypass,
	}
}

func (a *APIKey) Bypass() bool {
	return a.bypass
}

func (a *APIKey) Resolve(provided string) (*Identity, error) {
	if a.bypass {
		return &Identity{UserID: ServiceUserID, Username: ServiceUserID, Service: true}, nil
	}
	if len(a.key) == 0 {
		return nil, ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(provided), a.key) != 1 {
		return nil, ErrUnauthenticated
	}

	return &Identity{UserID: ServiceUserID, Username: ServiceUserID, Service: true}, nil
}

// Guard resolves a request to an identity using whichever credential
// scheme its headers carry: a bearer session token or a static API
// key. The signed-webhook scheme is handled separately because it
// needs the raw request body.
type Guard struct {
	sessions *Sessions
	apiKey   *APIKey
}

func NewGuard(sessions *Sessions, apiKey *APIKey) *Guard {
	return &Guard{
		sessions: sessions,
		apiKey:   apiKey,
	}
}

func (g *Guard) Resolve(ctx context.Context, r *http.Request) (*Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, ErrUnauthenticated
		}
		return g.sessions.Resolve(ctx, token)
	}

	if key := r.Header.Get("X-API-Key"); key != "" || g.apiKey.Bypass() {
		return g.apiKey.Resolve(key)
	}

	return nil, ErrUnauthenticated
}
