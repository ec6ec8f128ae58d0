package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/repository"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	maxAttempts  = 5
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// Codes that would shadow routes or invite confusion.
var reservedCodes = map[string]bool{
	"api":     true,
	"admin":   true,
	"health":  true,
	"metrics": true,
	"ping":    true,
	"login":   true,
	"slack":   true,
	"www":     true,
}

// Shortener allocates short codes, resolves redirects and manages
// mappings. Uniqueness lives in the store; the generator only retries.
type Shortener struct {
	store   repository.Store
	checker *URLChecker
	baseURL string
	logger  *zap.Logger
	codeFn  func() (string, error)
}

func NewShortener(store repository.Store, checker *URLChecker, baseURL string, logger *zap.Logger) *Shortener {
	s := &Shortener{
		store:   store,
		checker: checker,
		baseURL: baseURL,
		logger:  logger,
	}
	s.codeFn = s.randomCode
	return s
}

func (s *Shortener) randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// Create validates the request and inserts a new mapping. A supplied
// custom code gets exactly one insert attempt; a random code is
// retried up to maxAttempts times on collision before giving up with
// ErrCodeSpaceExhausted.
func (s *Shortener) Create(ctx context.Context, ownerID string, req models.ShortenRequest) (*models.MappingResponse, error) {
	if err := s.checker.Validate(ctx, req.URL); err != nil {
		return nil, err
	}

	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvalidExpiry
	}

	if req.CustomCode != "" {
		return s.createCustom(ctx, ownerID, req)
	}
	return s.createRandom(ctx, ownerID, req)
}

func (s *Shortener) createCustom(ctx context.Context, ownerID string, req models.ShortenRequest) (*models.MappingResponse, error) {
	code := strings.TrimSpace(req.CustomCode)
	if !customCodePattern.MatchString(code) || reservedCodes[strings.ToLower(code)] {
		return nil, ErrInvalidCode
	}

	m := &models.Mapping{
		ShortCode:   code,
		OriginalURL: req.URL,
		OwnerID:     ownerID,
		ExpiresAt:   req.ExpiresAt,
	}

	if err := s.store.CreateMapping(ctx, m); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("create mapping: %w", err)
	}

	return s.toResponse(m), nil
}

func (s *Shortener) createRandom(ctx context.Context, ownerID string, req models.ShortenRequest) (*models.MappingResponse, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.codeFn()
		if err != nil {
			return nil, err
		}

		m := &models.Mapping{
			ShortCode:   code,
			OriginalURL: req.URL,
			OwnerID:     ownerID,
			ExpiresAt:   req.ExpiresAt,
		}

		err = s.store.CreateMapping(ctx, m)
		if err == nil {
			return s.toResponse(m), nil
		}
		if !errors.Is(err, repository.ErrCodeTaken) {
			return nil, fmt.Errorf("create mapping: %w", err)
		}

		s.logger.Warn("Short code collision, retrying",
			zap.String("shortCode", code),
			zap.Int("attempt", attempt+1))
	}

	s.logger.Error("Short code space exhausted",
		zap.Int("attempts", maxAttempts),
		zap.Int("codeLength", codeLength))
	return nil, ErrCodeSpaceExhausted
}

// Resolve walks the Lookup -> {NotFound | Expired | Live} state
// machine. On the live path the click increment and the URL read
// happen in one atomic store operation, so K concurrent redirects
// count exactly K clicks and expired mappings are never counted.
func (s *Shortener) Resolve(ctx context.Context, shortCode string) (string, error) {
	originalURL, err := s.store.IncrementClicks(ctx, shortCode, time.Now())
	if err == nil {
		return originalURL, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("increment clicks: %w", err)
	}

	m, err := s.store.GetMapping(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get mapping: %w", err)
	}
	if !m.Live(time.Now()) {
		return "", ErrExpired
	}

	return "", ErrNotFound
}

// Stats returns counters for a mapping to its owner or an admin.
func (s *Shortener) Stats(ctx context.Context, ident *auth.Identity, shortCode string) (*models.StatsResponse, error) {
	m, err := s.getOwned(ctx, ident, shortCode)
	if err != nil {
		return nil, err
	}

	return &models.StatsResponse{
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		ClickCount:  m.ClickCount,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// Delete removes a mapping on behalf of its owner or an admin.
func (s *Shortener) Delete(ctx context.Context, ident *auth.Identity, shortCode string) error {
	if _, err := s.getOwned(ctx, ident, shortCode); err != nil {
		return err
	}

	if err := s.store.DeleteMapping(ctx, shortCode); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete mapping: %w", err)
	}

	return nil
}

func (s *Shortener) getOwned(ctx context.Context, ident *auth.Identity, shortCode string) (*models.Mapping, error) {
	m, err := s.store.GetMapping(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mapping: %w", err)
	}

	if !ident.IsAdmin && (m.OwnerID == "" || m.OwnerID != ident.UserID) {
		return nil, ErrForbidden
	}

	return m, nil
}

// ListByOwner returns the caller's mappings, newest first.
func (s *Shortener) ListByOwner(ctx context.Context, ownerID string) ([]models.MappingResponse, error) {
	mappings, err := s.store.ListMappingsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return s.toResponses(mappings), nil
}

// ListAll returns every mapping. Admin only; the handler enforces it.
func (s *Shortener) ListAll(ctx context.Context) ([]models.MappingResponse, error) {
	mappings, err := s.store.ListAllMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return s.toResponses(mappings), nil
}

func (s *Shortener) toResponses(mappings []models.Mapping) []models.MappingResponse {
	responses := make([]models.MappingResponse, len(mappings))
	for i := range mappings {
		responses[i] = *s.toResponse(&mappings[i])
	}
	return responses
}

func (s *Shortener) toResponse(m *models.Mapping) *models.MappingResponse {
	shortURL, _ := url.JoinPath(s.baseURL, m.ShortCode)
	return &models.MappingResponse{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		ShortCode:   m.ShortCode,
		ShortURL:    shortURL,
		CreatedAt:   m.CreatedAt,
		ClickCount:  m.ClickCount,
		ExpiresAt:   m.ExpiresAt,
	}
}
