package repository

import (
	"context"
	"errors"
	"time"

	"github.com/casimirlb/shortener/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCodeTaken     = errors.New("short code already exists")
	ErrUsernameTaken = errors.New("username already exists")
)

// Store is the durable state behind the service layer. Short-code
// uniqueness is enforced here (unique constraint or store lock), never
// by a check-then-insert in callers.
type Store interface {
	CreateMapping(ctx context.Context, m *models.Mapping) error
	GetMapping(ctx context.Context, shortCode string) (*models.Mapping, error)
	// IncrementClicks atomically bumps the click count of a live mapping
	// and returns its original URL. ErrNotFound covers both absent and
	// expired mappings; callers distinguish the two with GetMapping.
	IncrementClicks(ctx context.Context, shortCode string, now time.Time) (string, error)
	DeleteMapping(ctx context.Context, shortCode string) error
	ListMappingsByOwner(ctx context.Context, ownerID string) ([]models.Mapping, error)
	ListAllMappings(ctx context.Context) ([]models.Mapping, error)
	MappingTotals(ctx context.Context) (urls int64, clicks int64, err error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
