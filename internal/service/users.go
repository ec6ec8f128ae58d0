package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/models"
	"github.com/casimirlb/shortener/internal/repository"
)

const (
	minPasswordLength = 8
	bcryptCost        = 12
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// Users handles registration, login and admin account management.
type Users struct {
	store    repository.Store
	sessions *auth.Sessions
	logger   *zap.Logger
}

func NewUsers(store repository.Store, sessions *auth.Sessions, logger *zap.Logger) *Users {
	return &Users{
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates an account. Usernames are stored lowercase.
func (u *Users) Register(ctx context.Context, username, password string) (*models.UserResponse, error) {
	return u.create(ctx, username, password, false)
}

// CreateUser is the admin variant of Register and may grant admin.
func (u *Users) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*models.UserResponse, error) {
	return u.create(ctx, username, password, isAdmin)
}

func (u *Users) create(ctx context.Context, username, password string, isAdmin bool) (*models.UserResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		IsActive:     true,
	}

	if err := u.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.logger.Info("User created",
		zap.String("userID", user.ID),
		zap.String("username", user.Username),
		zap.Bool("isAdmin", user.IsAdmin))

	return toUserResponse(user), nil
}

// Login checks credentials and issues a bearer token. Every failure
// mode collapses into ErrInvalidCredentials.
func (u *Users) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := u.store.GetUserByUsername(ctx, username)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		u.logger.Warn("Failed login attempt", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := u.sessions.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (u *Users) List(ctx context.Context) ([]models.UserResponse, error) {
	users, err := u.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	responses := make([]models.UserResponse, len(users))
	for i := range users {
		responses[i] = *toUserResponse(&users[i])
	}
	return responses, nil
}

func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	u.logger.Info("User deleted", zap.String("userID", id))
	return nil
}

func toUserResponse(u *models.User) *models.UserResponse {
	return &models.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
