package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/repository"
)

func newTestUsers(t *testing.T) (*Users, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	sessions := auth.NewSessions("test-secret", time.Hour, store)
	return NewUsers(store, sessions, zap.NewNop()), store
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{name: "valid", username: "alice", password: "correct-horse"},
		{name: "username normalized", username: "  Bob42  ", password: "correct-horse"},
		{name: "username too short", username: "ab", password: "correct-horse", want: ErrInvalidUsername},
		{name: "username with spaces", username: "has space", password: "correct-horse", want: ErrInvalidUsername},
		{name: "weak password", username: "carol", password: "short", want: ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, _ := newTestUsers(t)

			resp, err := users.Register(context.Background(), tt.username, tt.password)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, resp.ID)
			assert.False(t, resp.IsAdmin)
			assert.True(t, resp.IsActive)
		})
	}
}

func TestRegisterUsernameLowercased(t *testing.T) {
	users, _ := newTestUsers(t)

	resp, err := users.Register(context.Background(), "Alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	users, _ := newTestUsers(t)
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, err = users.Register(ctx, "ALICE", "other-password")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	users, store := newTestUsers(t)
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	token, err := users.Login(ctx, "Alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	_, err = users.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Deactivated users cannot log in even with the right password.
	u, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, store.DeleteUser(ctx, u.ID))
	u.IsActive = false
	require.NoError(t, store.CreateUser(ctx, u))

	_, err = users.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserGrantsAdmin(t *testing.T) {
	users, _ := newTestUsers(t)

	resp, err := users.CreateUser(context.Background(), "root", "correct-horse", true)
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)
}

func TestDeleteUser(t *testing.T) {
	users, _ := newTestUsers(t)
	ctx := context.Background()

	resp, err := users.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, resp.ID))
	assert.ErrorIs(t, users.Delete(ctx, resp.ID), ErrUserNotFound)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
