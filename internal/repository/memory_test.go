package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casimirlb/shortener/internal/models"
)

func TestMemoryStoreMappings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := &models.Mapping{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
		OwnerID:     "user-1",
	}
	require.NoError(t, store.CreateMapping(ctx, m))
	assert.NotZero(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	dup := &models.Mapping{ShortCode: "abc123", OriginalURL: "https://other.com"}
	err := store.CreateMapping(ctx, dup)
	assert.ErrorIs(t, err, ErrCodeTaken)

	got, err := store.GetMapping(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.OriginalURL)
	assert.Equal(t, "user-1", got.OwnerID)

	_, err = store.GetMapping(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteMapping(ctx, "abc123"))
	assert.ErrorIs(t, store.DeleteMapping(ctx, "abc123"), ErrNotFound)
}

func TestMemoryStoreIncrementClicks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	type want struct {
		url     string
		err     error
		clicks  int64
		hasItem bool
	}

	tests := []struct {
		name      string
		shortCode string
		expiresAt *time.Time
		lookup    string
		want      want
	}{
		{
			name:      "live mapping counts",
			shortCode: "live01",
			lookup:    "live01",
			want:      want{url: "https://example.com", clicks: 1, hasItem: true},
		},
		{
			name:      "expired mapping is not counted",
			shortCode: "gone01",
			expiresAt: ptrTime(now.Add(-time.Minute)),
			lookup:    "gone01",
			want:      want{err: ErrNotFound, clicks: 0, hasItem: true},
		},
		{
			name:   "missing mapping",
			lookup: "nosuch",
			want:   want{err: ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shortCode != "" {
				require.NoError(t, store.CreateMapping(ctx, &models.Mapping{
					ShortCode:   tt.shortCode,
					OriginalURL: "https://example.com",
					ExpiresAt:   tt.expiresAt,
				}))
			}

			url, err := store.IncrementClicks(ctx, tt.lookup, now)

			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.url, url)
			}

			if tt.want.hasItem {
				m, err := store.GetMapping(ctx, tt.lookup)
				require.NoError(t, err)
				assert.Equal(t, tt.want.clicks, m.ClickCount)
			}
		})
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &models.User{ID: "u1", Username: "alice", PasswordHash: "x", IsActive: true}
	require.NoError(t, store.CreateUser(ctx, u))

	err := store.CreateUser(ctx, &models.User{ID: "u2", Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	byID, err := store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, store.DeleteUser(ctx, "u1"))
	assert.ErrorIs(t, store.DeleteUser(ctx, "u1"), ErrNotFound)

	_, err = store.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTotals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{ShortCode: "a", OriginalURL: "https://a.example"}))
	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{ShortCode: "b", OriginalURL: "https://b.example"}))

	_, err := store.IncrementClicks(ctx, "a", time.Now())
	require.NoError(t, err)
	_, err = store.IncrementClicks(ctx, "a", time.Now())
	require.NoError(t, err)

	urls, clicks, err := store.MappingTotals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, urls)
	assert.EqualValues(t, 2, clicks)
}

func TestMemoryStoreListByOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{ShortCode: "a", OriginalURL: "https://a.example", OwnerID: "u1"}))
	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{ShortCode: "b", OriginalURL: "https://b.example", OwnerID: "u2"}))
	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{ShortCode: "c", OriginalURL: "https://c.example", OwnerID: "u1"}))

	mine, err := store.ListMappingsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := store.ListAllMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
