package repository

import (
	"context"
	"sync"
	"time"

	"github.com/casimirlb/shortener/internal/models"
)

// MemoryStore keeps all state in process memory. It backs tests and
// DSN-less development runs. The mutex makes check-and-insert atomic,
// standing in for the unique constraint the Postgres store relies on.
type MemoryStore struct {
	mu          sync.RWMutex
	mappings    map[string]*models.Mapping
	usersByID   map[string]*models.User
	usersByName map[string]*models.User
	nextID      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings:    make(map[string]*models.Mapping),
		usersByID:   make(map[string]*models.User),
		usersByName: make(map[string]*models.User),
	}
}

func (s *MemoryStore) CreateMapping(_ context.Context, m *models.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mappings[m.ShortCode]; exists {
		return ErrCodeTaken
	}

	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	m.ClickCount = 0

	stored := *m
	s.mappings[m.ShortCode] = &stored

	return nil
}

func (s *MemoryStore) GetMapping(_ context.Context, shortCode string) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.mappings[shortCode]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *m
	return &copied, nil
}

func (s *MemoryStore) IncrementClicks(_ context.Context, shortCode string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.mappings[shortCode]
	if !exists || !m.Live(now) {
		return "", ErrNotFound
	}

	m.ClickCount++
	return m.OriginalURL, nil
}

func (s *MemoryStore) DeleteMapping(_ context.Context, shortCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mappings[shortCode]; !exists {
		return ErrNotFound
	}
	delete(s.mappings, shortCode)

	return nil
}

func (s *MemoryStore) ListMappingsByOwner(_ context.Context, ownerID string) ([]models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mappings []models.Mapping
	for _, m := range s.mappings {
		if m.OwnerID == ownerID {
			mappings = append(mappings, *m)
		}
	}

	return mappings, nil
}

func (s *MemoryStore) ListAllMappings(_ context.Context) ([]models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mappings := make([]models.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		mappings = append(mappings, *m)
	}

	return mappings, nil
}

func (s *MemoryStore) MappingTotals(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clicks int64
	for _, m := range s.mappings {
		clicks += m.ClickCount
	}

	return int64(len(s.mappings)), clicks, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[u.Username]; exists {
		return ErrUsernameTaken
	}

	u.CreatedAt = time.Now()
	stored := *u
	s.usersByID[u.ID] = &stored
	s.usersByName[u.Username] = &stored

	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.usersByID[id]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.usersByName[username]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *u
	return &copied, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.usersByID))
	for _, u := range s.usersByID {
		users = append(users, *u)
	}

	return users, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usersByID[id]
	if !exists {
		return ErrNotFound
	}
	delete(s.usersByID, id)
	delete(s.usersByName, u.Username)

	return nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.usersByID)), nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
