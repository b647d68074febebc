package user

import (
	"context"
	"strings"
	"sync"

	"teamdns/internal/auth/models"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users behind one RWMutex. Username and email
// indexes are lower-cased so uniqueness is case-insensitive.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.User
	byUsername map[string]id.UserID
	byEmail    map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
		byEmail:    make(map[string]id.UserID),
	}
}

// CreateIfAvailable checks username then email and inserts, all under the
// write lock, so concurrent registrations cannot both pass the check.
func (s *InMemoryUserStore) CreateIfAvailable(_ context.Context, user *models.User) error {
	usernameKey := strings.ToLower(user.Username)
	emailKey := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[usernameKey]; taken {
		return ErrUsernameTaken
	}
	if _, taken := s.byEmail[emailKey]; taken {
		return ErrEmailTaken
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byUsername[usernameKey] = user.ID
	s.byEmail[emailKey] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemoryUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	userID, ok := s.byUsername[strings.ToLower(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, userID)
}

func (s *InMemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	userID, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, userID)
}

// Execute applies mutate to the stored user under the write lock. Username
// and email are immutable through this path.
func (s *InMemoryUserStore) Execute(_ context.Context, userID id.UserID, mutate func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *u
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.Username = u.Username
	working.Email = u.Email
	s.users[userID] = &working
	out := working
	return &out, nil
}
