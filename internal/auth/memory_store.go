package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type refreshTokenRecord struct {
	expiresAt time.Time
	revoked   bool
}

// MemoryStore keeps users and refresh tokens in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]User
	refreshTokens map[string]refreshTokenRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]User),
		refreshTokens: make(map[string]refreshTokenRecord),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, email, passwordHash string, displayName *string, isAdmin bool) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[email]; ok {
		return User{}, ErrEmailAlreadyExists
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		IsAdmin:      isAdmin,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[email] = user
	return user, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *MemoryStore) StoreRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshTokens[tokenKey(userID, tokenHash)] = refreshTokenRecord{expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) RevokeToken(_ context.Context, userID uuid.UUID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tokenKey(userID, tokenHash)
	if record, ok := m.refreshTokens[key]; ok {
		record.revoked = true
		m.refreshTokens[key] = record
	}
	return nil
}

func tokenKey(userID uuid.UUID, tokenHash string) string {
	return userID.String() + ":" + tokenHash
}
