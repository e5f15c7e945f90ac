package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Store that forgets everything when the process exits.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
	byURL map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		users: map[string]User{},
		byURL: map[string]string{},
	}
}

func (m *Memory) Find(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &u, nil
}

func (m *Memory) FindByURL(ctx context.Context, url string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byURL[url]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return m.Find(ctx, id)
}

func (m *Memory) Create(_ context.Context, url string, now time.Time) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byURL[url]; ok {
		u := m.users[id]
		return &u, nil
	}

	u := User{
		ID:        uuid.NewString(),
		URL:       url,
		CreatedAt: now,
		LastLogin: now,
	}
	m.users[u.ID] = u
	m.byURL[url] = u.ID

	return &u, nil
}

func (m *Memory) Save(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}

	m.users[u.ID] = *u
	m.byURL[u.URL] = u.ID
	return nil
}

var _ Store = (*Memory)(nil)
