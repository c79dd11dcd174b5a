// Package localstore holds the small amount of per-visitor state the front
// end keeps between screens: who is signed in and the token used to reach the
// bills API.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/JoshUrdnb/Billed/user"
)

const (
	UserKey  = "user"
	TokenKey = "jwt"
)

var ErrNoUser = errors.New("no user signed in")

type Store interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ParseError reports a stored user record that cannot be used.
type ParseError struct {
	Key    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %q item: %s", e.Key, e.Reason)
}

// LoadUser decodes the signed-in user. It returns ErrNoUser when nobody is
// signed in and a *ParseError when the stored record is unusable.
func LoadUser(ctx context.Context, s Store) (user.Current, error) {
	raw, ok, err := s.GetItem(ctx, UserKey)
	if err != nil {
		return user.Current{}, fmt.Errorf("reading user item: %w", err)
	}
	if !ok || raw == "" || raw == "null" {
		return user.Current{}, ErrNoUser
	}

	var u user.Current
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return user.Current{}, &ParseError{Key: UserKey, Reason: err.Error()}
	}
	if !u.Type.Valid() {
		return user.Current{}, &ParseError{Key: UserKey, Reason: fmt.Sprintf("unknown user type %q", u.Type)}
	}
	return u, nil
}

// SaveUser stores u as the signed-in user.
func SaveUser(ctx context.Context, s Store, u user.Current) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.SetItem(ctx, UserKey, string(raw))
}

// Memory is a Store kept in process memory.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.items)
	return nil
}

// Snapshot copies the current items.
func (m *Memory) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.items)
}
