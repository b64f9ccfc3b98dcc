package credentials

import (
	"context"
	"sync"
)

// Store persists the current session. Get returns nil values, not an error,
// when nothing is stored.
type Store interface {
	Get(ctx context.Context) (*Credential, *Principal, error)
	Set(ctx context.Context, cred *Credential, principal *Principal) error
	Clear(ctx context.Context) error
	// Name identifies the backend in logs.
	Name() string
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	cred      *Credential
	principal *Principal
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*Credential, *Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.Clone(), m.principal.Clone(), nil
}

func (m *MemoryStore) Set(ctx context.Context, cred *Credential, principal *Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cred, m.principal = cred.Clone(), principal.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.cred, m.principal = nil, nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Name() string {
	return "MemoryStore"
}
