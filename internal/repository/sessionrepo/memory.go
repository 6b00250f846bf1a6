package sessionrepo

import (
	"context"
	"sync"
	"time"

	"drive360/internal/domain"
	"drive360/internal/errors"
)

type memoryEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// MemoryStore mantém as sessões no processo. Serve para desenvolvimento e testes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore cria o armazenamento. ttl 0 significa sem expiração.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, s domain.Session) error {
	if !s.Authenticated() {
		return errors.NewValidationError("sessão incompleta não pode ser gravada.")
	}

	e := memoryEntry{fields: toFields(s)}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[Key(sessionID)] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (domain.Session, error) {
	key := Key(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return domain.AnonymousSession, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return domain.AnonymousSession, nil
	}

	s, partial := fromFields(e.fields)
	if partial {
		delete(m.entries, key)
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.entries, Key(sessionID))
	m.mu.Unlock()
	return nil
}

// Len devolve o número de sessões guardadas.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
