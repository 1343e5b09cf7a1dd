package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/models"
)

// MemoryStore keeps encoded session documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	log  *zap.Logger
}

func NewMemoryStore(log *zap.Logger) *MemoryStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryStore{docs: map[string][]byte{}, log: log}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data, m.log), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, s *models.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[id] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Len reports how many sessions are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
