package storage

import (
	"context"
	"sync"

	"github.com/xaenox/intent-bot/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	entries []models.ConversationEntry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Append(ctx context.Context, entry *models.ConversationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(entry)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryStorage) History(ctx context.Context, limit int) ([]models.ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.ConversationEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
