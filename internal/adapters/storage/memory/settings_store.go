package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/studychat/internal/domain"
)

// SettingsStore is a simple in-memory implementation of domain.SettingsStore.
// It is NOT persistent and is only suitable for development and tests.
type SettingsStore struct {
	mu      sync.RWMutex
	records map[string]domain.APIKeys
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		records: make(map[string]domain.APIKeys),
	}
}

func (s *SettingsStore) ReadSettings(ctx context.Context) (*domain.APIKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.records[domain.SettingsRecordKey]
	return &keys, nil
}

func (s *SettingsStore) WriteSettings(ctx context.Context, keys *domain.APIKeys) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[domain.SettingsRecordKey] = *keys
	return nil
}
