package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

var errClosed = errors.New("pebble settings store is closed")

// SettingsStore keeps the settings record in a local pebble database.
// Writes use pebble.Sync so a returned WriteSettings is durable.
type SettingsStore struct {
	mu sync.RWMutex // guards db against Close
	db *pebble.DB
}

// Open opens (or creates) the database at dir.
func Open(dir string) (*SettingsStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble settings store needs a directory")
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble at %s: %w", dir, err)
	}

	observability.Logger().Debug("pebble_open", "path", dir)
	return &SettingsStore{db: db}, nil
}

func (s *SettingsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SettingsStore) ReadSettings(ctx context.Context) (*domain.APIKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errClosed
	}

	v, closer, err := s.db.Get([]byte(domain.SettingsRecordKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return &domain.APIKeys{}, nil
		}
		return nil, fmt.Errorf("pebble get %s: %w", domain.SettingsRecordKey, err)
	}
	defer closer.Close()

	var keys domain.APIKeys
	if err := json.Unmarshal(v, &keys); err != nil {
		return nil, fmt.Errorf("decode %s: %w", domain.SettingsRecordKey, err)
	}
	return &keys, nil
}

func (s *SettingsStore) WriteSettings(ctx context.Context, keys *domain.APIKeys) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return errClosed
	}

	raw, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode %s: %w", domain.SettingsRecordKey, err)
	}

	if err := s.db.Set([]byte(domain.SettingsRecordKey), raw, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", domain.SettingsRecordKey, err)
	}
	return nil
}
