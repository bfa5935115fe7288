// Package storage picks the settings backend named by the configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/PabloGalante/studychat/internal/adapters/storage/firestore"
	"github.com/PabloGalante/studychat/internal/adapters/storage/memory"
	"github.com/PabloGalante/studychat/internal/adapters/storage/pebble"
	"github.com/PabloGalante/studychat/internal/config"
	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

// OpenSettings opens the configured settings backend. The returned func
// releases it and is never nil when err is nil.
func OpenSettings(ctx context.Context, cfg *config.Config) (domain.SettingsStore, func(), error) {
	log := observability.LoggerFromContext(ctx).With("backend", cfg.SettingsBackend)

	switch cfg.SettingsBackend {
	case config.BackendFirestore:
		store, err := firestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("opening firestore settings: %w", err)
		}
		log.Info("settings storage ready", "project", cfg.GCPProjectID)
		return store, func() { _ = store.Close() }, nil

	case config.BackendPebble:
		store, err := pebble.Open(cfg.SettingsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening pebble settings: %w", err)
		}
		log.Info("settings storage ready", "path", cfg.SettingsPath)
		return store, func() { _ = store.Close() }, nil

	case config.BackendMemory:
		log.Info("settings storage ready, not persistent")
		return memory.NewSettingsStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}
