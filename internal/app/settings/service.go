package settings

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

// visibleSuffix is how many trailing characters of a key stay readable when masked.
const visibleSuffix = 4

// Service holds the logic of reading and saving the API key record.
type Service struct {
	store domain.SettingsStore
}

// NewService creates a settings service from a SettingsStore.
func NewService(store domain.SettingsStore) *Service {
	return &Service{
		store: store,
	}
}

// Get returns the stored keys. Unless reveal is set, every key is masked.
func (s *Service) Get(ctx context.Context, reveal bool) (*domain.APIKeys, error) {
	keys, err := s.store.ReadSettings(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to read settings", "error", err)
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if reveal {
		return keys, nil
	}
	return &domain.APIKeys{
		OpenAI: Mask(keys.OpenAI),
		Gemini: Mask(keys.Gemini),
	}, nil
}

// Save trims both keys and persists the record.
func (s *Service) Save(ctx context.Context, keys domain.APIKeys) (*domain.APIKeys, error) {
	clean := &domain.APIKeys{
		OpenAI: strings.TrimSpace(keys.OpenAI),
		Gemini: strings.TrimSpace(keys.Gemini),
	}

	if err := s.store.WriteSettings(ctx, clean); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to write settings", "error", err)
		return nil, fmt.Errorf("write settings: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("api keys saved",
		"openai_set", clean.OpenAI != "",
		"gemini_set", clean.Gemini != "",
	)
	return clean, nil
}

// Mask hides all but the last few characters of key.
func Mask(key string) string {
	n := utf8.RuneCountInString(key)
	if n == 0 {
		return ""
	}
	if n <= visibleSuffix {
		return strings.Repeat("•", n)
	}
	runes := []rune(key)
	return strings.Repeat("•", n-visibleSuffix) + string(runes[n-visibleSuffix:])
}
