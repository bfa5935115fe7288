package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/studychat/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (STUDYCHAT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) settingsDoc() *firestore.DocumentRef {
	return s.client.Collection("settings").Doc(domain.SettingsRecordKey)
}

type settingsDoc struct {
	OpenAI string `firestore:"openai"`
	Gemini string `firestore:"gemini"`
}

// ─────────────────────────────────────────
// SettingsStore implementation
// ─────────────────────────────────────────

func (s *Store) ReadSettings(ctx context.Context) (*domain.APIKeys, error) {
	snap, err := s.settingsDoc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &domain.APIKeys{}, nil
		}
		return nil, fmt.Errorf("firestore ReadSettings: %w", err)
	}

	var doc settingsDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore ReadSettings decode: %w", err)
	}

	return &domain.APIKeys{OpenAI: doc.OpenAI, Gemini: doc.Gemini}, nil
}

func (s *Store) WriteSettings(ctx context.Context, keys *domain.APIKeys) error {
	doc := settingsDoc{
		OpenAI: keys.OpenAI,
		Gemini: keys.Gemini,
	}

	if _, err := s.settingsDoc().Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore WriteSettings: %w", err)
	}
	return nil
}
