package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/PabloGalante/studychat/internal/adapters/storage/memory"
	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := memory.NewSessionStore()
	sess := conversation.NewSession("s-1", "", nil, conversation.Options{})

	if err := store.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateSession(sess); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	got, err := store.GetSession("s-1")
	if err != nil || got != sess {
		t.Fatalf("GetSession returned %v, %v", got, err)
	}

	if _, err := store.DeleteSession("s-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession("s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.DeleteSession("s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreDeleteAll(t *testing.T) {
	store := memory.NewSessionStore()
	for _, id := range []domain.SessionID{"a", "b"} {
		if err := store.CreateSession(conversation.NewSession(id, "", nil, conversation.Options{})); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	removed := store.DeleteAll()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed sessions, got %d", len(removed))
	}
	for _, sess := range removed {
		select {
		case <-sess.Done():
			t.Fatalf("DeleteAll must leave closing to the caller")
		default:
		}
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestSettingsStoreReadsLastWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSettingsStore()

	empty, err := store.ReadSettings(ctx)
	if err != nil || !empty.Empty() {
		t.Fatalf("expected empty record, got %+v, %v", empty, err)
	}

	if err := store.WriteSettings(ctx, &domain.APIKeys{OpenAI: "a"}); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}
	if err := store.WriteSettings(ctx, &domain.APIKeys{Gemini: "b"}); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}

	got, _ := store.ReadSettings(ctx)
	if got.OpenAI != "" || got.Gemini != "b" {
		t.Fatalf("expected last written record, got %+v", got)
	}
}
