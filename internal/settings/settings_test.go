package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/storage"
)

func newSettings(t *testing.T) (*Settings, *storage.Storage) {
	t.Helper()
	store := storage.NewStorage(storage.NewMemoryKV())
	return New(store), store
}

func TestLoadSeedsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s, store := newSettings(t)

	seed := []models.Source{{ID: "seed-1", URL: "https://a/rss", Name: "A", Active: true}}
	if err := s.Load(ctx, models.Credentials{BotToken: " 1:x ", ChatID: "@c"}, seed); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Credentials(); got.BotToken != "1:x" || got.Status != models.ConnectionIdle {
		t.Errorf("unexpected env credentials %+v", got)
	}
	if err := s.DeleteSource(ctx, "seed-1"); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}

	again := New(store)
	if err := again.Load(ctx, models.Credentials{}, seed); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(again.Sources()) != 0 {
		t.Error("seed must not come back after the list was saved empty")
	}
}

func TestSavedCredentialsWinOverEnv(t *testing.T) {
	ctx := context.Background()
	s, store := newSettings(t)
	s.Load(ctx, models.Credentials{}, nil)

	if _, err := s.SetCredentials(ctx, "2:y", "-1001234567890"); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
	if _, err := s.SetConnection(ctx, models.ConnectionSuccess, "bot"); err != nil {
		t.Fatalf("SetConnection: %v", err)
	}

	again := New(store)
	again.Load(ctx, models.Credentials{BotToken: "env", ChatID: "env"}, nil)
	if got := again.Credentials(); got.BotToken != "2:y" || !got.Connected() || got.BotName != "bot" {
		t.Errorf("unexpected credentials %+v", got)
	}

	updated, _ := again.SetCredentials(ctx, "3:z", "@c")
	if updated.Status != models.ConnectionIdle {
		t.Error("changing credentials must reset the connection status")
	}
}

func TestSourceLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)
	s.Load(ctx, models.Credentials{}, nil)

	src, err := s.AddSource(ctx, "", "https://feed/rss")
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if src.Name != "https://feed/rss" || !src.Active || src.ID == "" {
		t.Errorf("unexpected source %+v", src)
	}
	if _, err := s.AddSource(ctx, "dup", "https://feed/rss"); !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("expected ErrDuplicateSource, got %v", err)
	}

	toggled, err := s.ToggleSource(ctx, src.ID)
	if err != nil || toggled.Active {
		t.Fatalf("expected inactive source, got %+v err %v", toggled, err)
	}
	if len(s.ActiveSources()) != 0 {
		t.Error("inactive source listed as active")
	}
	if _, err := s.ToggleSource(ctx, "missing"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
	if err := s.DeleteSource(ctx, "missing"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}
