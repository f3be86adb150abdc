// Package storage persists the dashboard state as versioned JSON blobs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bilgisen/rtfire/internal/models"
)

// SchemaVersion is written into every blob envelope
const SchemaVersion = 1

const (
	KeyArticles    = "articles"
	KeySources     = "sources"
	KeyCredentials = "credentials"
)

// ErrUnsupportedVersion is returned for blobs written by an unknown schema
var ErrUnsupportedVersion = errors.New("unsupported state version")

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Storage reads and writes typed state over any KV backend
type Storage struct {
	kv KV
}

func NewStorage(kv KV) *Storage {
	return &Storage{kv: kv}
}

func (s *Storage) load(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("failed to decode %s envelope: %w", key, err)
	}
	if env.Version != SchemaVersion {
		return false, fmt.Errorf("%s: %w %d", key, ErrUnsupportedVersion, env.Version)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Storage) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	raw, err := json.MarshalIndent(envelope{Version: SchemaVersion, Data: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// LoadArticles returns the saved collection, or nil when nothing was saved yet
func (s *Storage) LoadArticles(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	if _, err := s.load(ctx, KeyArticles, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *Storage) SaveArticles(ctx context.Context, articles []models.Article) error {
	if articles == nil {
		articles = []models.Article{}
	}
	return s.save(ctx, KeyArticles, articles)
}

// LoadSources reports found=false when the list was never saved, so callers
// can seed defaults without overwriting an intentionally empty list.
func (s *Storage) LoadSources(ctx context.Context) ([]models.Source, bool, error) {
	var sources []models.Source
	found, err := s.load(ctx, KeySources, &sources)
	if err != nil {
		return nil, false, err
	}
	return sources, found, nil
}

func (s *Storage) SaveSources(ctx context.Context, sources []models.Source) error {
	if sources == nil {
		sources = []models.Source{}
	}
	return s.save(ctx, KeySources, sources)
}

func (s *Storage) LoadCredentials(ctx context.Context) (models.Credentials, bool, error) {
	var creds models.Credentials
	found, err := s.load(ctx, KeyCredentials, &creds)
	if err != nil {
		return models.Credentials{}, false, err
	}
	return creds, found, nil
}

func (s *Storage) SaveCredentials(ctx context.Context, creds models.Credentials) error {
	return s.save(ctx, KeyCredentials, creds)
}
