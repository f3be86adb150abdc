// Package settings holds the operator-editable configuration that lives in
// persisted state rather than the environment: Telegram credentials and the
// news source list.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
)

var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrDuplicateSource = errors.New("source already exists")
)

// Persister is the slice of storage the settings need
type Persister interface {
	LoadSources(ctx context.Context) ([]models.Source, bool, error)
	SaveSources(ctx context.Context, sources []models.Source) error
	LoadCredentials(ctx context.Context) (models.Credentials, bool, error)
	SaveCredentials(ctx context.Context, creds models.Credentials) error
}

// Settings guards credentials and sources behind one mutex
type Settings struct {
	mu      sync.RWMutex
	store   Persister
	creds   models.Credentials
	sources []models.Source
}

func New(store Persister) *Settings {
	return &Settings{store: store}
}

// Load restores persisted state. Env credentials and seed sources apply only
// when nothing has been saved for them yet.
func (s *Settings) Load(ctx context.Context, envCreds models.Credentials, seed []models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, found, err := s.store.LoadCredentials(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if !found {
		creds = envCreds.Trimmed()
		if creds.Status == "" {
			creds.Status = models.ConnectionIdle
		}
	}
	s.creds = creds

	sources, found, err := s.store.LoadSources(ctx)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}
	if !found {
		sources = append([]models.Source(nil), seed...)
		if err := s.store.SaveSources(ctx, sources); err != nil {
			return fmt.Errorf("seeding sources: %w", err)
		}
		logger.Get().Info().Int("sources", len(sources)).Msg("Seeded news sources")
	}
	s.sources = sources
	return nil
}

// Credentials returns a copy of the current credentials
func (s *Settings) Credentials() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// SetCredentials replaces token and chat id and resets the connection status
func (s *Settings) SetCredentials(ctx context.Context, token, chatID string) (models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.Credentials{BotToken: token, ChatID: chatID, Status: models.ConnectionIdle}.Trimmed()
	if err := s.store.SaveCredentials(ctx, next); err != nil {
		return s.creds, err
	}
	s.creds = next
	return next, nil
}

// SetConnection records the outcome of an identity check
func (s *Settings) SetConnection(ctx context.Context, status models.ConnectionStatus, botName string) (models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.creds
	next.Status = status
	next.BotName = botName
	if err := s.store.SaveCredentials(ctx, next); err != nil {
		return s.creds, err
	}
	s.creds = next
	return next, nil
}

// Sources returns a copy of the source list
func (s *Settings) Sources() []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Source(nil), s.sources...)
}

// ActiveSources returns only the enabled sources
func (s *Settings) ActiveSources() []models.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Source
	for _, src := range s.sources {
		if src.Active {
			out = append(out, src)
		}
	}
	return out
}

// AddSource appends an active source; URLs are unique
func (s *Settings) AddSource(ctx context.Context, name, url string) (models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url = strings.TrimSpace(url)
	for _, src := range s.sources {
		if src.URL == url {
			return models.Source{}, ErrDuplicateSource
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = url
	}
	src := models.Source{ID: uuid.NewString(), URL: url, Name: name, Active: true}

	next := append(append([]models.Source(nil), s.sources...), src)
	if err := s.store.SaveSources(ctx, next); err != nil {
		return models.Source{}, err
	}
	s.sources = next
	return src, nil
}

// ToggleSource flips the active flag
func (s *Settings) ToggleSource(ctx context.Context, id string) (models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]models.Source(nil), s.sources...)
	for i := range next {
		if next[i].ID == id {
			next[i].Active = !next[i].Active
			if err := s.store.SaveSources(ctx, next); err != nil {
				return models.Source{}, err
			}
			s.sources = next
			return next[i], nil
		}
	}
	return models.Source{}, ErrSourceNotFound
}

func (s *Settings) DeleteSource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.ID != id {
			next = append(next, src)
		}
	}
	if len(next) == len(s.sources) {
		return ErrSourceNotFound
	}
	if err := s.store.SaveSources(ctx, next); err != nil {
		return err
	}
	s.sources = next
	return nil
}
