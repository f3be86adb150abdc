// Package schedule owns the article collection, assigns publication slots
// and publishes the head of the queue when its slot comes up.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
)

// SlotFormat is the wall-clock layout of scheduled_at
const SlotFormat = "15:04"

var (
	// ErrNotFound is returned when no article has the given id
	ErrNotFound = errors.New("article not found")
	// ErrInvalidTransition is returned when a status change breaks the
	// monitoring -> scheduled -> published order
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPublishFailed is returned when every delivery tier failed
	ErrPublishFailed = errors.New("publish failed")
)

// MatchMode decides when the head of the queue is due
type MatchMode string

const (
	// MatchExact publishes only when the slot equals the current HH:MM
	MatchExact MatchMode = "exact"
	// MatchDue publishes when the slot is at or before the current HH:MM
	MatchDue MatchMode = "due"
)

// Publisher delivers one article and reports overall success
type Publisher interface {
	Publish(ctx context.Context, a models.Article, creds models.Credentials) bool
}

// CredentialsProvider returns the current messaging credentials
type CredentialsProvider interface {
	Credentials() models.Credentials
}

// Persister saves and restores the collection
type Persister interface {
	LoadArticles(ctx context.Context) ([]models.Article, error)
	SaveArticles(ctx context.Context, articles []models.Article) error
}

// Options tune slot assignment and matching
type Options struct {
	Lead    time.Duration
	Spacing time.Duration
	Match   MatchMode
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Lead <= 0 {
		o.Lead = time.Minute
	}
	if o.Spacing <= 0 {
		o.Spacing = 15 * time.Minute
	}
	if o.Match == "" {
		o.Match = MatchExact
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Manager is the single owner of the article collection. One mutex guards it
// and is held across a whole tick, publish call included.
type Manager struct {
	mu        sync.Mutex
	articles  []models.Article
	store     Persister
	publisher Publisher
	creds     CredentialsProvider
	opts      Options
}

func NewManager(store Persister, publisher Publisher, creds CredentialsProvider, opts Options) *Manager {
	return &Manager{
		store:     store,
		publisher: publisher,
		creds:     creds,
		opts:      opts.withDefaults(),
	}
}

// Load replaces the in-memory collection with the persisted one
func (m *Manager) Load(ctx context.Context) error {
	articles, err := m.store.LoadArticles(ctx)
	if err != nil {
		return fmt.Errorf("loading articles: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = articles
	for i := range m.articles {
		normalize(&m.articles[i])
	}
	logger.Get().Info().Int("articles", len(articles)).Msg("Loaded article collection")
	return nil
}

// normalize restores the scheduled_at <-> scheduled invariant on loaded data
func normalize(a *models.Article) {
	a.ApplyDefaults()
	if a.Status != models.StatusScheduled {
		a.ScheduledAt = ""
	}
}

func (m *Manager) persist(ctx context.Context) error {
	if err := m.store.SaveArticles(ctx, m.articles); err != nil {
		logger.Get().Error().Err(err).Msg("Failed to persist articles")
		return fmt.Errorf("persisting articles: %w", err)
	}
	return nil
}

func (m *Manager) prepare(a models.Article, status models.Status, now time.Time) models.Article {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.ApplyDefaults()
	a.Status = status
	a.ScheduledAt = ""
	a.PublishedAt = time.Time{}
	return a
}

// insert appends the articles, skipping URLs already in the collection.
// Callers hold the lock.
func (m *Manager) insert(articles []models.Article, status models.Status) []models.Article {
	now := m.opts.Now()
	seen := make(map[string]bool, len(m.articles))
	for _, a := range m.articles {
		if a.URL != "" {
			seen[a.URL] = true
		}
	}

	var added []models.Article
	for _, a := range articles {
		if a.URL != "" && seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		a = m.prepare(a, status, now)
		m.articles = append(m.articles, a)
		added = append(added, a)
	}
	return added
}

// Track adds articles to the monitoring archive without scheduling them
func (m *Manager) Track(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := m.insert(articles, models.StatusMonitoring)
	if len(added) == 0 {
		return nil, nil
	}
	return added, m.persist(ctx)
}

// Enqueue inserts articles as scheduled and reassigns every slot
func (m *Manager) Enqueue(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := m.insert(articles, models.StatusScheduled)
	if len(added) == 0 {
		return nil, nil
	}
	m.reschedule(m.opts.Now())

	out := make([]models.Article, 0, len(added))
	for _, a := range added {
		if i := m.index(a.ID); i >= 0 {
			out = append(out, m.articles[i])
		}
	}
	logger.Get().Info().Int("added", len(out)).Msg("Enqueued articles")
	return out, m.persist(ctx)
}

// Schedule moves a monitoring article into the queue
func (m *Manager) Schedule(ctx context.Context, id string) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return models.Article{}, ErrNotFound
	}
	if m.articles[i].Status != models.StatusMonitoring {
		return models.Article{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.articles[i].Status, models.StatusScheduled)
	}
	m.articles[i].Status = models.StatusScheduled
	m.reschedule(m.opts.Now())
	return m.articles[i], m.persist(ctx)
}

// Delete removes an article in any state. Remaining slots are left as they
// are.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	m.articles = append(m.articles[:i], m.articles[i+1:]...)
	return m.persist(ctx)
}

// Reschedule assigns consecutive slots to every scheduled article
func (m *Manager) Reschedule(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reschedule(now)
	return m.persist(ctx)
}

// reschedule orders the scheduled set by creation time and hands out slots
// starting at now+Lead, Spacing apart. Callers hold the lock.
func (m *Manager) reschedule(now time.Time) {
	var idx []int
	for i, a := range m.articles {
		if a.Status == models.StatusScheduled {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return m.articles[idx[x]].CreatedAt.Before(m.articles[idx[y]].CreatedAt)
	})

	start := now.Add(m.opts.Lead)
	for n, i := range idx {
		m.articles[i].ScheduledAt = start.Add(time.Duration(n) * m.opts.Spacing).Format(SlotFormat)
	}
}

// Tick publishes the head of the queue when its slot matches now. It returns
// the published article, or nil when nothing was due or delivery failed.
func (m *Manager) Tick(ctx context.Context, now time.Time) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds := m.creds.Credentials()
	if !creds.Connected() {
		return nil, nil
	}

	head := m.head(now)
	if head < 0 || !m.due(m.articles[head].ScheduledAt, now) {
		return nil, nil
	}

	a := m.articles[head]
	log := logger.Get().With().Str("article_id", a.ID).Str("slot", a.ScheduledAt).Logger()
	log.Info().Msg("Publishing scheduled article")

	if !m.publisher.Publish(ctx, a, creds) {
		log.Warn().Msg("Scheduled publish failed, article stays queued")
		return nil, nil
	}

	m.markPublished(head, now)
	m.reschedule(now)
	published := m.articles[head]
	return &published, m.persist(ctx)
}

// head returns the scheduled article whose slot comes up first after
// resolving slots around now; ties keep creation order. Callers hold the lock.
func (m *Manager) head(now time.Time) int {
	best := -1
	var bestAt time.Time
	for i, a := range m.articles {
		if a.Status != models.StatusScheduled {
			continue
		}
		at := occurrence(a.ScheduledAt, now)
		if best < 0 || at.Before(bestAt) || (at.Equal(bestAt) && a.CreatedAt.Before(m.articles[best].CreatedAt)) {
			best, bestAt = i, at
		}
	}
	return best
}

// occurrence resolves an HH:MM slot to the instant within twelve hours of
// now, so a slot just past midnight belongs to the next day.
func occurrence(slot string, now time.Time) time.Time {
	t, err := time.ParseInLocation(SlotFormat, slot, now.Location())
	if err != nil {
		return now.AddDate(1, 0, 0)
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	switch {
	case at.Sub(now) > 12*time.Hour:
		at = at.AddDate(0, 0, -1)
	case now.Sub(at) > 12*time.Hour:
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func (m *Manager) due(slot string, now time.Time) bool {
	if m.opts.Match == MatchDue {
		return !occurrence(slot, now).After(now)
	}
	return slot == now.Format(SlotFormat)
}

func (m *Manager) markPublished(i int, now time.Time) {
	m.articles[i].Status = models.StatusPublished
	m.articles[i].ScheduledAt = ""
	m.articles[i].PublishedAt = now
}

// PublishNow delivers an article immediately. The rest of the queue keeps
// its slots.
func (m *Manager) PublishNow(ctx context.Context, id string) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return models.Article{}, ErrNotFound
	}
	if m.articles[i].Status != models.StatusScheduled {
		return models.Article{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.articles[i].Status, models.StatusPublished)
	}

	if !m.publisher.Publish(ctx, m.articles[i], m.creds.Credentials()) {
		return models.Article{}, ErrPublishFailed
	}
	m.markPublished(i, m.opts.Now())
	return m.articles[i], m.persist(ctx)
}

func (m *Manager) index(id string) int {
	for i, a := range m.articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Get returns one article by id
func (m *Manager) Get(id string) (models.Article, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return m.articles[i], true
	}
	return models.Article{}, false
}

// List returns articles newest first, optionally filtered by status
func (m *Manager) List(status models.Status) []models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Article, 0, len(m.articles))
	for _, a := range m.articles {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Queue returns the scheduled articles in the order ticks will take them
func (m *Manager) Queue() []models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Article
	for _, a := range m.articles {
		if a.Status == models.StatusScheduled {
			out = append(out, a)
		}
	}
	now := m.opts.Now()
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := occurrence(out[i].ScheduledAt, now), occurrence(out[j].ScheduledAt, now)
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RecentURLs returns up to n source URLs, newest first
func (m *Manager) RecentURLs(n int) []string {
	var urls []string
	for _, a := range m.List("") {
		if len(urls) >= n {
			break
		}
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// Stats counts articles per status
func (m *Manager) Stats() map[models.Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.Status]int{
		models.StatusMonitoring: 0,
		models.StatusScheduled:  0,
		models.StatusPublished:  0,
	}
	for _, a := range m.articles {
		out[a.Status]++
	}
	return out
}
