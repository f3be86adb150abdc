package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/storage"
)

type fakePublisher struct {
	mu    sync.Mutex
	ok    bool
	calls []string
}

func (f *fakePublisher) Publish(ctx context.Context, a models.Article, creds models.Credentials) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a.ID)
	return f.ok
}

type staticCreds models.Credentials

func (c staticCreds) Credentials() models.Credentials { return models.Credentials(c) }

var connected = staticCreds{BotToken: "1:x", ChatID: "@c", Status: models.ConnectionSuccess}

// 10:00:30 local
var base = time.Date(2026, 5, 4, 10, 0, 30, 0, time.Local)

func newManager(t *testing.T, pub *fakePublisher, creds CredentialsProvider, match MatchMode) (*Manager, *storage.Storage) {
	t.Helper()
	store := storage.NewStorage(storage.NewMemoryKV())
	m := NewManager(store, pub, creds, Options{
		Lead:    time.Minute,
		Spacing: 15 * time.Minute,
		Match:   match,
		Now:     func() time.Time { return base },
	})
	return m, store
}

func article(id string, created time.Time) models.Article {
	return models.Article{ID: id, URL: "https://example.com/" + id, Title: id, Body: "body", CreatedAt: created}
}

func slots(q []models.Article) []string {
	out := make([]string, len(q))
	for i, a := range q {
		out[i] = a.ScheduledAt
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEnqueueAssignsSpacedSlots(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	added, err := m.Enqueue(ctx, []models.Article{
		article("b", base.Add(-time.Minute)),
		article("a", base.Add(-2*time.Minute)),
		article("c", base),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 added, got %d", len(added))
	}

	q := m.Queue()
	if q[0].ID != "a" || q[1].ID != "b" || q[2].ID != "c" {
		t.Errorf("expected creation order, got %s %s %s", q[0].ID, q[1].ID, q[2].ID)
	}
	if want := []string{"10:01", "10:16", "10:31"}; !equal(slots(q), want) {
		t.Errorf("expected %v, got %v", want, slots(q))
	}
	for _, a := range q {
		if a.Status != models.StatusScheduled || a.Category != models.DefaultCategory || a.Severity != models.DefaultSeverity {
			t.Errorf("unexpected article state %+v", a)
		}
	}
}

func TestEnqueueSkipsKnownURLs(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	m.Track(ctx, []models.Article{article("a", base)})
	added, _ := m.Enqueue(ctx, []models.Article{article("a", base), article("b", base)})
	if len(added) != 1 || added[0].ID != "b" {
		t.Errorf("expected only b to be added, got %+v", added)
	}
}

func TestRescheduleLeavesOthersUntouched(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	m.Track(ctx, []models.Article{article("mon", base)})
	m.Enqueue(ctx, []models.Article{article("s1", base)})

	later := base.Add(3 * time.Hour)
	if err := m.Reschedule(ctx, later); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	mon, _ := m.Get("mon")
	if mon.Status != models.StatusMonitoring || mon.ScheduledAt != "" {
		t.Errorf("monitoring article changed: %+v", mon)
	}
	s1, _ := m.Get("s1")
	if s1.ScheduledAt != "13:01" {
		t.Errorf("expected 13:01, got %s", s1.ScheduledAt)
	}
}

func TestTickPublishesExactMatchAndShifts(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchExact)

	m.Enqueue(ctx, []models.Article{
		article("a", base.Add(-2*time.Minute)),
		article("b", base.Add(-time.Minute)),
	})

	// 10:01:10 matches a's slot
	now := base.Add(40 * time.Second)
	got, err := m.Tick(ctx, now)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got == nil || got.ID != "a" || got.Status != models.StatusPublished || got.ScheduledAt != "" || !got.PublishedAt.Equal(now) {
		t.Fatalf("unexpected published article %+v", got)
	}

	b, _ := m.Get("b")
	if b.ScheduledAt != "10:02" {
		t.Errorf("expected remainder shifted to now+1m, got %s", b.ScheduledAt)
	}

	// same minute again: nothing is due, nothing is sent
	again, _ := m.Tick(ctx, now.Add(10*time.Second))
	if again != nil || len(pub.calls) != 1 {
		t.Errorf("expected idempotent tick, got %+v calls %v", again, pub.calls)
	}
}

func TestTickWithoutMatchMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchExact)

	m.Enqueue(ctx, []models.Article{article("a", base)})
	if got, _ := m.Tick(ctx, base); got != nil {
		t.Errorf("nothing should be due at 10:00, got %+v", got)
	}
	// exact mode misses a slot that already passed
	if got, _ := m.Tick(ctx, base.Add(5*time.Minute)); got != nil {
		t.Errorf("exact mode must not publish overdue slots, got %+v", got)
	}
	if len(pub.calls) != 0 {
		t.Errorf("expected no publish calls, got %v", pub.calls)
	}
}

func TestTickDueModePublishesOverdue(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchDue)

	m.Enqueue(ctx, []models.Article{article("a", base)})
	got, _ := m.Tick(ctx, base.Add(5*time.Minute))
	if got == nil || got.ID != "a" {
		t.Fatalf("expected overdue article to publish, got %+v", got)
	}
}

func TestTickRequiresConnectedCredentials(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	idle := staticCreds{BotToken: "1:x", ChatID: "@c", Status: models.ConnectionIdle}
	m, _ := newManager(t, pub, idle, MatchExact)

	m.Enqueue(ctx, []models.Article{article("a", base)})
	if got, _ := m.Tick(ctx, base.Add(40*time.Second)); got != nil {
		t.Errorf("expected no publish while disconnected, got %+v", got)
	}
	if len(pub.calls) != 0 {
		t.Errorf("expected no publish calls, got %v", pub.calls)
	}
}

func TestFailedPublishKeepsArticleQueued(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: false}
	m, _ := newManager(t, pub, connected, MatchExact)

	m.Enqueue(ctx, []models.Article{article("a", base)})
	if got, _ := m.Tick(ctx, base.Add(40*time.Second)); got != nil {
		t.Fatalf("expected no published article, got %+v", got)
	}
	a, _ := m.Get("a")
	if a.Status != models.StatusScheduled || a.ScheduledAt != "10:01" {
		t.Errorf("expected article to stay queued, got %+v", a)
	}
}

func TestScheduleTransition(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	m.Track(ctx, []models.Article{article("a", base)})
	a, err := m.Schedule(ctx, "a")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if a.Status != models.StatusScheduled || a.ScheduledAt != "10:01" {
		t.Errorf("unexpected article %+v", a)
	}
	if _, err := m.Schedule(ctx, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := m.Schedule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishNowKeepsOtherSlots(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchExact)

	m.Enqueue(ctx, []models.Article{
		article("a", base.Add(-2*time.Minute)),
		article("b", base.Add(-time.Minute)),
	})
	a, err := m.PublishNow(ctx, "a")
	if err != nil {
		t.Fatalf("PublishNow: %v", err)
	}
	if a.Status != models.StatusPublished || a.ScheduledAt != "" {
		t.Errorf("unexpected article %+v", a)
	}
	b, _ := m.Get("b")
	if b.ScheduledAt != "10:16" {
		t.Errorf("expected b to keep its slot, got %s", b.ScheduledAt)
	}
	if _, err := m.PublishNow(ctx, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	pub.ok = false
	if _, err := m.PublishNow(ctx, "b"); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("expected ErrPublishFailed, got %v", err)
	}
}

func TestDeleteAndPersistence(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	m.Enqueue(ctx, []models.Article{article("a", base), article("b", base)})
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := m.PublishNow(ctx, "b"); err != nil {
		t.Fatalf("PublishNow: %v", err)
	}
	m.Enqueue(ctx, []models.Article{article("c", base)})
	if _, err := m.PublishNow(ctx, "c"); err != nil {
		t.Fatalf("PublishNow: %v", err)
	}
	if err := m.Delete(ctx, "c"); err != nil {
		t.Errorf("expected published article to be deletable, got %v", err)
	}

	restored := NewManager(store, &fakePublisher{}, connected, Options{})
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := restored.Get("a"); ok {
		t.Error("deleted article came back after reload")
	}
	if b, ok := restored.Get("b"); !ok || b.Status != models.StatusPublished {
		t.Errorf("expected b published after reload, got %+v", b)
	}
	if _, ok := restored.Get("c"); ok {
		t.Error("deleted published article came back after reload")
	}
}

func TestPublishNowRequiresScheduled(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchExact)

	m.Track(ctx, []models.Article{article("mon", base)})
	if _, err := m.PublishNow(ctx, "mon"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	a, _ := m.Get("mon")
	if a.Status != models.StatusMonitoring {
		t.Errorf("expected article to stay in monitoring, got %s", a.Status)
	}
	if len(pub.calls) != 0 {
		t.Errorf("expected no publish calls, got %v", pub.calls)
	}
}

func TestDueModeAcrossMidnight(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	late := time.Date(2026, 5, 4, 23, 58, 30, 0, time.Local)
	store := storage.NewStorage(storage.NewMemoryKV())
	m := NewManager(store, pub, connected, Options{
		Lead:    time.Minute,
		Spacing: 15 * time.Minute,
		Match:   MatchDue,
		Now:     func() time.Time { return late },
	})

	m.Enqueue(ctx, []models.Article{
		article("a", late.Add(-3*time.Minute)),
		article("b", late.Add(-2*time.Minute)),
		article("c", late.Add(-time.Minute)),
	})
	if got := slots(m.Queue()); !equal(got, []string{"23:59", "00:14", "00:29"}) {
		t.Fatalf("unexpected queue order %v", got)
	}

	first := time.Date(2026, 5, 4, 23, 59, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		m.Tick(ctx, first.Add(time.Duration(i)*20*time.Second))
	}
	if len(pub.calls) != 1 || pub.calls[0] != "a" {
		t.Fatalf("expected only a within the minute, got %v", pub.calls)
	}

	// next day slots resolve forward and go out on cadence
	m.Tick(ctx, first.Add(time.Minute))
	if len(pub.calls) != 2 || pub.calls[1] != "b" {
		t.Errorf("expected b at 00:00, got %v", pub.calls)
	}
}

func TestOccurrenceResolvesAroundNow(t *testing.T) {
	now := time.Date(2026, 5, 4, 23, 50, 0, 0, time.Local)
	if got := occurrence("00:10", now); got.Day() != 5 || got.Hour() != 0 {
		t.Errorf("expected next day, got %v", got)
	}
	if got := occurrence("23:40", now); got.Day() != 4 {
		t.Errorf("expected same day, got %v", got)
	}
	morning := time.Date(2026, 5, 4, 0, 5, 0, 0, time.Local)
	if got := occurrence("23:55", morning); got.Day() != 3 {
		t.Errorf("expected previous day, got %v", got)
	}
}

func TestListAndRecentURLs(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &fakePublisher{ok: true}, connected, MatchExact)

	m.Track(ctx, []models.Article{article("old", base.Add(-time.Hour)), article("new", base)})
	m.Enqueue(ctx, []models.Article{article("sched", base.Add(-time.Minute))})

	all := m.List("")
	if len(all) != 3 || all[0].ID != "new" {
		t.Errorf("expected newest first, got %+v", all)
	}
	if got := m.List(models.StatusMonitoring); len(got) != 2 {
		t.Errorf("expected two monitoring articles, got %d", len(got))
	}
	urls := m.RecentURLs(2)
	if len(urls) != 2 || urls[0] != "https://example.com/new" {
		t.Errorf("unexpected recent urls %v", urls)
	}
	if stats := m.Stats(); stats[models.StatusScheduled] != 1 || stats[models.StatusMonitoring] != 2 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestConcurrentEnqueueAndTick(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{ok: true}
	m, _ := newManager(t, pub, connected, MatchDue)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			m.Enqueue(ctx, []models.Article{{URL: "https://example.com/c" + string(rune('a'+i)), Title: "t", Body: "b"}})
		}(i)
		go func() {
			defer wg.Done()
			m.Tick(ctx, base.Add(24*time.Hour-time.Minute))
		}()
	}
	wg.Wait()

	stats := m.Stats()
	if stats[models.StatusScheduled]+stats[models.StatusPublished] != 20 {
		t.Errorf("lost articles under concurrency: %v", stats)
	}
	for _, a := range m.List("") {
		if (a.Status == models.StatusScheduled) != (a.ScheduledAt != "") {
			t.Errorf("slot invariant broken for %+v", a)
		}
	}
}
