package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/ai"
	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/schedule"
	"github.com/bilgisen/rtfire/internal/scraper"
	"github.com/bilgisen/rtfire/internal/settings"
)

// Discoverer finds fresh articles for a query
type Discoverer interface {
	Discover(ctx context.Context, query, timeframe string, known []string) ([]models.Article, error)
}

// PageScraper renders pages and retrieves images
type PageScraper interface {
	Scrape(ctx context.Context, pageURL string) (scraper.Result, error)
	FetchImage(ctx context.Context, imageURL, pageURL string) (string, error)
}

// SourceScanner turns the active sources into new articles
type SourceScanner interface {
	ScanSources(ctx context.Context, sources []models.Source) ([]models.Article, error)
}

// IdentityChecker verifies a bot token
type IdentityChecker interface {
	GetMe(ctx context.Context, token string) (string, error)
}

// ImageMirror re-hosts captured images at a public URL
type ImageMirror interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Deps are the collaborators behind the routes. Optional ones may be nil and
// their routes answer 503.
type Deps struct {
	Manager    *schedule.Manager
	Settings   *settings.Settings
	Discoverer Discoverer
	Rewriter   ai.Rewriter
	Scraper    PageScraper
	Sources    SourceScanner
	Telegram   IdentityChecker
	Mirror     ImageMirror
	Timeout    time.Duration
	Version    string
}

type Handlers struct {
	Deps
}

func NewHandlers(deps Deps) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Minute
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handlers{Deps: deps}
}

func (h *Handlers) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.Timeout)
}

var errUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "feature not configured")

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	creds := h.Settings.Credentials()
	return c.JSON(fiber.Map{
		"status":   "ok",
		"version":  h.Version,
		"time":     time.Now().Format(time.RFC3339),
		"telegram": creds.Status,
		"articles": h.Manager.Stats(),
	})
}

// ListArticles handles GET /articles?status=
func (h *Handlers) ListArticles(c *fiber.Ctx) error {
	status := models.Status(c.Query("status"))
	switch status {
	case "", models.StatusMonitoring, models.StatusScheduled, models.StatusPublished:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown status")
	}

	items := h.Manager.List(status)
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// GetArticle handles GET /articles/:id
func (h *Handlers) GetArticle(c *fiber.Ctx) error {
	a, ok := h.Manager.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "article not found")
	}
	return c.JSON(a)
}

// DeleteArticle handles DELETE /articles/:id
func (h *Handlers) DeleteArticle(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Manager.Delete(ctx, c.Params("id")); err != nil {
		return scheduleError(err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// Queue handles GET /schedule
func (h *Handlers) Queue(c *fiber.Ctx) error {
	items := h.Manager.Queue()
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// Reshift handles POST /schedule/reshift: hands out fresh slots from now
func (h *Handlers) Reshift(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Manager.Reschedule(ctx, time.Now()); err != nil {
		return err
	}
	return h.Queue(c)
}

// ScheduleArticle handles POST /articles/:id/schedule
func (h *Handlers) ScheduleArticle(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	a, err := h.Manager.Schedule(ctx, c.Params("id"))
	if err != nil {
		return scheduleError(err)
	}
	return c.JSON(a)
}

// PublishArticle handles POST /articles/:id/publish
func (h *Handlers) PublishArticle(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	a, err := h.Manager.PublishNow(ctx, c.Params("id"))
	if err != nil {
		return scheduleError(err)
	}
	logger.Get().Info().Str("article_id", a.ID).Msg("Article published manually")
	return c.JSON(a)
}

func scheduleError(err error) error {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "article not found")
	case errors.Is(err, schedule.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrPublishFailed):
		return fiber.NewError(fiber.StatusBadGateway, "publish failed")
	default:
		return err
	}
}
