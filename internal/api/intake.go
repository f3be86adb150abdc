package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/ai"
	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/media"
	"github.com/bilgisen/rtfire/internal/middleware"
	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/scraper"
)

// DiscoveryRequest is the body of POST /discovery
type DiscoveryRequest struct {
	Query     string `json:"query" validate:"required,max=500"`
	Timeframe string `json:"timeframe" validate:"max=100"`
}

// URLRequest is the body of POST /scrape and POST /process
type URLRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// RewriteRequest is the body of POST /rewrite
type RewriteRequest struct {
	Title   string `json:"title" validate:"required_without=Content"`
	Content string `json:"content"`
}

// FetchImageRequest is the body of POST /fetch-image
type FetchImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,http_url"`
	PageURL  string `json:"page_url" validate:"omitempty,http_url"`
}

// knownURLWindow is how many recent URLs discovery is told to skip
const knownURLWindow = 30

// Discover handles POST /discovery: search, validate and enqueue
func (h *Handlers) Discover(c *fiber.Ctx) error {
	if h.Discoverer == nil {
		return errUnavailable
	}
	req := middleware.Body[DiscoveryRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	found, err := h.Discoverer.Discover(ctx, req.Query, req.Timeframe, h.Manager.RecentURLs(knownURLWindow))
	if err != nil {
		logger.Get().Error().Err(err).Str("query", req.Query).Msg("Discovery failed")
		return fiber.NewError(fiber.StatusBadGateway, "discovery failed")
	}

	added, err := h.Manager.Enqueue(ctx, found)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"found": len(found),
		"added": len(added),
		"items": added,
	})
}

// Scrape handles POST /scrape
func (h *Handlers) Scrape(c *fiber.Ctx) error {
	if h.Scraper == nil {
		return errUnavailable
	}
	req := middleware.Body[URLRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.Scraper.Scrape(ctx, req.URL)
	if err != nil {
		logger.Get().Error().Err(err).Str("url", req.URL).Msg("Scrape failed")
		return fiber.NewError(fiber.StatusBadGateway, "scrape failed")
	}
	return c.JSON(res)
}

// Rewrite handles POST /rewrite
func (h *Handlers) Rewrite(c *fiber.Ctx) error {
	req := middleware.Body[RewriteRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	out, rewritten := ai.RewriteOrEcho(ctx, h.Rewriter, req.Title, req.Content)
	return c.JSON(fiber.Map{
		"rewritten": rewritten,
		"result":    out,
	})
}

// Process handles POST /process: scrape, rewrite and enqueue one URL
func (h *Handlers) Process(c *fiber.Ctx) error {
	if h.Scraper == nil {
		return errUnavailable
	}
	req := middleware.Body[URLRequest](c)
	log := logger.Get().With().Str("url", req.URL).Logger()

	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.Scraper.Scrape(ctx, req.URL)
	if err != nil {
		log.Error().Err(err).Msg("Scrape failed")
		return fiber.NewError(fiber.StatusBadGateway, "scrape failed")
	}
	if res.Title == "" && res.Content == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no article content found")
	}

	rw, rewritten := ai.RewriteOrEcho(ctx, h.Rewriter, res.Title, res.Content)
	a := h.articleFromScrape(c, res, rw)

	added, err := h.Manager.Enqueue(ctx, []models.Article{a})
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return fiber.NewError(fiber.StatusConflict, "article already tracked")
	}

	log.Info().Bool("rewritten", rewritten).Str("article_id", added[0].ID).Msg("Processed article")
	return c.Status(fiber.StatusCreated).JSON(added[0])
}

func (h *Handlers) articleFromScrape(c *fiber.Ctx, res scraper.Result, rw ai.Rewrite) models.Article {
	a := models.NewArticle(res.URL, rw.Title, rw.Body)
	a.OriginalTitle = res.Title
	a.OriginalBody = res.Content
	a.Category = rw.Category
	a.Severity = rw.Severity
	a.ImageBase64 = res.ImageBase64
	a.OriginalImageURL = res.OriginalImageURL
	a.ImageURL = res.OriginalImageURL
	a.ApplyDefaults()

	if h.Mirror != nil && a.ImageBase64 != "" {
		ctx, cancel := h.ctx(c)
		defer cancel()
		if data, contentType, err := media.DecodeDataURL(a.ImageBase64); err == nil {
			if publicURL, err := h.Mirror.Upload(ctx, data, contentType); err == nil {
				a.ImageURL = publicURL
			} else {
				logger.Get().Warn().Err(err).Msg("Image mirror upload failed")
			}
		}
	}
	return a
}

// FetchImage handles POST /fetch-image
func (h *Handlers) FetchImage(c *fiber.Ctx) error {
	if h.Scraper == nil {
		return errUnavailable
	}
	req := middleware.Body[FetchImageRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	dataURL, err := h.Scraper.FetchImage(ctx, req.ImageURL, req.PageURL)
	if err != nil {
		logger.Get().Warn().Err(err).Str("image", req.ImageURL).Msg("Image fetch failed")
		return fiber.NewError(fiber.StatusBadGateway, "image could not be retrieved")
	}
	return c.JSON(fiber.Map{"image_base64": dataURL})
}
