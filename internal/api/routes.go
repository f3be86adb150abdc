package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bilgisen/rtfire/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, adminKey string) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api/v1")
	admin := middleware.AdminOnly(adminKey)

	api.Get("/health", h.HealthCheck)

	articles := api.Group("/articles")
	{
		articles.Get("", h.ListArticles)
		articles.Get("/:id", h.GetArticle)
		articles.Delete("/:id", admin, h.DeleteArticle)
		articles.Post("/:id/schedule", admin, h.ScheduleArticle)
		articles.Post("/:id/publish", admin, h.PublishArticle)
	}

	api.Get("/schedule", h.Queue)
	api.Post("/schedule/reshift", admin, h.Reshift)

	api.Post("/discovery", admin, middleware.ValidateBody[DiscoveryRequest](), h.Discover)
	api.Post("/scrape", admin, middleware.ValidateBody[URLRequest](), h.Scrape)
	api.Post("/process", admin, middleware.ValidateBody[URLRequest](), h.Process)
	api.Post("/rewrite", admin, middleware.ValidateBody[RewriteRequest](), h.Rewrite)
	api.Post("/fetch-image", admin, middleware.ValidateBody[FetchImageRequest](), h.FetchImage)

	sources := api.Group("/sources")
	{
		sources.Get("", h.ListSources)
		sources.Post("", admin, middleware.ValidateBody[SourceRequest](), h.AddSource)
		sources.Post("/scan", admin, h.ScanSources)
		sources.Patch("/:id", admin, h.ToggleSource)
		sources.Delete("/:id", admin, h.DeleteSource)
	}

	tg := api.Group("/telegram")
	{
		tg.Get("", h.GetTelegram)
		tg.Put("", admin, middleware.ValidateBody[CredentialsRequest](), h.PutTelegram)
		tg.Post("/test", admin, h.TestTelegram)
		tg.Post("/import", admin, middleware.ValidateBody[ImportRequest](), h.ImportTelegram)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
