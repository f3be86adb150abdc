package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/middleware"
	"github.com/bilgisen/rtfire/internal/settings"
)

// SourceRequest is the body of POST /sources
type SourceRequest struct {
	Name string `json:"name" validate:"max=200"`
	URL  string `json:"url" validate:"required,http_url"`
}

// ListSources handles GET /sources
func (h *Handlers) ListSources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.Settings.Sources()})
}

// AddSource handles POST /sources
func (h *Handlers) AddSource(c *fiber.Ctx) error {
	req := middleware.Body[SourceRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	src, err := h.Settings.AddSource(ctx, req.Name, req.URL)
	if err != nil {
		return sourceError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(src)
}

// ToggleSource handles PATCH /sources/:id
func (h *Handlers) ToggleSource(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	src, err := h.Settings.ToggleSource(ctx, c.Params("id"))
	if err != nil {
		return sourceError(err)
	}
	return c.JSON(src)
}

// DeleteSource handles DELETE /sources/:id
func (h *Handlers) DeleteSource(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Settings.DeleteSource(ctx, c.Params("id")); err != nil {
		return sourceError(err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// ScanSources handles POST /sources/scan: new feed items land in monitoring
func (h *Handlers) ScanSources(c *fiber.Ctx) error {
	if h.Sources == nil {
		return errUnavailable
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	found, err := h.Sources.ScanSources(ctx, h.Settings.ActiveSources())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	added, err := h.Manager.Track(ctx, found)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"found": len(found),
		"added": len(added),
		"items": added,
	})
}

func sourceError(err error) error {
	switch {
	case errors.Is(err, settings.ErrSourceNotFound):
		return fiber.NewError(fiber.StatusNotFound, "source not found")
	case errors.Is(err, settings.ErrDuplicateSource):
		return fiber.NewError(fiber.StatusConflict, "source already exists")
	default:
		return err
	}
}
