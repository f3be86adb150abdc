package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type createSource struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name" validate:"max=100"`
}

func newApp(adminKey string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestLogger())
	app.Post("/sources", AdminOnly(adminKey), ValidateBody[createSource](), func(c *fiber.Ctx) error {
		return c.JSON(Body[createSource](c))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "already published")
	})
	return app
}

func post(t *testing.T, app *fiber.App, key, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/sources", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestAdminOnly(t *testing.T) {
	app := newApp("secret")
	valid := `{"url":"https://example.com/rss"}`

	if code := post(t, app, "", valid); code != fiber.StatusUnauthorized {
		t.Errorf("missing key: expected 401, got %d", code)
	}
	if code := post(t, app, "wrong", valid); code != fiber.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", code)
	}
	if code := post(t, app, "secret", valid); code != fiber.StatusOK {
		t.Errorf("valid key: expected 200, got %d", code)
	}
	if code := post(t, newApp(""), "", valid); code != fiber.StatusOK {
		t.Errorf("disabled auth: expected 200, got %d", code)
	}
}

func TestValidateBody(t *testing.T) {
	app := newApp("")
	if code := post(t, app, "", `{"url":"not a url"}`); code != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
	if code := post(t, app, "", `{"url":`); code != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestErrorHandlerAndRequestID(t *testing.T) {
	app := newApp("")
	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}
