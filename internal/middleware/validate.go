package middleware

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/logger"
)

const bodyKey = "validated"

var validate = validator.New()

// ValidateBody parses the request body into a fresh T, validates it and
// stores it for the handler. Read it back with Body.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
				"msg":   err.Error(),
			})
		}

		if err := validate.Struct(body); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
					"msg":   err.Error(),
				})
			}
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fields,
			})
		}

		c.Locals(bodyKey, body)
		return c.Next()
	}
}

// Body returns the value stored by ValidateBody
func Body[T any](c *fiber.Ctx) *T {
	body, _ := c.Locals(bodyKey).(*T)
	if body == nil {
		body = new(T)
	}
	return body
}

// ErrorHandler renders every error as JSON with a matching status code
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := http.StatusText(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	event := logger.Get().Warn()
	if code >= fiber.StatusInternalServerError {
		event = logger.Get().Error()
	}
	event.Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
