package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/logger"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Validator checks the presented key. Required.
	Validator func(key string) (bool, error)

	// ErrorHandler runs for a missing or rejected key.
	// Default: 401 Invalid or missing API Key
	ErrorHandler fiber.ErrorHandler

	// ContextKey stores the accepted key in Locals. Default: "apiKey"
	ContextKey string

	// Header carries the key. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing API Key",
		})
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates an API key middleware
func NewAuth(config AuthConfig) fiber.Handler {
	cfg := config
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = ConfigDefault.ContextKey
	}
	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		authHeader := c.Get(cfg.Header)
		if authHeader == "" {
			return cfg.ErrorHandler(c, errors.New("missing API key"))
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errors.New("invalid API key"))
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// AdminOnly guards operator routes with a shared key. An empty key disables
// the check.
func AdminOnly(adminKey string) fiber.Handler {
	return NewAuth(AuthConfig{
		Next: func(c *fiber.Ctx) bool {
			return adminKey == ""
		},
		Validator: func(key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
	})
}
