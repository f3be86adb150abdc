package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/middleware"
	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/telegram"
)

// CredentialsRequest is the body of PUT /telegram
type CredentialsRequest struct {
	BotToken string `json:"bot_token" validate:"required"`
	ChatID   string `json:"chat_id" validate:"required"`
}

// ImportRequest is the body of POST /telegram/import
type ImportRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

type credentialsView struct {
	BotToken string                  `json:"bot_token"`
	ChatID   string                  `json:"chat_id"`
	Status   models.ConnectionStatus `json:"status"`
	BotName  string                  `json:"bot_name,omitempty"`
}

func viewCredentials(c models.Credentials) credentialsView {
	return credentialsView{
		BotToken: maskToken(c.BotToken),
		ChatID:   c.ChatID,
		Status:   c.Status,
		BotName:  c.BotName,
	}
}

// maskToken keeps the bot id and hides the secret part
func maskToken(token string) string {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i+1] + "****"
		}
	}
	if token == "" {
		return ""
	}
	return "****"
}

// GetTelegram handles GET /telegram
func (h *Handlers) GetTelegram(c *fiber.Ctx) error {
	return c.JSON(viewCredentials(h.Settings.Credentials()))
}

// PutTelegram handles PUT /telegram
func (h *Handlers) PutTelegram(c *fiber.Ctx) error {
	req := middleware.Body[CredentialsRequest](c)

	ctx, cancel := h.ctx(c)
	defer cancel()

	creds, err := h.Settings.SetCredentials(ctx, req.BotToken, req.ChatID)
	if err != nil {
		return err
	}
	return c.JSON(viewCredentials(creds))
}

// TestTelegram handles POST /telegram/test. The outcome is stored as the
// connection status that gates automatic publishing.
func (h *Handlers) TestTelegram(c *fiber.Ctx) error {
	if h.Telegram == nil {
		return errUnavailable
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	current := h.Settings.Credentials()
	name, err := h.Telegram.GetMe(ctx, current.BotToken)

	status := models.ConnectionSuccess
	if err != nil || !current.Complete() {
		status = models.ConnectionError
		name = ""
		logger.Get().Warn().Err(err).Msg("Telegram connection test failed")
	}

	creds, serr := h.Settings.SetConnection(ctx, status, name)
	if serr != nil {
		return serr
	}
	code := fiber.StatusOK
	if status != models.ConnectionSuccess {
		code = fiber.StatusBadGateway
	}
	return c.Status(code).JSON(viewCredentials(creds))
}

// ImportTelegram handles POST /telegram/import: token and chat id are
// extracted from pasted free text.
func (h *Handlers) ImportTelegram(c *fiber.Ctx) error {
	req := middleware.Body[ImportRequest](c)

	token, chatID, ok := telegram.ExtractCredentials(req.Text)
	if !ok {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no bot token and chat id found in text")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	creds, err := h.Settings.SetCredentials(ctx, token, chatID)
	if err != nil {
		return err
	}
	return c.JSON(viewCredentials(creds))
}
