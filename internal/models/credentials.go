package models

import "strings"

// ConnectionStatus is the result of the last bot identity check
type ConnectionStatus string

const (
	ConnectionIdle    ConnectionStatus = "idle"
	ConnectionSuccess ConnectionStatus = "success"
	ConnectionError   ConnectionStatus = "error"
)

// Credentials identify the Telegram bot and the destination channel
type Credentials struct {
	BotToken string           `json:"bot_token"`
	ChatID   string           `json:"chat_id"`
	Status   ConnectionStatus `json:"status"`
	BotName  string           `json:"bot_name,omitempty"`
}

// Complete reports whether both token and chat id are present
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.BotToken) != "" && strings.TrimSpace(c.ChatID) != ""
}

// Connected reports whether the credentials passed the last identity check
func (c Credentials) Connected() bool {
	return c.Complete() && c.Status == ConnectionSuccess
}

// Trimmed returns a copy with surrounding whitespace removed
func (c Credentials) Trimmed() Credentials {
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.ChatID = strings.TrimSpace(c.ChatID)
	return c
}
