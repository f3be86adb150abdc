package telegram

import (
	"regexp"
	"strings"
)

var (
	tokenPattern  = regexp.MustCompile(`\d{8,15}:[a-zA-Z0-9_-]{35,50}`)
	chatIDPattern = regexp.MustCompile(`(@[a-zA-Z0-9_]{4,})|(-100\d{10,13})|(-\d{8,13})`)
)

// ExtractCredentials finds a bot token and a chat id in free text such as a
// pasted BotFather message. ok is false unless both are present.
func ExtractCredentials(text string) (token, chatID string, ok bool) {
	token = strings.TrimSpace(tokenPattern.FindString(text))
	chatID = strings.TrimSpace(chatIDPattern.FindString(text))
	return token, chatID, token != "" && chatID != ""
}
