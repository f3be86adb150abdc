// Package telegram is a small Bot API client covering the calls the
// publisher needs: identity check, photo by URL, photo upload and text.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ParseModeHTML is the markup dialect used for every caption
const ParseModeHTML = "HTML"

// ErrNoCredentials short-circuits calls made without a token or chat id
var ErrNoCredentials = errors.New("telegram credentials missing")

// APIError is an explicit rejection returned by the Bot API
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s rejected (%d): %s", e.Method, e.Code, e.Description)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	} `json:"result"`
}

// Destination is a bot token plus the chat it posts to
type Destination struct {
	Token  string
	ChatID string
}

func (d Destination) valid() bool {
	return strings.TrimSpace(d.Token) != "" && strings.TrimSpace(d.ChatID) != ""
}

// Client talks to the Bot API over resty
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a client; every request is bounded by timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		client:  resty.New().SetTimeout(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) endpoint(token, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, strings.TrimSpace(token), method)
}

// GetMe verifies the token and returns the bot's display name
func (c *Client) GetMe(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrNoCredentials
	}

	var out apiResponse
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get(c.endpoint(token, "getMe"))
	if err := check("getMe", &out, err); err != nil {
		return "", err
	}
	return out.Result.FirstName, nil
}

// SendPhotoURL asks Telegram to fetch the photo itself
func (c *Client) SendPhotoURL(ctx context.Context, dst Destination, photoURL, caption string) error {
	return c.postJSON(ctx, dst, "sendPhoto", map[string]any{
		"chat_id":    strings.TrimSpace(dst.ChatID),
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": ParseModeHTML,
	})
}

// SendPhotoUpload uploads the photo bytes as multipart form data
func (c *Client) SendPhotoUpload(ctx context.Context, dst Destination, photo []byte, fileName, caption string) error {
	if !dst.valid() {
		return ErrNoCredentials
	}

	var out apiResponse
	_, err := c.client.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"chat_id":    strings.TrimSpace(dst.ChatID),
			"caption":    caption,
			"parse_mode": ParseModeHTML,
		}).
		SetFileReader("photo", fileName, bytes.NewReader(photo)).
		SetResult(&out).
		SetError(&out).
		Post(c.endpoint(dst.Token, "sendPhoto"))
	return check("sendPhoto", &out, err)
}

// SendMessage posts a text-only message
func (c *Client) SendMessage(ctx context.Context, dst Destination, text string) error {
	return c.postJSON(ctx, dst, "sendMessage", map[string]any{
		"chat_id":    strings.TrimSpace(dst.ChatID),
		"text":       text,
		"parse_mode": ParseModeHTML,
	})
}

func (c *Client) postJSON(ctx context.Context, dst Destination, method string, payload map[string]any) error {
	if !dst.valid() {
		return ErrNoCredentials
	}

	var out apiResponse
	_, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		Post(c.endpoint(dst.Token, method))
	return check(method, &out, err)
}

func check(method string, out *apiResponse, err error) error {
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	if !out.OK {
		desc := out.Description
		if desc == "" {
			desc = "no description"
		}
		return &APIError{Method: method, Code: out.ErrorCode, Description: desc}
	}
	return nil
}
