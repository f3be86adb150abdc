package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
)

// GeminiClient runs discovery against the Gemini REST API with search grounding
type GeminiClient struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
	post    *PostProcessor
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		client:  resty.New().SetTimeout(timeout),
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		post:    NewPostProcessor(),
	}
}

// WithBaseURL points the client at another endpoint
func (g *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

// Discover searches the open web for recent items matching query. Items
// missing a url, title, body or image are dropped; the rest are returned
// as monitoring articles with default tags applied.
func (g *GeminiClient) Discover(ctx context.Context, query, timeframe string, known []string) ([]models.Article, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	log := logger.Get()
	start := time.Now()

	text, err := g.generate(ctx, BuildDiscoveryPrompt(query, timeframe, known), true)
	if err != nil {
		return nil, fmt.Errorf("error calling Gemini API: %w", err)
	}

	var raw []DiscoveredItem
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		log.Warn().Err(err).Msg("Discovery returned malformed JSON")
		return nil, nil
	}

	articles, errs := g.post.ValidateDiscovered(raw)
	if len(errs) > 0 {
		log.Debug().Errs("dropped", errs).Msg("Dropped incomplete discovery items")
	}

	log.Info().
		Str("query", query).
		Int("received", len(raw)).
		Int("kept", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Discovery finished")
	return articles, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, search bool) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if search {
		req.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	var resp geminiResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", g.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if httpResp.IsError() {
		return "", fmt.Errorf("API returned status %d", httpResp.StatusCode())
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
