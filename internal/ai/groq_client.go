package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqRewriter calls an OpenAI-compatible chat completions endpoint
type GroqRewriter struct {
	client    *resty.Client
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewGroqRewriter(apiKey, model string, maxTokens int, timeout time.Duration) *GroqRewriter {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &GroqRewriter{
		client:    resty.New().SetTimeout(timeout),
		apiKey:    apiKey,
		model:     model,
		baseURL:   groqBaseURL,
		maxTokens: maxTokens,
	}
}

// WithBaseURL points the rewriter at another endpoint
func (g *GroqRewriter) WithBaseURL(baseURL string) *GroqRewriter {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

// Rewrite returns the model's rewrite; reasoning markup is stripped
func (g *GroqRewriter) Rewrite(ctx context.Context, title, content string) (Rewrite, error) {
	if g.apiKey == "" {
		return Rewrite{}, fmt.Errorf("groq api key not configured")
	}

	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: PromptTemplates.RewriteSystem},
			{Role: "user", Content: BuildRewritePrompt(title, content)},
		},
		Temperature: 0.6,
		MaxTokens:   g.maxTokens,
	}

	var resp chatResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(g.baseURL + "/chat/completions")
	if err != nil {
		return Rewrite{}, fmt.Errorf("groq request failed: %w", err)
	}
	if resp.Error != nil {
		return Rewrite{}, fmt.Errorf("groq error: %s", resp.Error.Message)
	}
	if httpResp.IsError() {
		return Rewrite{}, fmt.Errorf("groq returned status %d", httpResp.StatusCode())
	}
	if len(resp.Choices) == 0 {
		return Rewrite{}, fmt.Errorf("no choices in response")
	}

	return ParseRewrite(resp.Choices[0].Message.Content)
}
