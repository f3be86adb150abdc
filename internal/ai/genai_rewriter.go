package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiRewriter rewrites articles through the Gemini SDK with a JSON schema
type GeminiRewriter struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGeminiRewriter(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiRewriter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiRewriter{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

func (g *GeminiRewriter) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func rewriteSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    str,
			"body":     str,
			"category": str,
			"severity": str,
		},
		Required: []string{"title", "body"},
	}
}

func (g *GeminiRewriter) Rewrite(ctx context.Context, title, content string) (Rewrite, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(PromptTemplates.RewriteSystem))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = rewriteSchema()
	if g.maxTokens > 0 {
		model.SetMaxOutputTokens(g.maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(BuildRewritePrompt(title, content)))
	if err != nil {
		return Rewrite{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Rewrite{}, fmt.Errorf("no response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return ParseRewrite(sb.String())
}
