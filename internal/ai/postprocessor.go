package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
)

// Rewriter turns scraped text into the house style
type Rewriter interface {
	Rewrite(ctx context.Context, title, content string) (Rewrite, error)
}

// Rewrite is the validated output of a rewrite call
type Rewrite struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// DiscoveredItem is one element of the discovery array. The alternate
// names are accepted because the model does not always follow the template.
type DiscoveredItem struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	ImageURL         string `json:"imageUrl"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	RewrittenTitle   string `json:"rewrittenTitle"`
	RewrittenContent string `json:"rewrittenContent"`
	ThreatLevel      string `json:"threatLevel"`
}

// ParseRewrite decodes a model reply into a Rewrite
func ParseRewrite(text string) (Rewrite, error) {
	var out Rewrite
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &out); err != nil {
		return Rewrite{}, fmt.Errorf("failed to parse rewrite: %w", err)
	}
	return out, nil
}

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptBlock  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	unsafeTags   = regexp.MustCompile(`(?i)</?(script|iframe|object|embed|link|meta|style)[^>]*>`)
)

type PostProcessor struct{}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{}
}

// cleanText removes control characters and collapses whitespace on one line
func (p *PostProcessor) cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// cleanBody strips unsafe markup and keeps paragraph breaks
func (p *PostProcessor) cleanBody(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = unsafeTags.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = controlChars.ReplaceAllString(s, " ")

	paragraphs := strings.Split(s, "\n\n")
	out := paragraphs[:0]
	for _, para := range paragraphs {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return strings.Join(out, "\n\n")
}

// ValidateDiscovered drops items missing a url, title, body or image URL and
// converts the rest into monitoring articles.
func (p *PostProcessor) ValidateDiscovered(items []DiscoveredItem) ([]models.Article, []error) {
	var (
		articles []models.Article
		errs     []error
	)
	for i, item := range items {
		title := firstNonEmpty(item.Title, item.RewrittenTitle)
		body := firstNonEmpty(item.Body, item.RewrittenContent)
		url := strings.TrimSpace(item.URL)
		image := strings.TrimSpace(item.ImageURL)

		if url == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" || image == "" {
			errs = append(errs, fmt.Errorf("item %d: missing url, title, body or imageUrl", i))
			continue
		}

		a := models.NewArticle(url, p.cleanText(title), p.cleanBody(body))
		a.ImageURL = image
		a.Category = p.cleanText(item.Category)
		a.Severity = p.cleanText(firstNonEmpty(item.Severity, item.ThreatLevel))
		a.ApplyDefaults()
		articles = append(articles, a)
	}
	return articles, errs
}

// Finalize cleans a rewrite, falling back to the original text field by field
func (p *PostProcessor) Finalize(r Rewrite, title, body string) Rewrite {
	out := Rewrite{
		Title:    p.cleanText(r.Title),
		Body:     p.cleanBody(r.Body),
		Category: p.cleanText(r.Category),
		Severity: p.cleanText(r.Severity),
	}
	if out.Title == "" {
		out.Title = p.cleanText(title)
	}
	if out.Body == "" {
		out.Body = p.cleanBody(body)
	}
	if out.Category == "" {
		out.Category = models.DefaultCategory
	}
	if out.Severity == "" {
		out.Severity = models.DefaultSeverity
	}
	return out
}

// RewriteOrEcho calls the rewriter and never fails: any error yields the
// original title and body with default tags.
func RewriteOrEcho(ctx context.Context, r Rewriter, title, body string) (Rewrite, bool) {
	p := NewPostProcessor()
	if r == nil {
		return p.Finalize(Rewrite{}, title, body), false
	}

	result, err := r.Rewrite(ctx, title, body)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("Rewrite failed, echoing original text")
		return p.Finalize(Rewrite{}, title, body), false
	}
	return p.Finalize(result, title, body), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
