package feed

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/bilgisen/rtfire/internal/models"
)

// Parser handles cleaning and normalizing feed items
type Parser struct {
	htmlTagRegex *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		htmlTagRegex: regexp.MustCompile(`<[^>]*>`),
	}
}

// CleanHTML removes HTML tags and normalizes whitespace
func (p *Parser) CleanHTML(input string) string {
	cleaned := p.htmlTagRegex.ReplaceAllString(input, " ")
	cleaned = html.UnescapeString(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSpace(cleaned)
}

// NormalizeItem cleans a single feed item
func (p *Parser) NormalizeItem(item Item) Item {
	item.GUID = strings.TrimSpace(item.GUID)
	item.Title = p.CleanHTML(item.Title)
	item.Summary = p.CleanHTML(item.Summary)
	item.URL = strings.TrimSpace(item.URL)
	item.Image = strings.TrimSpace(item.Image)
	item.Category = p.CleanHTML(item.Category)
	if item.GUID == "" {
		item.GUID = item.URL
	}
	return item
}

// ValidateItem checks if the feed item has the required fields
func (p *Parser) ValidateItem(item Item) error {
	if item.Title == "" {
		return fmt.Errorf("missing required field: title")
	}
	if !strings.HasPrefix(item.URL, "http") {
		return fmt.Errorf("missing required field: url")
	}
	return nil
}

// ToArticle converts a normalized item into a monitoring article
func (p *Parser) ToArticle(item Item) models.Article {
	a := models.NewArticle(item.URL, item.Title, item.Summary)
	a.OriginalTitle = item.Title
	a.OriginalBody = item.Summary
	a.ImageURL = item.Image
	a.OriginalImageURL = item.Image
	if item.Category != "" {
		a.Category = item.Category
	}
	if !item.Published.IsZero() {
		a.CreatedAt = item.Published
	}
	return a
}

// ProcessItems concurrently normalizes and validates a slice of feed items
func (p *Parser) ProcessItems(ctx context.Context, items []Item) ([]Item, []error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var validItems []Item
	var errs []error

	semaphore := make(chan struct{}, 10)

	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return validItems, append(errs, ctx.Err())
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(item Item) {
			defer wg.Done()
			defer func() { <-semaphore }()

			normalized := p.NormalizeItem(item)
			if err := p.ValidateItem(normalized); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("invalid feed item %s: %w", item.GUID, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			validItems = append(validItems, normalized)
			mu.Unlock()
		}(item)
	}

	wg.Wait()
	return validItems, errs
}
