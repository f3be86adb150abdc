package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/bilgisen/rtfire/internal/models"
)

// Item is one entry of a source feed
type Item struct {
	GUID      string
	SourceID  string
	Title     string
	Summary   string
	URL       string
	Image     string
	Category  string
	Published time.Time
}

type Fetcher struct {
	client *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; rtfire/1.0)"),
	}
}

// FetchFeed downloads and parses an RSS or Atom feed
func (f *Fetcher) FetchFeed(ctx context.Context, src models.Source) ([]Item, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8").
		Get(src.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", src.URL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), src.URL)
	}

	parsed, err := gofeed.NewParser().ParseString(resp.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", src.URL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := Item{
			GUID:     it.GUID,
			SourceID: src.ID,
			Title:    it.Title,
			Summary:  it.Description,
			URL:      it.Link,
			Image:    itemImage(it),
		}
		if item.Summary == "" {
			item.Summary = it.Content
		}
		if len(it.Categories) > 0 {
			item.Category = it.Categories[0]
		}
		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// FetchMultipleFeeds concurrently fetches the given sources. Items from the
// sources that succeeded are returned alongside the first error.
func (f *Fetcher) FetchMultipleFeeds(ctx context.Context, sources []models.Source) ([]Item, error) {
	type result struct {
		items []Item
		err   error
	}

	results := make(chan result, len(sources))

	for _, src := range sources {
		go func(s models.Source) {
			items, err := f.FetchFeed(ctx, s)
			results <- result{items: items, err: err}
		}(src)
	}

	var allItems []Item
	var errs []error

	for i := 0; i < len(sources); i++ {
		res := <-results
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		allItems = append(allItems, res.items...)
	}

	if len(errs) > 0 {
		return allItems, fmt.Errorf("encountered %d errors while fetching feeds, first error: %w", len(errs), errs[0])
	}

	return allItems, nil
}
