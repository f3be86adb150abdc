package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bilgisen/rtfire/internal/cache"
	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/models"
)

// Processor turns source feeds into new monitoring articles
type Processor struct {
	fetcher *Fetcher
	parser  *Parser
	cache   cache.Processed
	ttl     time.Duration
}

func NewProcessor(fetcher *Fetcher, processed cache.Processed, ttl time.Duration) *Processor {
	return &Processor{
		fetcher: fetcher,
		parser:  NewParser(),
		cache:   processed,
		ttl:     ttl,
	}
}

// ScanSources fetches every source, drops invalid and already seen items and
// returns the rest as articles, oldest first. Returned URLs are marked seen.
func (p *Processor) ScanSources(ctx context.Context, sources []models.Source) ([]models.Article, error) {
	log := logger.Get()
	start := time.Now()
	log.Info().Int("sources", len(sources)).Msg("Starting to scan sources")

	if len(sources) == 0 {
		return nil, nil
	}

	items, fetchErr := p.fetcher.FetchMultipleFeeds(ctx, sources)
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Msg("Some sources failed to fetch")
		if len(items) == 0 {
			return nil, fmt.Errorf("error fetching feeds: %w", fetchErr)
		}
	}

	validItems, errs := p.parser.ProcessItems(ctx, items)
	if len(errs) > 0 {
		log.Debug().Errs("validation_errors", errs).Msg("Dropped invalid feed items")
	}

	uniqueItems, err := p.filterDuplicates(ctx, validItems)
	if err != nil {
		return nil, fmt.Errorf("error filtering duplicates: %w", err)
	}

	articles := make([]models.Article, 0, len(uniqueItems))
	urls := make([]string, 0, len(uniqueItems))
	for _, item := range uniqueItems {
		articles = append(articles, p.parser.ToArticle(item))
		urls = append(urls, item.URL)
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.Before(articles[j].CreatedAt)
	})

	if err := p.MarkAsProcessed(ctx, urls); err != nil {
		log.Error().Err(err).Msg("Error marking items as processed")
	}

	log.Info().
		Int("fetched", len(items)).
		Int("valid", len(validItems)).
		Int("new", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Finished scanning sources")
	return articles, nil
}

// filterDuplicates removes items that were already seen, including repeats
// within the same batch.
func (p *Processor) filterDuplicates(ctx context.Context, items []Item) ([]Item, error) {
	log := logger.Get()
	seen := make(map[string]bool, len(items))
	var unique []Item

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true

		processed, err := p.cache.IsProcessed(ctx, item.URL)
		if err != nil {
			log.Error().Err(err).Str("url", item.URL).Msg("Error checking cache for item")
			continue
		}
		if processed {
			log.Debug().Str("url", item.URL).Msg("Skipping already processed item")
			continue
		}
		unique = append(unique, item)
	}
	return unique, nil
}

// MarkAsProcessed marks the given URLs as processed in the cache
func (p *Processor) MarkAsProcessed(ctx context.Context, urls []string) error {
	for _, url := range urls {
		if err := p.cache.MarkProcessed(ctx, url, p.ttl); err != nil {
			return fmt.Errorf("error marking %s as processed: %w", url, err)
		}
	}
	return nil
}
