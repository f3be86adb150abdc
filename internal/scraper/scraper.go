// Package scraper renders a news page in a headless browser and recovers its
// headline, body text and hero image.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/rtfire/internal/heroimage"
	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/media"
)

// Snapshot is what the page reports after rendering
type Snapshot struct {
	Title         string              `json:"title"`
	DocumentTitle string              `json:"documentTitle"`
	Headline      *heroimage.Rect     `json:"headline"`
	Images        []heroimage.Element `json:"images"`
	HTML          string              `json:"-"`
}

// Page is one rendered tab
type Page interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	FetchDataURL(ctx context.Context, imageURL string) (string, error)
	Close()
}

// Browser opens pages
type Browser interface {
	Open(ctx context.Context, url string) (Page, error)
}

// Result is the scraped article
type Result struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	ImageBase64      string `json:"image_base64,omitempty"`
	OriginalImageURL string `json:"original_image_url,omitempty"`
}

// Options configure extraction
type Options struct {
	Rules    heroimage.Rules
	MaxRunes int
	// CaptureTimeout bounds the hero capture attempts
	CaptureTimeout time.Duration
}

type Scraper struct {
	browser Browser
	images  *media.Fetcher
	opts    Options
}

func New(browser Browser, opts Options) *Scraper {
	if opts.MaxRunes <= 0 {
		opts.MaxRunes = 3000
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 15 * time.Second
	}
	if opts.Rules.ProximityBand == 0 {
		opts.Rules = heroimage.DefaultRules()
	}
	return &Scraper{browser: browser, opts: opts}
}

// WithFetcher sets the direct-download fallback used by FetchImage
func (s *Scraper) WithFetcher(f *media.Fetcher) *Scraper {
	s.images = f
	return s
}

// Scrape renders the page and extracts headline, text and hero image. A page
// without an eligible image is not an error.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (Result, error) {
	log := logger.Get().With().Str("url", pageURL).Logger()
	start := time.Now()

	page, err := s.browser.Open(ctx, pageURL)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", pageURL, err)
	}
	defer page.Close()

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading page %s: %w", pageURL, err)
	}

	res := Result{URL: pageURL, Title: strings.TrimSpace(snap.Title)}
	if res.Title == "" {
		res.Title = strings.TrimSpace(snap.DocumentTitle)
	}

	res.Content, err = ExtractContent(snap.HTML, s.opts.MaxRunes)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse rendered HTML")
	}
	if res.Content == "" {
		res.Content = ExtractReadable(snap.HTML, pageURL, s.opts.MaxRunes)
	}

	if hero, ok := s.opts.Rules.Select(snap.Images, snap.Headline); ok {
		res.OriginalImageURL = hero.SourceRef
		res.ImageBase64 = s.capture(ctx, page, hero)
	} else {
		log.Debug().Int("images", len(snap.Images)).Msg("No eligible hero image")
	}

	log.Info().
		Bool("has_image", res.ImageBase64 != "").
		Int("content_runes", len([]rune(res.Content))).
		Dur("duration", time.Since(start)).
		Msg("Scraped article")
	return res, nil
}

// capture screenshots the hero element, falling back to fetching its bytes
// from inside the page so cookies and referer match the site.
func (s *Scraper) capture(ctx context.Context, page Page, hero heroimage.Candidate) string {
	log := logger.Get().With().Str("image", hero.SourceRef).Logger()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CaptureTimeout)
	defer cancel()

	if hero.Selector != "" {
		shot, err := page.Screenshot(ctx, hero.Selector)
		if err == nil && len(shot) > 0 {
			return media.EncodeDataURL(shot, "image/png")
		}
		log.Debug().Err(err).Msg("Element screenshot failed, fetching in page")
	}

	dataURL, err := page.FetchDataURL(ctx, hero.SourceRef)
	if err == nil && strings.HasPrefix(dataURL, "data:") {
		return dataURL
	}
	log.Warn().Err(err).Msg("Hero image capture failed")
	return ""
}

// ErrNoImage is returned when an image could not be retrieved by any route
var ErrNoImage = errors.New("image could not be retrieved")

// FetchImage returns an image as a data URL. When pageURL is given the image
// is fetched from inside that page first; direct download is the fallback.
func (s *Scraper) FetchImage(ctx context.Context, imageURL, pageURL string) (string, error) {
	if pageURL != "" && s.browser != nil {
		page, err := s.browser.Open(ctx, pageURL)
		if err == nil {
			dataURL, ferr := page.FetchDataURL(ctx, imageURL)
			page.Close()
			if ferr == nil && strings.HasPrefix(dataURL, "data:") {
				return dataURL, nil
			}
			err = ferr
		}
		logger.Get().Debug().Err(err).Str("image", imageURL).Msg("In-page image fetch failed")
	}

	if s.images == nil {
		return "", ErrNoImage
	}
	dataURL, err := s.images.FetchDataURL(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	return dataURL, nil
}
