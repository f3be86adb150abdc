// Package publish delivers one article to the channel, degrading from the
// richest form the article supports down to plain text.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/media"
	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/telegram"
)

const (
	sourceLinkLabel = "المصدر الأصلي"
	hashtags        = "#RT_Intelligence #عاجل"
)

// Tier identifies which delivery attempt produced the outcome
type Tier int

const (
	TierNone Tier = iota
	TierEmbedded
	TierRemoteURL
	TierRefetch
	TierText
)

func (t Tier) String() string {
	switch t {
	case TierEmbedded:
		return "embedded"
	case TierRemoteURL:
		return "remote_url"
	case TierRefetch:
		return "refetch"
	case TierText:
		return "text"
	default:
		return "none"
	}
}

// Messenger is the subset of the Bot API the pipeline drives
type Messenger interface {
	SendPhotoUpload(ctx context.Context, dst telegram.Destination, photo []byte, fileName, caption string) error
	SendPhotoURL(ctx context.Context, dst telegram.Destination, photoURL, caption string) error
	SendMessage(ctx context.Context, dst telegram.Destination, text string) error
}

// ImageFetcher downloads image bytes for the refetch tier
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, string, error)
}

// Outcome reports the tier that settled the delivery
type Outcome struct {
	Tier Tier
	OK   bool
}

// Pipeline runs the tiered delivery
type Pipeline struct {
	messenger Messenger
	fetcher   ImageFetcher
	timeout   time.Duration
}

// NewPipeline creates a pipeline; timeout bounds each network call separately
func NewPipeline(messenger Messenger, fetcher ImageFetcher, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Pipeline{
		messenger: messenger,
		fetcher:   fetcher,
		timeout:   timeout,
	}
}

// Caption renders the HTML caption. It is never truncated.
func Caption(a models.Article) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s\n\n<a href=\"%s\">%s</a>\n\n%s",
		a.Title, a.Body, a.URL, sourceLinkLabel, hashtags)
}

// Publish delivers the article and reports overall success
func (p *Pipeline) Publish(ctx context.Context, a models.Article, creds models.Credentials) bool {
	return p.Deliver(ctx, a, creds).OK
}

// Deliver tries each tier in order and stops at the first success. A failed
// tier is logged and swallowed; the text tier's result is final.
func (p *Pipeline) Deliver(ctx context.Context, a models.Article, creds models.Credentials) Outcome {
	log := logger.Component("publisher").With().Str("article_id", a.ID).Logger()

	if !creds.Complete() {
		log.Warn().Msg("Telegram credentials missing, skipping publish")
		return Outcome{Tier: TierNone}
	}
	creds = creds.Trimmed()
	dst := telegram.Destination{Token: creds.BotToken, ChatID: creds.ChatID}
	caption := Caption(a)

	if a.HasEmbeddedImage() {
		err := p.sendEmbedded(ctx, dst, a.ImageBase64, caption)
		if err == nil {
			return Outcome{Tier: TierEmbedded, OK: true}
		}
		log.Warn().Err(err).Msg("Embedded image delivery failed")
	}

	if a.HasRemoteImage() {
		err := p.call(ctx, func(ctx context.Context) error {
			return p.messenger.SendPhotoURL(ctx, dst, a.ImageURL, caption)
		})
		if err == nil {
			return Outcome{Tier: TierRemoteURL, OK: true}
		}
		log.Warn().Err(err).Str("image_url", a.ImageURL).Msg("Photo by URL rejected, refetching bytes")

		if err := p.sendRefetched(ctx, dst, a.ImageURL, caption); err == nil {
			return Outcome{Tier: TierRefetch, OK: true}
		} else {
			log.Warn().Err(err).Str("image_url", a.ImageURL).Msg("Image refetch delivery failed")
		}
	}

	err := p.call(ctx, func(ctx context.Context) error {
		return p.messenger.SendMessage(ctx, dst, caption)
	})
	if err != nil {
		log.Error().Err(err).Msg("Text delivery failed")
		return Outcome{Tier: TierText}
	}
	return Outcome{Tier: TierText, OK: true}
}

func (p *Pipeline) sendEmbedded(ctx context.Context, dst telegram.Destination, encoded, caption string) error {
	data, contentType, err := media.DecodeDataURL(encoded)
	if err != nil {
		return err
	}
	return p.call(ctx, func(ctx context.Context) error {
		return p.messenger.SendPhotoUpload(ctx, dst, data, media.FileName(contentType), caption)
	})
}

func (p *Pipeline) sendRefetched(ctx context.Context, dst telegram.Destination, imageURL, caption string) error {
	if p.fetcher == nil {
		return fmt.Errorf("no image fetcher configured")
	}

	var (
		data        []byte
		contentType string
	)
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		data, contentType, err = p.fetcher.Fetch(ctx, imageURL)
		return err
	})
	if err != nil {
		return err
	}
	return p.call(ctx, func(ctx context.Context) error {
		return p.messenger.SendPhotoUpload(ctx, dst, data, media.FileName(contentType), caption)
	})
}

func (p *Pipeline) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(ctx)
}
