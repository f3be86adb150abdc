package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an article
type Status string

const (
	StatusMonitoring Status = "monitoring"
	StatusScheduled  Status = "scheduled"
	StatusPublished  Status = "published"
)

const (
	DefaultCategory = "عام"
	DefaultSeverity = "متوسط"
)

// Article is a discovered or scraped news item moving through the publish queue
type Article struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	OriginalBody     string    `json:"original_body,omitempty"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	ImageURL         string    `json:"image_url,omitempty"`
	OriginalImageURL string    `json:"original_image_url,omitempty"`
	ImageBase64      string    `json:"image_base64,omitempty"`
	Category         string    `json:"category"`
	Severity         string    `json:"severity"`
	CreatedAt        time.Time `json:"created_at"`
	Status           Status    `json:"status"`
	ScheduledAt      string    `json:"scheduled_at,omitempty"`
	PublishedAt      time.Time `json:"published_at,omitempty"`
}

// NewArticle returns an article with a fresh id, creation time and default tags.
func NewArticle(url, title, body string) Article {
	return Article{
		ID:        uuid.NewString(),
		URL:       url,
		Title:     title,
		Body:      body,
		Category:  DefaultCategory,
		Severity:  DefaultSeverity,
		CreatedAt: time.Now(),
		Status:    StatusMonitoring,
	}
}

// HasEmbeddedImage reports whether the article carries an encoded image blob
func (a Article) HasEmbeddedImage() bool {
	return a.ImageBase64 != ""
}

// HasRemoteImage reports whether the article references an http(s) image
func (a Article) HasRemoteImage() bool {
	return len(a.ImageURL) >= 4 && a.ImageURL[:4] == "http"
}

// ApplyDefaults fills the free-text tags when they are missing
func (a *Article) ApplyDefaults() {
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Severity == "" {
		a.Severity = DefaultSeverity
	}
}
