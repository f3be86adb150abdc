package media

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher downloads images directly, without a Referer, so hosts that block
// hotlinking from the messaging service still serve the bytes.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates an image fetcher with a per-request timeout
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetResponseBodyLimit(int(maxBytes)).
			SetHeader("User-Agent", browserUserAgent).
			SetHeader("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"),
	}
}

// Fetch returns the image bytes and content type
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetching image %s: %w", imageURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), imageURL)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, "", ErrEmptyImage
	}

	contentType := resp.Header().Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%s did not return an image (%s)", imageURL, contentType)
	}
	return body, contentType, nil
}

// FetchDataURL fetches an image and returns it encoded as a data URL
func (f *Fetcher) FetchDataURL(ctx context.Context, imageURL string) (string, error) {
	data, contentType, err := f.Fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(data, contentType), nil
}
