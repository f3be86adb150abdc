package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyImage is returned when there is nothing to decode
var ErrEmptyImage = errors.New("empty image payload")

// EncodeDataURL wraps raw image bytes as a base64 data URL
func EncodeDataURL(data []byte, contentType string) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL accepts either a data URL or a bare base64 string and returns
// the image bytes with their content type.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrEmptyImage
	}

	contentType := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		meta := s[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("data URL is not base64 encoded")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		payload = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", fmt.Errorf("decoding base64 image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// FileName returns an upload name with an extension matching the content type
func FileName(contentType string) string {
	switch contentType {
	case "image/png":
		return "news_image.png"
	case "image/webp":
		return "news_image.webp"
	case "image/gif":
		return "news_image.gif"
	default:
		return "news_image.jpg"
	}
}
