package scraper

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// contentSelectors are tried in order; the first container present wins
var contentSelectors = []string{
	"article",
	`[class*="article-body"]`,
	`[class*="article-content"]`,
	`[class*="post-content"]`,
	`[class*="entry-content"]`,
	`[class*="story-body"]`,
	`[class*="news-content"]`,
	".content",
	"main",
}

const minParagraphRunes = 30

var boilerplateMarkers = []string{"©", "جميع الحقوق"}

// ExtractContent pulls the article text from rendered HTML. Paragraphs of the
// first matching container are kept when longer than 30 characters and free
// of copyright boilerplate; the result is capped at maxRunes.
func ExtractContent(html string, maxRunes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var container *goquery.Selection
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	if container == nil {
		return "", nil
	}

	var texts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if utf8.RuneCountInString(text) <= minParagraphRunes || isBoilerplate(text) {
			return
		}
		texts = append(texts, text)
	})
	return truncateRunes(strings.Join(texts, "\n\n"), maxRunes), nil
}

// ExtractReadable is the fallback when no known container yields text
func ExtractReadable(html, pageURL string, maxRunes int) string {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}

	var texts []string
	for _, para := range strings.Split(article.TextContent, "\n") {
		para = strings.TrimSpace(para)
		if utf8.RuneCountInString(para) <= minParagraphRunes || isBoilerplate(para) {
			continue
		}
		texts = append(texts, para)
	}
	return truncateRunes(strings.Join(texts, "\n\n"), maxRunes)
}

func isBoilerplate(text string) bool {
	for _, marker := range boilerplateMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
