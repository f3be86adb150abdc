package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/rtfire/internal/heroimage"
	"github.com/bilgisen/rtfire/internal/media"
)

const articleHTML = `<html><head><title>Doc title</title></head><body>
<nav><p>قائمة التنقل الرئيسية للموقع الإخباري الكبير جداً</p></nav>
<article>
  <h1>عنوان الخبر</h1>
  <p>قصير</p>
  <p>هذه فقرة طويلة بما يكفي لتجاوز حد الثلاثين حرفاً المطلوب للاحتفاظ بها.</p>
  <p>© 2026 هذه فقرة حقوق نشر طويلة يجب استبعادها من النص النهائي.</p>
  <p>جميع الحقوق محفوظة لهذه المؤسسة الإعلامية وفق القوانين المعمول بها.</p>
  <p>فقرة ثانية طويلة بما يكفي تصف تفاصيل الحدث ومكانه وزمانه بدقة.</p>
</article>
</body></html>`

func TestExtractContentFiltersParagraphs(t *testing.T) {
	got, err := ExtractContent(articleHTML, 3000)
	if err != nil {
		t.Fatalf("ExtractContent: %v", err)
	}
	want := "هذه فقرة طويلة بما يكفي لتجاوز حد الثلاثين حرفاً المطلوب للاحتفاظ بها.\n\nفقرة ثانية طويلة بما يكفي تصف تفاصيل الحدث ومكانه وزمانه بدقة."
	if got != want {
		t.Errorf("unexpected content:\n got %q\nwant %q", got, want)
	}
}

func TestExtractContentSelectorPriority(t *testing.T) {
	html := `<html><body>
<main><p>نص من العنصر الرئيسي يجب ألا يستخدم لأن هناك حاوية أفضل.</p></main>
<div class="story-body-wrapper"><p>نص من حاوية القصة وهو الذي يجب أن يظهر في النتيجة.</p></div>
</body></html>`
	got, _ := ExtractContent(html, 3000)
	if !strings.HasPrefix(got, "نص من حاوية القصة") {
		t.Errorf("expected story-body container to win, got %q", got)
	}
}

func TestExtractContentCapsRunes(t *testing.T) {
	para := strings.Repeat("خ", 100)
	html := "<article><p>" + para + "</p><p>" + para + "</p></article>"
	got, _ := ExtractContent(html, 150)
	if n := len([]rune(got)); n != 150 {
		t.Errorf("expected 150 runes, got %d", n)
	}
}

func TestExtractContentNoContainer(t *testing.T) {
	got, err := ExtractContent("<html><body><div><p>لا توجد حاوية معروفة في هذه الصفحة على الإطلاق.</p></div></body></html>", 3000)
	if err != nil || got != "" {
		t.Errorf("expected empty content, got %q err %v", got, err)
	}
}

type fakePage struct {
	snap     Snapshot
	shot     []byte
	shotErr  error
	fetched  string
	fetchErr error
	shotSel  string
	fetchURL string
	closed   bool
}

func (p *fakePage) Snapshot(ctx context.Context) (Snapshot, error) { return p.snap, nil }

func (p *fakePage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	p.shotSel = selector
	return p.shot, p.shotErr
}

func (p *fakePage) FetchDataURL(ctx context.Context, imageURL string) (string, error) {
	p.fetchURL = imageURL
	return p.fetched, p.fetchErr
}

func (p *fakePage) Close() { p.closed = true }

type fakeBrowser struct {
	page *fakePage
	err  error
}

func (b *fakeBrowser) Open(ctx context.Context, url string) (Page, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.page, nil
}

func heroSnapshot() Snapshot {
	return Snapshot{
		Title:    "عنوان الخبر",
		Headline: &heroimage.Rect{Top: 100, Height: 50},
		Images: []heroimage.Element{
			{Src: "https://cdn/logo.png", Selector: `img[data-rt-idx="0"]`, Rect: heroimage.Rect{Top: 0, Width: 400, Height: 300}},
			{Src: "https://cdn/hero.jpg", Selector: `img[data-rt-idx="1"]`, Rect: heroimage.Rect{Top: 200, Width: 800, Height: 450}},
			{Src: "https://cdn/footer.jpg", Selector: `img[data-rt-idx="2"]`, Rect: heroimage.Rect{Top: 3000, Width: 1200, Height: 800}},
		},
		HTML: articleHTML,
	}
}

func TestScrapeCapturesHeroByScreenshot(t *testing.T) {
	page := &fakePage{snap: heroSnapshot(), shot: []byte("png-bytes")}
	s := New(&fakeBrowser{page: page}, Options{})

	res, err := s.Scrape(context.Background(), "https://news/1")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if res.Title != "عنوان الخبر" || res.OriginalImageURL != "https://cdn/hero.jpg" {
		t.Errorf("unexpected result %+v", res)
	}
	if page.shotSel != `img[data-rt-idx="1"]` {
		t.Errorf("expected hero selector, got %q", page.shotSel)
	}
	if res.ImageBase64 != media.EncodeDataURL([]byte("png-bytes"), "image/png") {
		t.Errorf("unexpected image payload %q", res.ImageBase64)
	}
	if res.Content == "" {
		t.Error("expected extracted content")
	}
	if !page.closed {
		t.Error("expected page to be closed")
	}
}

func TestScrapeFallsBackToInPageFetch(t *testing.T) {
	page := &fakePage{
		snap:    heroSnapshot(),
		shotErr: errors.New("node not visible"),
		fetched: "data:image/jpeg;base64,AAAA",
	}
	s := New(&fakeBrowser{page: page}, Options{})

	res, _ := s.Scrape(context.Background(), "https://news/1")
	if res.ImageBase64 != "data:image/jpeg;base64,AAAA" || page.fetchURL != "https://cdn/hero.jpg" {
		t.Errorf("expected in-page fetch fallback, got %+v", res)
	}
}

func TestScrapeWithoutEligibleImage(t *testing.T) {
	snap := heroSnapshot()
	snap.Images = snap.Images[:1]
	snap.Title = ""
	snap.DocumentTitle = "Doc title"
	page := &fakePage{snap: snap}

	res, err := New(&fakeBrowser{page: page}, Options{}).Scrape(context.Background(), "https://news/1")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if res.ImageBase64 != "" || res.OriginalImageURL != "" {
		t.Errorf("expected no image, got %+v", res)
	}
	if res.Title != "Doc title" {
		t.Errorf("expected document title fallback, got %q", res.Title)
	}
}

func TestScrapeOpenError(t *testing.T) {
	_, err := New(&fakeBrowser{err: errors.New("timeout")}, Options{}).Scrape(context.Background(), "https://news/1")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchImageFallsBackToDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\nbody"))
	}))
	defer srv.Close()

	page := &fakePage{fetchErr: errors.New("cors")}
	s := New(&fakeBrowser{page: page}, Options{}).WithFetcher(media.NewFetcher(2*time.Second, 0))

	got, err := s.FetchImage(context.Background(), srv.URL+"/a.png", "https://news/1")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("unexpected data url %q", got)
	}
}
