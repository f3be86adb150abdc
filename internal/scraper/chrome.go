package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bilgisen/rtfire/internal/logger"
)

const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeOptions configure the headless browser
type ChromeOptions struct {
	ExecPath    string
	NavTimeout  time.Duration
	SettleDelay time.Duration
	ImageWait   time.Duration
}

// Chrome is a Browser backed by one shared headless Chrome process
type Chrome struct {
	opts ChromeOptions

	once          sync.Once
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	startErr      error
}

func NewChrome(opts ChromeOptions) *Chrome {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 45 * time.Second
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.ImageWait <= 0 {
		opts.ImageWait = 5 * time.Second
	}
	return &Chrome{opts: opts}
}

// browser starts the shared process on first use. Tabs are children of the
// browser context; cancelling one closes only that tab.
func (c *Chrome) browser() (context.Context, error) {
	c.once.Do(func() {
		flags := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(chromeUserAgent),
			chromedp.WindowSize(1920, 1080),
			chromedp.NoSandbox,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("lang", "ar-SA"),
		)
		if c.opts.ExecPath != "" {
			flags = append(flags, chromedp.ExecPath(c.opts.ExecPath))
		}
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), flags...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		c.browserCtx = browserCtx
		c.cancelBrowser = func() { cancelBrowser(); cancelAlloc() }

		if err := chromedp.Run(browserCtx); err != nil {
			c.startErr = fmt.Errorf("starting chrome: %w", err)
			logger.Get().Error().Err(err).Msg("Failed to start headless chrome")
		}
	})
	return c.browserCtx, c.startErr
}

// Close shuts the browser process down
func (c *Chrome) Close() {
	if c.cancelBrowser != nil {
		c.cancelBrowser()
	}
}

// Open navigates a new tab to url, waits for the page to settle and for
// images to appear. A page with no images is not an error.
func (c *Chrome) Open(ctx context.Context, url string) (Page, error) {
	browserCtx, err := c.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	stop := context.AfterFunc(ctx, cancel)

	// the first Run allocates the tab and must not carry a timeout
	if err := chromedp.Run(tabCtx); err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(tabCtx, c.opts.NavTimeout)
	defer navCancel()

	err = chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "ar,en-US;q=0.9,en;q=0.8",
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("navigating: %w", err)
	}

	if c.opts.SettleDelay > 0 {
		if err := chromedp.Run(tabCtx, chromedp.Sleep(c.opts.SettleDelay)); err != nil {
			stop()
			cancel()
			return nil, err
		}
	}

	waitCtx, waitCancel := context.WithTimeout(tabCtx, c.opts.ImageWait)
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("img[src]", chromedp.ByQuery)); err != nil {
		logger.Get().Debug().Str("url", url).Msg("No images appeared before timeout")
	}
	waitCancel()

	return &chromePage{ctx: tabCtx, cancel: func() { stop(); cancel() }}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// snapshotJS tags every image with data-rt-idx so the chosen one can be
// found again by selector.
const snapshotJS = `(() => {
  const box = (el) => {
    const r = el.getBoundingClientRect();
    return { top: r.top + window.scrollY, left: r.left + window.scrollX, width: r.width, height: r.height };
  };
  const h1 = document.querySelector('h1');
  const images = Array.from(document.querySelectorAll('img')).map((img, i) => {
    img.setAttribute('data-rt-idx', String(i));
    return {
      src: img.src || '',
      dataSrc: img.dataset.src || '',
      dataLazySrc: img.dataset.lazySrc || '',
      selector: 'img[data-rt-idx="' + i + '"]',
      rect: box(img),
    };
  });
  return {
    title: h1 ? h1.innerText.trim() : '',
    documentTitle: document.title || '',
    headline: h1 ? box(h1) : null,
    images: images,
  };
})()`

func (p *chromePage) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var html string
	err := p.run(ctx,
		chromedp.Evaluate(snapshotJS, &snap),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return Snapshot{}, err
	}
	snap.HTML = html
	return snap, nil
}

func (p *chromePage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

const fetchJS = `(async (u) => {
  const r = await fetch(u, { credentials: 'include' });
  if (!r.ok) throw new Error('status ' + r.status);
  const blob = await r.blob();
  return await new Promise((resolve, reject) => {
    const reader = new FileReader();
    reader.onloadend = () => resolve(reader.result);
    reader.onerror = () => reject(reader.error);
    reader.readAsDataURL(blob);
  });
})(%s)`

func (p *chromePage) FetchDataURL(ctx context.Context, imageURL string) (string, error) {
	arg, err := json.Marshal(imageURL)
	if err != nil {
		return "", err
	}

	var dataURL string
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf(fetchJS, arg), &dataURL,
		func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithAwaitPromise(true)
		}))
	if err != nil {
		return "", err
	}
	return dataURL, nil
}

func (p *chromePage) Close() {
	p.cancel()
}

// run executes actions on the tab, bounded by the caller's deadline
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
