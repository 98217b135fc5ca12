// internal/engine/dynamic/browser.go
package dynamic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/rs/zerolog/log"
)

// Page is a rendered browser tab reduced to what listing discovery needs
type Page interface {
	// Navigate loads url and waits for the body to be ready
	Navigate(url string) error
	// Attributes returns attr of every element matching selector. Properties
	// win over attributes so that href comes back absolute.
	Attributes(selector, attr string) ([]string, error)
	// ClickByLabel clicks the first visible control whose text matches one
	// of patterns (case-insensitive regular expressions, tried in order) and
	// returns its text, or "" when nothing matched.
	ClickByLabel(patterns []string) (string, error)
	ScrollToBottom() error
	HTML() (string, error)
	Close() error
}

// Opener starts a fresh Page
type Opener interface {
	Open(ctx context.Context) (Page, error)
}

// LaunchOptions configures the headless browser
type LaunchOptions struct {
	Headless          bool
	UserAgent         string
	Proxy             string
	ChromePath        string
	NavigationTimeout time.Duration
	BlockResources    bool
}

// Launcher starts one browser per Open call
type Launcher struct {
	opts LaunchOptions
}

// NewLauncher returns a Launcher with defaults applied
func NewLauncher(opts LaunchOptions) *Launcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 90 * time.Second
	}
	return &Launcher{opts: opts}
}

// Browser is a chromedp-backed Page owning its allocator and tab
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration
}

// blockedResources are never downloaded when resource blocking is on
var blockedResources = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeMedia,
	network.ResourceTypeFont,
	network.ResourceTypeStylesheet,
}

// Open launches Chrome and returns a ready tab. The caller must Close it.
func (l *Launcher) Open(ctx context.Context) (Page, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("lang", "pl-PL"),
	}
	if path := FindChrome(l.opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if l.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(l.opts.UserAgent))
	}
	if l.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if l.opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(l.opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		navTimeout:  l.opts.NavigationTimeout,
	}

	actions := []chromedp.Action{network.Enable()}
	if l.opts.BlockResources {
		b.blockResources()
		patterns := make([]*fetch.RequestPattern, 0, len(blockedResources))
		for _, rt := range blockedResources {
			patterns = append(patterns, &fetch.RequestPattern{URLPattern: "*", ResourceType: rt})
		}
		actions = append(actions, fetch.Enable().WithPatterns(patterns))
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeConfig, "failed to start browser", err)
	}

	log.Debug().
		Bool("headless", l.opts.Headless).
		Bool("block_resources", l.opts.BlockResources).
		Msg("Browser started")
	return b, nil
}

// blockResources fails every request paused by the fetch domain
func (b *Browser) blockResources() {
	chromedp.ListenTarget(b.ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(b.ctx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(b.ctx, c.Target)
			if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
				log.Debug().Err(err).Str("url", paused.Request.URL).Msg("Failed to block request")
			}
		}()
	})
}

// Navigate implements Page
func (b *Browser) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.navTimeout)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return engine.TransportError(url, fmt.Errorf("navigation failed: %w", err))
	}
	log.Debug().Str("url", url).Dur("elapsed", time.Since(start)).Msg("Navigation completed")
	return nil
}

// Attributes implements Page
func (b *Browser) Attributes(selector, attr string) ([]string, error) {
	var out []string
	if err := chromedp.Run(b.ctx, chromedp.Evaluate(attributesScript(selector, attr), &out)); err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	return out, nil
}

// ClickByLabel implements Page
func (b *Browser) ClickByLabel(patterns []string) (string, error) {
	if len(patterns) == 0 {
		return "", nil
	}
	var label string
	if err := chromedp.Run(b.ctx, chromedp.Evaluate(clickScript(patterns), &label)); err != nil {
		return "", fmt.Errorf("click by label: %w", err)
	}
	return label, nil
}

// ScrollToBottom implements Page
func (b *Browser) ScrollToBottom() error {
	var ignored interface{}
	return chromedp.Run(b.ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &ignored))
}

// HTML implements Page
func (b *Browser) HTML() (string, error) {
	var html string
	if err := chromedp.Run(b.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close tears down the tab and the browser process
func (b *Browser) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

// WithPage opens a page, runs fn and always closes the page afterwards
func WithPage(ctx context.Context, opener Opener, fn func(Page) error) error {
	page, err := opener.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close browser")
		}
	}()
	return fn(page)
}

func attributesScript(selector, attr string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => String(e[%[2]s] || e.getAttribute(%[2]s) || ''))`,
		jsString(selector), jsString(attr))
}

func clickScript(patterns []string) string {
	list, _ := json.Marshal(patterns)
	return fmt.Sprintf(`(function(patterns) {
  const controls = Array.from(document.querySelectorAll('button, a, [role="button"], input[type="button"], input[type="submit"]'));
  for (const p of patterns) {
    const re = new RegExp(p, 'i');
    for (const el of controls) {
      const text = (el.innerText || el.value || el.getAttribute('aria-label') || '').trim();
      if (!text || !re.test(text) || el.disabled) continue;
      const r = el.getBoundingClientRect();
      if (r.width === 0 && r.height === 0) continue;
      el.scrollIntoView({block: 'center'});
      el.click();
      return text;
    }
  }
  return '';
})(%s)`, list)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
