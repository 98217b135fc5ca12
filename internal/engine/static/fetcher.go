// internal/engine/static/fetcher.go
package static

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/proxy"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/rs/zerolog/log"
)

// DefaultUserAgent is a desktop browser string; the marketplaces serve a
// reduced page to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBodySize caps how much of a response is read into memory
const maxBodySize = 16 << 20

// Options configures a Fetcher
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Retry     retry.Config
	Limiter   ratelimit.RateLimiter
	Proxies   *proxy.ProxyPool
	Client    *http.Client // used as is when set, proxies are then ignored
}

// Fetcher performs plain HTTP GETs with retry, per-host throttling and an
// optional rotating proxy.
type Fetcher struct {
	opts Options

	mu      sync.Mutex
	clients map[string]*http.Client
}

// Response is a fully read HTTP response
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// New creates a Fetcher, filling unset options with defaults
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	return &Fetcher{opts: opts, clients: make(map[string]*http.Client)}
}

// Get fetches rawURL. Non-2xx statuses are returned as errors; 404 and 410
// are reported as NOT_FOUND, exhausted transient failures as TRANSIENT.
func (f *Fetcher) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	var resp *Response
	err := retry.WithRetry(ctx, f.opts.Retry, func() error {
		r, err := f.do(ctx, rawURL, headers)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, engine.TransportError(rawURL, err)
	}
	return resp, nil
}

// GetHTML fetches rawURL and parses it, returning the document and markup
func (f *Fetcher) GetHTML(ctx context.Context, rawURL string, headers map[string]string) (*goquery.Document, string, error) {
	h := map[string]string{"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"}
	for k, v := range headers {
		h[k] = v
	}
	resp, err := f.Get(ctx, rawURL, h)
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, "", engine.NewEngineError(engine.ErrCodeDecode, "failed to parse HTML", err).WithDetail(engine.DetailURL, rawURL)
	}
	return doc, string(resp.Body), nil
}

// GetJSON fetches rawURL and decodes the body into out. Numbers decode as
// json.Number when out is a map or interface.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	h := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	resp, err := f.Get(ctx, rawURL, h)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return engine.NewEngineError(engine.ErrCodeDecode, "failed to decode JSON", err).WithDetail(engine.DetailURL, rawURL)
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	if err := f.opts.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeConfig, "failed to create request", err).WithDetail(engine.DetailURL, rawURL)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	client, proxyURL := f.client()
	start := time.Now()

	log.Debug().
		Str("url", rawURL).
		Str("proxy", proxyURL).
		Msg("Starting fetch")

	res, err := client.Do(req)
	if err != nil {
		if proxyURL != "" {
			f.opts.Proxies.MarkFailed(proxyURL)
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if proxyURL != "" {
		f.opts.Proxies.MarkHealthy(proxyURL)
	}

	elapsed := time.Since(start)
	log.Debug().
		Str("url", rawURL).
		Int("status", res.StatusCode).
		Int64("response_time_ms", elapsed.Milliseconds()).
		Int("bytes", len(body)).
		Msg("Fetch completed")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, retry.NewHTTPError(res.StatusCode, res.Status, "")
	}

	return &Response{
		URL:        rawURL,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}

// client returns the HTTP client for the next proxy, or the direct client
func (f *Fetcher) client() (*http.Client, string) {
	if f.opts.Client != nil {
		return f.opts.Client, ""
	}

	proxyURL := f.opts.Proxies.GetNext()

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[proxyURL]; ok {
		return c, proxyURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warn().Err(err).Str("proxy", proxyURL).Msg("Ignoring malformed proxy URL")
		}
	}
	c := &http.Client{Timeout: f.opts.Timeout, Transport: transport}
	f.clients[proxyURL] = c
	return c, proxyURL
}
