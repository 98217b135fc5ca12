// Package api is the fetch client for marketplaces exposing an
// authenticated JSON API. A bearer token is obtained once per client and
// reused for every later call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/rs/zerolog/log"
)

// Options configures a Client
type Options struct {
	Marketplace string
	BaseURL     string
	Email       string
	Password    string
	LoginPath   string
	Timeout     time.Duration
	UserAgent   string
	Retry       retry.Config
	Limiter     ratelimit.RateLimiter
	HTTPClient  *http.Client
}

// Client is a token-authenticated JSON client
type Client struct {
	http *resty.Client
	opts Options

	mu    sync.Mutex
	token string
}

type loginResponse struct {
	Token string `json:"token"`
}

// New validates the credentials and prepares the client. No request is made
// until the first call needs a token.
func New(opts Options) (*Client, error) {
	if opts.Email == "" || opts.Password == "" {
		return nil, engine.ConfigError(opts.Marketplace, "credentials are required", engine.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		return nil, engine.ConfigError(opts.Marketplace, "API base URL is required", nil)
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{http: client, opts: opts}, nil
}

// URL joins path onto the API base
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Token returns the cached bearer token, logging in on first use
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	var body []byte
	err := retry.WithRetry(ctx, c.opts.Retry, func() error {
		if err := c.opts.Limiter.Wait(ctx, c.URL(c.opts.LoginPath)); err != nil {
			return err
		}
		res, err := c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"email":    c.opts.Email,
				"password": c.opts.Password,
			}).
			Post(c.opts.LoginPath)
		if err != nil {
			return fmt.Errorf("login request failed: %w", err)
		}
		if res.IsError() {
			return retry.NewHTTPError(res.StatusCode(), res.Status(), "login")
		}
		body = res.Body()
		return nil
	})
	if err != nil {
		var sc retry.StatusCoder
		if errors.As(err, &sc) && (sc.GetStatusCode() == http.StatusUnauthorized || sc.GetStatusCode() == http.StatusForbidden) {
			return "", engine.ConfigError(c.opts.Marketplace, "login rejected", err)
		}
		return "", engine.TransportError(c.URL(c.opts.LoginPath), err).WithDetail(engine.DetailMarketplace, c.opts.Marketplace)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", engine.DecodeError(c.opts.Marketplace, err).WithDetail(engine.DetailStage, "login")
	}
	if lr.Token == "" {
		return "", engine.StructureError(c.opts.Marketplace, "login response carries no token").WithDetail(engine.DetailStage, "login")
	}

	log.Debug().Str("marketplace", c.opts.Marketplace).Msg("API session established")
	c.token = lr.Token
	return c.token, nil
}

// GetJSON performs an authenticated GET of path (relative to the base or
// absolute) and decodes the body into out with json.Number for numbers.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.URL(path)
	}

	var body []byte
	err = retry.WithRetry(ctx, c.opts.Retry, func() error {
		if err := c.opts.Limiter.Wait(ctx, target); err != nil {
			return err
		}
		res, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParams(query).
			Get(target)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		log.Debug().
			Str("url", target).
			Int("status", res.StatusCode()).
			Int64("response_time_ms", res.Time().Milliseconds()).
			Msg("API call completed")
		if res.IsError() {
			return retry.NewHTTPError(res.StatusCode(), res.Status(), "")
		}
		body = res.Body()
		return nil
	})
	if err != nil {
		return engine.TransportError(target, err).WithDetail(engine.DetailMarketplace, c.opts.Marketplace)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return engine.DecodeError(c.opts.Marketplace, err).WithDetail(engine.DetailURL, target)
	}
	return nil
}
