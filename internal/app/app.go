// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kameel77/auto-scraper/internal/auth"
	"github.com/kameel77/auto-scraper/internal/config"
	"github.com/kameel77/auto-scraper/internal/downloader"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/dynamic"
	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/marketplace"
	"github.com/kameel77/auto-scraper/internal/proxy"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/internal/run"
	"github.com/kameel77/auto-scraper/internal/store"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds the shared clients and the marketplace registry.
//
// It is created once per command invocation. Use Close() to release
// every sink opened through OpenSinks.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.ProxyPool
	Retry       retry.Config
	Fetcher     *static.Fetcher
	Browser     *dynamic.Launcher
	Credentials *auth.Store
	Registry    *engine.Registry
	closers     []io.Closer
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the per-host rate limiter and the proxy rotation
//   - Creates the static fetcher and the browser launcher
//   - Opens the credential store and registers the marketplaces
//
// Browsers are only started when an adapter opens a page.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := NewLogger(cfg)
	log.Logger = logger

	rateLimiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	proxies := proxy.NewProxyPool(proxy.ParseList(cfg.Proxy))

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryAttempts
	retryCfg.InitialBackoff = cfg.RetryBaseDelay
	retryCfg.MaxBackoff = cfg.RetryMaxDelay

	fetcher := static.New(static.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
		Retry:     retryCfg,
		Limiter:   rateLimiter,
		Proxies:   proxies,
	})

	// the browser takes a single upstream proxy
	launcher := dynamic.NewLauncher(dynamic.LaunchOptions{
		Headless:          cfg.BrowserHeadless,
		UserAgent:         cfg.UserAgent,
		Proxy:             proxies.GetNext(),
		ChromePath:        dynamic.FindChrome(cfg.ChromePath),
		NavigationTimeout: cfg.NavigationTimeout,
		BlockResources:    true,
	})

	creds, err := auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	logger.Debug().Str("backend", creds.Backend()).Msg("Credential store opened")

	registry := marketplace.NewRegistry(cfg, marketplace.Deps{
		Fetcher:     fetcher,
		Browser:     launcher,
		Limiter:     rateLimiter,
		Retry:       retryCfg,
		Credentials: auth.NewResolver(creds),
	})

	logger.Debug().
		Strs("marketplaces", registry.Names()).
		Int("proxies", proxies.Len()).
		Msg("Application initialized")

	return &Application{
		Config:      cfg,
		Logger:      &logger,
		RateLimiter: rateLimiter,
		Proxies:     proxies,
		Retry:       retryCfg,
		Fetcher:     fetcher,
		Browser:     launcher,
		Credentials: creds,
		Registry:    registry,
		startTime:   time.Now(),
	}, nil
}

// NewLogger builds the process logger: JSON on stderr with --json,
// a console writer otherwise.
func NewLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stderr
	if !cfg.JSONLog {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Adapter returns the adapter registered under name
func (a *Application) Adapter(name string) (engine.Adapter, error) {
	return a.Registry.Get(name)
}

// SinkOptions selects the sinks of a scrape run
type SinkOptions struct {
	Database     bool
	KafkaTopic   string
	ImagesDir    string
	ImageWorkers int
}

// OpenSinks opens the requested sinks. They are closed by Close.
func (a *Application) OpenSinks(ctx context.Context, opts SinkOptions) ([]run.Sink, error) {
	var sinks []run.Sink

	if opts.Database {
		db, err := store.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		a.Logger.Info().Str("dialect", db.Dialect()).Msg("Storing snapshots")
		sinks = append(sinks, db)
	}

	if opts.KafkaTopic != "" {
		k, err := store.NewKafkaSink(a.Config.KafkaBrokers, opts.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, k)
		a.Logger.Info().Str("topic", opts.KafkaTopic).Strs("brokers", a.Config.KafkaBrokers).Msg("Publishing records")
		sinks = append(sinks, k)
	}

	if opts.ImagesDir != "" {
		workers := opts.ImageWorkers
		if workers <= 0 {
			workers = a.Config.ImageWorkers
		}
		d := downloader.NewDownloader(downloader.Options{
			Timeout:   a.Config.HTTPTimeout,
			UserAgent: a.Config.UserAgent,
			Retry:     a.Retry,
			Limiter:   a.RateLimiter,
		})
		sinks = append(sinks, downloader.NewArchive(opts.ImagesDir, downloader.NewWorkerPool(workers, d)))
	}

	return sinks, nil
}

// RunOptions builds runner options from the configured pacing
func (a *Application) RunOptions(enum models.EnumerateOptions, sinks []run.Sink) run.Options {
	return run.Options{
		Enumerate: enum,
		Delay:     ratelimit.Jitter{Min: a.Config.ParseDelayMin, Max: a.Config.ParseDelayMax},
		Sinks:     sinks,
	}
}

// Close releases every opened sink. Errors are joined; all sinks are
// closed regardless.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing sink")
			errs = append(errs, err)
		}
	}
	a.closers = nil

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return errors.Join(errs...)
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
