// Package marketplace wires the supported adapters into an engine.Registry.
package marketplace

import (
	"github.com/kameel77/auto-scraper/internal/auth"
	"github.com/kameel77/auto-scraper/internal/config"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/api"
	"github.com/kameel77/auto-scraper/internal/engine/dynamic"
	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/marketplace/autopunkt"
	"github.com/kameel77/auto-scraper/internal/marketplace/findcar"
	"github.com/kameel77/auto-scraper/internal/marketplace/vehis"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/kameel77/auto-scraper/pkg/models"
)

// CredentialResolver yields the identity and secret for a marketplace
type CredentialResolver interface {
	Resolve(marketplace string) (auth.Credentials, error)
}

// Info describes a supported marketplace without building its adapter
type Info struct {
	Name        string
	Source      models.Source
	Discovery   string
	Detail      string
	Credentials bool
}

// Catalog lists the supported marketplaces in name order
var Catalog = []Info{
	{Name: autopunkt.Name, Source: models.SourceAutopunkt, Discovery: "infinite scroll (browser)", Detail: "HTML + serialized closure"},
	{Name: findcar.Name, Source: models.SourceFindcar, Discovery: "page number", Detail: "JSON API"},
	{Name: vehis.Name, Source: models.SourceVehis, Discovery: "offset API", Detail: "JSON API", Credentials: true},
}

// Deps are the shared clients the adapters are built on
type Deps struct {
	Fetcher     *static.Fetcher
	Browser     dynamic.Opener
	Limiter     ratelimit.RateLimiter
	Retry       retry.Config
	Credentials CredentialResolver
}

// NewRegistry registers a factory for every supported marketplace.
// Adapters are built on Get, so missing credentials only fail the
// marketplace that needs them.
func NewRegistry(cfg *config.Config, deps Deps) *engine.Registry {
	enumDelay := ratelimit.Jitter{Min: cfg.EnumDelayMin, Max: cfg.EnumDelayMax}
	r := engine.NewRegistry()

	r.Register(autopunkt.Name, func() (engine.Adapter, error) {
		return autopunkt.New(deps.Fetcher, deps.Browser, autopunkt.Config{
			BaseURL:   cfg.AutopunktURL,
			MaxRounds: cfg.ScrollRounds,
			Pause:     cfg.ScrollPause,
		}), nil
	})

	r.Register(findcar.Name, func() (engine.Adapter, error) {
		return findcar.New(deps.Fetcher, findcar.Config{
			BaseURL:  cfg.FindcarURL,
			PageSize: cfg.FindcarPageSize,
			MaxPages: cfg.MaxPages,
			Delay:    enumDelay,
		}), nil
	})

	r.Register(vehis.Name, func() (engine.Adapter, error) {
		if deps.Credentials == nil {
			return nil, engine.ConfigError(vehis.Name, "no credential source configured", engine.ErrMissingCredentials)
		}
		creds, err := deps.Credentials.Resolve(vehis.Name)
		if err != nil {
			return nil, err
		}
		client, err := api.New(api.Options{
			Marketplace: vehis.Name,
			BaseURL:     cfg.VehisAPIURL,
			Email:       creds.Identity,
			Password:    creds.Secret,
			Timeout:     cfg.HTTPTimeout,
			UserAgent:   cfg.UserAgent,
			Retry:       deps.Retry,
			Limiter:     deps.Limiter,
		})
		if err != nil {
			return nil, err
		}
		return vehis.New(client, vehis.Config{
			PageSize: cfg.VehisPageSize,
			MaxPages: cfg.MaxPages,
			Delay:    enumDelay,
		}), nil
	})

	return r
}
