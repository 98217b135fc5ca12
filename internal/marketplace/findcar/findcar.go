// Package findcar integrates findcar.pl: server-rendered result pages for
// discovery and a public JSON API for listing details.
package findcar

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/enumerate"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	urlutil "github.com/kameel77/auto-scraper/internal/utils/url"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	Name            = "findcar"
	DefaultBaseURL  = "https://findcar.pl"
	DefaultPageSize = 45
	DefaultMaxPages = 10
)

var (
	listingPath    = regexp.MustCompile(`/listings/(\d{6,})`)
	listingNumber  = regexp.MustCompile(`"publicListingNumber"\s*:\s*"(\d+)"`)
	numericSegment = regexp.MustCompile(`^\d+$`)
)

// Fetcher is the part of the static fetch client the adapter uses
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (*static.Response, error)
	GetJSON(ctx context.Context, url string, headers map[string]string, out any) error
}

// Config holds adapter settings. Zero values select the defaults.
type Config struct {
	BaseURL  string
	PageSize int
	MaxPages int
	Delay    ratelimit.Jitter
}

// Adapter implements engine.Adapter for findcar.pl
type Adapter struct {
	cfg   Config
	fetch Fetcher
	now   func() time.Time
}

// New creates the adapter
func New(fetch Fetcher, cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Adapter{cfg: cfg, fetch: fetch, now: time.Now}
}

func (a *Adapter) Name() string          { return Name }
func (a *Adapter) Source() models.Source { return models.SourceFindcar }

// Enumerate walks the dealer offer pages newest first
func (a *Adapter) Enumerate(ctx context.Context, opts models.EnumerateOptions) ([]models.ListingRef, error) {
	size := a.cfg.PageSize
	if opts.PageSize > 0 {
		size = opts.PageSize
	}
	maxPages := a.cfg.MaxPages
	if opts.MaxPages > 0 {
		maxPages = opts.MaxPages
	}
	start := opts.StartPage
	if start <= 0 {
		start = 1
	}

	ids, err := enumerate.PagedHTML(ctx, a.fetch, enumerate.PagedHTMLOptions{
		PageURL:   a.pageURL(size),
		StartPage: start,
		MaxPages:  maxPages,
		Primary:   listingPath,
		Fallback:  listingNumber,
		Referer:   a.cfg.BaseURL + "/",
		Headers: map[string]string{
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "max-age=0",
		},
		Delay: a.cfg.Delay,
		Limit: opts.Limit,
	})

	refs := make([]models.ListingRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, a.ref(id))
	}
	log.Info().
		Str(engine.DetailMarketplace, Name).
		Int("listings", len(refs)).
		Msg("Enumeration finished")
	return engine.Truncate(refs, opts.Limit), err
}

func (a *Adapter) pageURL(size int) func(int) string {
	return func(page int) string {
		return fmt.Sprintf("%s/oferty-dealerow?priceType=offer&size=%d&sort=createdAt,desc&page=%d", a.cfg.BaseURL, size, page)
	}
}

// RefFromURL accepts https://findcar.pl/listings/<id>
func (a *Adapter) RefFromURL(rawURL string) (models.ListingRef, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return models.ListingRef{}, engine.ConfigError(Name, "invalid listing URL", err)
	}
	id := urlutil.LastSegment(rawURL)
	if !urlutil.HasHost(rawURL, "findcar.pl") && !strings.HasPrefix(rawURL, a.cfg.BaseURL) {
		return models.ListingRef{}, engine.ConfigError(Name, "not a findcar.pl URL: "+rawURL, nil)
	}
	if !numericSegment.MatchString(id) {
		return models.ListingRef{}, engine.ConfigError(Name, "URL carries no listing id: "+rawURL, nil)
	}
	return a.ref(id), nil
}

func (a *Adapter) ref(id string) models.ListingRef {
	return models.ListingRef{
		Source:    models.SourceFindcar,
		ListingID: id,
		URL:       a.cfg.BaseURL + "/listings/" + id,
	}
}

// Parse downloads the listing detail from the API and normalizes it
func (a *Adapter) Parse(ctx context.Context, ref models.ListingRef) (*models.Offer, error) {
	apiURL := a.cfg.BaseURL + "/api/listings/" + ref.ListingID

	var detail map[string]any
	if err := a.fetch.GetJSON(ctx, apiURL, map[string]string{"Referer": ref.URL}, &detail); err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	offer, err := parseDetail(ref, detail)
	if err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	offer.ListingID = ref.ListingID
	offer.URL = a.ref(ref.ListingID).URL
	offer.Source = models.SourceFindcar
	offer.OfferNumber = ref.ListingID
	offer.ScrapedAt = a.now().UTC()
	finalize(offer, detail)
	return offer, nil
}
