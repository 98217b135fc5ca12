// Package autopunkt integrates autopunkt.pl, a client-rendered catalogue.
// Discovery needs a real browser; listing pages are parsed from the
// serialized Nuxt state with the visible markup as fallback.
package autopunkt

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/engine/dynamic"
	"github.com/kameel77/auto-scraper/internal/enumerate"
	urlutil "github.com/kameel77/auto-scraper/internal/utils/url"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	Name           = "autopunkt"
	DefaultBaseURL = "https://autopunkt.pl"
	SearchPath     = "/znajdz-auto"
)

var (
	consentLabels  = []string{"Akceptuj", "Zgadzam się", "Accept", "^OK$", "Zgoda"}
	loadMoreLabels = []string{"Pokaż więcej", "Załaduj więcej", "Wczytaj więcej", "Load more", "Zobacz więcej"}

	listingID = regexp.MustCompile(`/samochod/(?:[^/?#]+/)*(\d+)$`)
)

// Fetcher is the part of the static fetch client the adapter uses
type Fetcher interface {
	GetHTML(ctx context.Context, url string, headers map[string]string) (*goquery.Document, string, error)
}

// Config holds adapter settings. Zero values select the defaults.
type Config struct {
	BaseURL   string
	MaxRounds int
	Pause     time.Duration
}

// Adapter implements engine.Adapter for autopunkt.pl
type Adapter struct {
	cfg     Config
	fetch   Fetcher
	browser dynamic.Opener
	now     func() time.Time
}

// New creates the adapter. browser may be nil when only Parse is used.
func New(fetch Fetcher, browser dynamic.Opener, cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 60
	}
	if cfg.Pause <= 0 {
		cfg.Pause = time.Second
	}
	return &Adapter{cfg: cfg, fetch: fetch, browser: browser, now: time.Now}
}

func (a *Adapter) Name() string          { return Name }
func (a *Adapter) Source() models.Source { return models.SourceAutopunkt }

// Enumerate scrolls the search page in a browser until no new cars appear
func (a *Adapter) Enumerate(ctx context.Context, opts models.EnumerateOptions) ([]models.ListingRef, error) {
	if a.browser == nil {
		return nil, engine.ConfigError(Name, "browser is required for enumeration", nil)
	}
	rounds := a.cfg.MaxRounds
	if opts.MaxRounds > 0 {
		rounds = opts.MaxRounds
	}

	var urls []string
	err := dynamic.WithPage(ctx, a.browser, func(p dynamic.Page) error {
		var err error
		urls, err = enumerate.Scroll(ctx, p, enumerate.ScrollOptions{
			StartURL:       a.cfg.BaseURL + SearchPath,
			LinkSelector:   "a[href*='/samochod/']",
			Accept:         func(u string) bool { return listingID.MatchString(u) },
			ConsentLabels:  consentLabels,
			LoadMoreLabels: loadMoreLabels,
			MaxRounds:      rounds,
			Pause:          a.cfg.Pause,
			Limit:          opts.Limit,
		})
		return err
	})

	refs := make([]models.ListingRef, 0, len(urls))
	for _, u := range urls {
		ref, rerr := a.RefFromURL(u)
		if rerr != nil {
			log.Debug().Err(rerr).Str(engine.DetailURL, u).Msg("Skipping link without listing id")
			continue
		}
		refs = append(refs, ref)
	}
	log.Info().
		Str(engine.DetailMarketplace, Name).
		Int("listings", len(refs)).
		Msg("Enumeration finished")
	return engine.Truncate(refs, opts.Limit), err
}

// RefFromURL accepts https://autopunkt.pl/samochod/<city>/<body>/<make>/<model>/id/<n>
func (a *Adapter) RefFromURL(rawURL string) (models.ListingRef, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return models.ListingRef{}, engine.ConfigError(Name, "invalid listing URL", err)
	}
	if !urlutil.HasHost(rawURL, "autopunkt.pl") && !strings.HasPrefix(rawURL, a.cfg.BaseURL) {
		return models.ListingRef{}, engine.ConfigError(Name, "not an autopunkt.pl URL: "+rawURL, nil)
	}
	canonical := urlutil.Canonical(rawURL)
	m := listingID.FindStringSubmatch(canonical)
	if m == nil {
		return models.ListingRef{}, engine.ConfigError(Name, "URL carries no listing id: "+rawURL, nil)
	}
	return models.ListingRef{Source: models.SourceAutopunkt, ListingID: m[1], URL: canonical}, nil
}

// Parse downloads the listing page and runs the closure then markup chain
func (a *Adapter) Parse(ctx context.Context, ref models.ListingRef) (*models.Offer, error) {
	doc, raw, err := a.fetch.GetHTML(ctx, ref.URL, nil)
	if err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	p := page{doc: doc, raw: raw, url: ref.URL}
	offer, err := engine.RunChain(ref, Name, p,
		engine.Stage[page]{Name: "closure", Extract: fromClosure},
		engine.Stage[page]{Name: "html", Extract: fromHTML},
	)
	if err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	offer.ListingID = ref.ListingID
	offer.URL = ref.URL
	offer.Source = models.SourceAutopunkt
	offer.ScrapedAt = a.now().UTC()
	finalize(offer)
	return offer, nil
}

// page is the raw content handed to each extractor stage
type page struct {
	doc *goquery.Document
	raw string
	url string
}
