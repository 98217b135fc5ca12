// Package vehis integrates the Vehis broker API. Every call needs a bearer
// token obtained with the broker's e-mail and password.
package vehis

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/enumerate"
	"github.com/kameel77/auto-scraper/internal/extract"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	urlutil "github.com/kameel77/auto-scraper/internal/utils/url"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	Name            = "vehis"
	DefaultBaseURL  = "https://vash.vehistools.pl/api"
	DefaultPageSize = 50
	DefaultMaxPages = 10
	subjectsPath    = "/broker/subjects"
)

var detailPath = regexp.MustCompile(`/broker/subjects/([^/?#]+)/([^/?#]+)/?$`)

// Client is the part of the authenticated API client the adapter uses
type Client interface {
	Token(ctx context.Context) (string, error)
	GetJSON(ctx context.Context, path string, query map[string]string, out any) error
	URL(path string) string
}

// Config holds adapter settings. Zero values select the defaults.
type Config struct {
	PageSize int
	MaxPages int
	Delay    ratelimit.Jitter
}

// Adapter implements engine.Adapter for the Vehis API
type Adapter struct {
	cfg    Config
	client Client
	now    func() time.Time
}

// New creates the adapter around an API client that already holds the
// credentials.
func New(client Client, cfg Config) *Adapter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Adapter{cfg: cfg, client: client, now: time.Now}
}

func (a *Adapter) Name() string          { return Name }
func (a *Adapter) Source() models.Source { return models.SourceVehis }

// Enumerate pages through the subject index ordered by subject id
func (a *Adapter) Enumerate(ctx context.Context, opts models.EnumerateOptions) ([]models.ListingRef, error) {
	if _, err := a.client.Token(ctx); err != nil {
		return nil, err
	}

	size := a.cfg.PageSize
	if opts.PageSize > 0 {
		size = opts.PageSize
	}
	maxPages := a.cfg.MaxPages
	if opts.MaxPages > 0 {
		maxPages = opts.MaxPages
	}

	fetch := func(ctx context.Context, offset, limit int) ([]any, error) {
		var payload map[string]any
		err := a.client.GetJSON(ctx, subjectsPath, map[string]string{
			"offset":    strconv.Itoa(offset),
			"limit":     strconv.Itoa(limit),
			"sortBy":    "subject_id",
			"sortOrder": "asc",
		}, &payload)
		if err != nil {
			return nil, err
		}
		return extract.ListAt(payload, "subjects"), nil
	}

	keys, err := enumerate.PagedAPI[any](ctx, fetch, subjectKey, enumerate.PagedAPIOptions{
		PageSize:    size,
		MaxPages:    maxPages,
		StartOffset: opts.StartOffset,
		Delay:       a.cfg.Delay,
		Limit:       opts.Limit,
	})

	refs := make([]models.ListingRef, 0, len(keys))
	for _, key := range keys {
		group, subject, _ := strings.Cut(key, "/")
		refs = append(refs, a.ref(group, subject))
	}
	log.Info().
		Str(engine.DetailMarketplace, Name).
		Int("listings", len(refs)).
		Msg("Enumeration finished")
	return engine.Truncate(refs, opts.Limit), err
}

// subjectKey returns "group/subject" for an index item carrying both ids
func subjectKey(item any) (string, bool) {
	subject := extract.TextAt(item, "subject_id")
	group := extract.TextAt(item, "group_id")
	if subject == "" || group == "" {
		return "", false
	}
	return group + "/" + subject, true
}

func (a *Adapter) ref(group, subject string) models.ListingRef {
	return models.ListingRef{
		Source:    models.SourceVehis,
		ListingID: subject,
		URL:       a.client.URL(subjectsPath + "/" + group + "/" + subject),
	}
}

// RefFromURL accepts {base}/broker/subjects/<group_id>/<subject_id>
func (a *Adapter) RefFromURL(rawURL string) (models.ListingRef, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return models.ListingRef{}, engine.ConfigError(Name, "invalid listing URL", err)
	}
	m := detailPath.FindStringSubmatch(urlutil.Canonical(rawURL))
	if m == nil {
		return models.ListingRef{}, engine.ConfigError(Name, "not a subject detail URL: "+rawURL, nil)
	}
	return a.ref(m[1], m[2]), nil
}

// Parse fetches the subject detail and normalizes it
func (a *Adapter) Parse(ctx context.Context, ref models.ListingRef) (*models.Offer, error) {
	var payload map[string]any
	if err := a.client.GetJSON(ctx, ref.URL, nil, &payload); err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	offer, err := engine.RunChain(ref, Name, payload, engine.Stage[map[string]any]{Name: "subject", Extract: fromSubject})
	if err != nil {
		return nil, engine.ForListing(err, Name, ref)
	}

	if offer.ListingID == "" {
		offer.ListingID = ref.ListingID
	}
	offer.URL = ref.URL
	offer.Source = models.SourceVehis
	offer.ScrapedAt = a.now().UTC()
	finalize(offer)
	return offer, nil
}
