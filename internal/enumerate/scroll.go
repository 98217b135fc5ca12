// Package enumerate discovers listing references. Each strategy returns
// what it found so far together with any error that stopped it.
package enumerate

import (
	"context"
	"time"

	"github.com/kameel77/auto-scraper/internal/engine/dynamic"
	urlutil "github.com/kameel77/auto-scraper/internal/utils/url"
	"github.com/rs/zerolog/log"
)

// ScrollOptions configures infinite-scroll discovery
type ScrollOptions struct {
	StartURL       string
	LinkSelector   string
	LinkAttr       string
	Accept         func(canonicalURL string) bool
	ConsentLabels  []string
	LoadMoreLabels []string
	MaxRounds      int
	Pause          time.Duration
	StableRounds   int
	Limit          int
}

func (o *ScrollOptions) defaults() {
	if o.LinkAttr == "" {
		o.LinkAttr = "href"
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 60
	}
	if o.Pause <= 0 {
		o.Pause = time.Second
	}
	if o.StableRounds <= 0 {
		o.StableRounds = 3
	}
}

// Scroll collects listing links from a page that loads more results on
// scroll or on a "load more" control.
//
// Every round collects the matching anchors, then clicks a load-more control
// if one is found and otherwise scrolls to the bottom. It stops once the
// count has not grown for StableRounds rounds in a row while nothing was
// clicked, after MaxRounds, or when Limit links are known.
func Scroll(ctx context.Context, page dynamic.Page, opts ScrollOptions) ([]string, error) {
	opts.defaults()

	if err := page.Navigate(opts.StartURL); err != nil {
		return nil, err
	}
	if label, err := page.ClickByLabel(opts.ConsentLabels); err != nil {
		log.Debug().Err(err).Msg("Consent dialog lookup failed")
	} else if label != "" {
		log.Debug().Str("label", label).Msg("Consent accepted")
	}

	seen := make(map[string]struct{})
	var links []string
	stale := 0

	for round := 1; round <= opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		hrefs, err := page.Attributes(opts.LinkSelector, opts.LinkAttr)
		if err != nil {
			return links, err
		}
		before := len(links)
		for _, href := range hrefs {
			if href == "" {
				continue
			}
			u := urlutil.Canonical(urlutil.ResolveURL(opts.StartURL, href))
			if opts.Accept != nil && !opts.Accept(u) {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			links = append(links, u)
		}

		if opts.Limit > 0 && len(links) >= opts.Limit {
			log.Debug().Int("round", round).Int("links", len(links)).Msg("Limit reached")
			break
		}

		label, err := page.ClickByLabel(opts.LoadMoreLabels)
		if err != nil {
			log.Debug().Err(err).Int("round", round).Msg("Load-more lookup failed")
			label = ""
		}
		clicked := label != ""
		if !clicked {
			if err := page.ScrollToBottom(); err != nil {
				return links, err
			}
		}

		if len(links) == before {
			stale++
		} else {
			stale = 0
		}

		log.Debug().
			Int("round", round).
			Int("links", len(links)).
			Bool("clicked", clicked).
			Int("stale_rounds", stale).
			Msg("Scroll round")

		if stale >= opts.StableRounds && !clicked {
			break
		}
		if err := sleep(ctx, opts.Pause); err != nil {
			return links, err
		}
	}
	return links, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
