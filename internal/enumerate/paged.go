package enumerate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kameel77/auto-scraper/internal/engine/static"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// Getter is the part of the static fetcher the page strategy needs
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*static.Response, error)
}

// PagedHTMLOptions configures page-number discovery over server HTML
type PagedHTMLOptions struct {
	PageURL   func(page int) string
	StartPage int
	MaxPages  int
	Primary   *regexp.Regexp
	Fallback  *regexp.Regexp
	Referer   string
	Headers   map[string]string
	Delay     ratelimit.Jitter
	Limit     int
}

// PagedHTML fetches consecutive result pages and pulls listing ids out of
// the markup with Primary, or Fallback when Primary matches nothing. The
// first submatch of each pattern is the id.
//
// It stops at the first page yielding no ids, after MaxPages pages, or when
// Limit ids are known. A failed page ends the walk and is returned as the
// error, together with the ids gathered so far.
func PagedHTML(ctx context.Context, get Getter, opts PagedHTMLOptions) ([]string, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	seen := make(map[string]struct{})
	var ids []string
	referer := opts.Referer

	for i := 0; i < opts.MaxPages; i++ {
		page := opts.StartPage + i
		if i > 0 {
			if err := opts.Delay.Wait(ctx); err != nil {
				return ids, err
			}
		}

		pageURL := opts.PageURL(page)
		headers := make(map[string]string, len(opts.Headers)+1)
		for k, v := range opts.Headers {
			headers[k] = v
		}
		if referer != "" {
			headers["Referer"] = referer
		}

		resp, err := get.Get(ctx, pageURL, headers)
		if err != nil {
			if ctx.Err() != nil {
				return ids, ctx.Err()
			}
			log.Warn().Err(err).Str("url", pageURL).Int("page", page).Msg("Result page failed, stopping enumeration")
			return ids, fmt.Errorf("result page %d: %w", page, err)
		}

		found := matchIDs(string(resp.Body), opts.Primary)
		if len(found) == 0 && opts.Fallback != nil {
			found = matchIDs(string(resp.Body), opts.Fallback)
		}
		if len(found) == 0 {
			log.Debug().Int("page", page).Msg("Empty result page, stopping enumeration")
			break
		}

		added := 0
		for _, id := range found {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			added++
		}
		log.Debug().Int("page", page).Int("found", len(found)).Int("new", added).Int("total", len(ids)).Msg("Result page parsed")

		if opts.Limit > 0 && len(ids) >= opts.Limit {
			break
		}
		referer = pageURL
	}
	return ids, nil
}

func matchIDs(body string, re *regexp.Regexp) []string {
	if re == nil {
		return nil
	}
	var ids []string
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		if len(m) > 1 && m[1] != "" {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// PagedAPIOptions configures offset-based discovery over a JSON API
type PagedAPIOptions struct {
	PageSize    int
	MaxPages    int
	StartOffset int
	Delay       ratelimit.Jitter
	Limit       int
}

// PageFunc fetches one page of items starting at offset
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// PagedAPI walks an offset/limit API until a page comes back empty. toRef
// maps an item to its reference; items it rejects are skipped. On error the
// references collected so far are returned with it.
func PagedAPI[T any](ctx context.Context, fetch PageFunc[T], toRef func(T) (string, bool), opts PagedAPIOptions) ([]string, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	seen := make(map[string]struct{})
	var refs []string

	for i := 0; i < opts.MaxPages; i++ {
		if i > 0 {
			if err := opts.Delay.Wait(ctx); err != nil {
				return refs, err
			}
		}
		offset := opts.StartOffset + i*opts.PageSize

		items, err := fetch(ctx, offset, opts.PageSize)
		if err != nil {
			return refs, err
		}
		if len(items) == 0 {
			log.Debug().Int("offset", offset).Msg("Empty API page, stopping enumeration")
			break
		}

		skipped := 0
		for _, item := range items {
			ref, ok := toRef(item)
			if !ok {
				skipped++
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
		log.Debug().Int("offset", offset).Int("items", len(items)).Int("skipped", skipped).Int("total", len(refs)).Msg("API page parsed")

		if opts.Limit > 0 && len(refs) >= opts.Limit {
			break
		}
	}
	return refs, nil
}
