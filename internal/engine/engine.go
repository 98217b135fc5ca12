package engine

import (
	"context"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// Adapter is the contract every marketplace integration implements.
//
// Enumerate discovers listing references, Parse turns one reference into a
// canonical record. Adapters are used sequentially; an instance may cache
// session state such as an auth token.
type Adapter interface {
	// Name returns the registry key, e.g. "findcar"
	Name() string

	// Source returns the value written to Offer.Source
	Source() models.Source

	// Enumerate returns references in discovery order, truncated to
	// opts.Limit when it is positive. On failure the references found so
	// far are returned together with the error.
	Enumerate(ctx context.Context, opts models.EnumerateOptions) ([]models.ListingRef, error)

	// Parse fetches and normalizes a single listing
	Parse(ctx context.Context, ref models.ListingRef) (*models.Offer, error)

	// RefFromURL derives a reference from a user supplied listing URL
	RefFromURL(rawURL string) (models.ListingRef, error)
}

// Truncate cuts refs down to limit entries when limit is positive
func Truncate(refs []models.ListingRef, limit int) []models.ListingRef {
	if limit > 0 && len(refs) > limit {
		return refs[:limit]
	}
	return refs
}
