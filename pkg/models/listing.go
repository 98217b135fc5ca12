package models

// ListingRef identifies one listing on a marketplace, as produced by
// enumeration and consumed by parsing.
type ListingRef struct {
	Source    Source `json:"source"`
	ListingID string `json:"listing_id"`
	URL       string `json:"url"`
}

// EnumerateOptions bounds an enumeration call. Zero values mean "use the
// adapter default", except Limit where zero means unbounded.
type EnumerateOptions struct {
	Limit       int
	MaxPages    int
	PageSize    int
	StartPage   int
	StartOffset int
	MaxRounds   int
}
