// Package downloader archives listing images on disk.
package downloader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// Archive stores the images of every record under
// <dir>/<source>/<listing_id>/NN_<name>, in record order.
type Archive struct {
	dir  string
	pool *WorkerPool
}

// NewArchive creates an Archive rooted at dir
func NewArchive(dir string, pool *WorkerPool) *Archive {
	return &Archive{dir: dir, pool: pool}
}

// Dir returns the directory holding the images of one listing
func (a *Archive) Dir(source models.Source, listingID string) string {
	return filepath.Join(a.dir, sanitizeFilename(string(source)), sanitizeFilename(listingID))
}

// Save downloads the images of o. Individual failures are logged; an error
// is returned only when no image could be stored.
func (a *Archive) Save(ctx context.Context, o *models.Offer) error {
	if len(o.Images) == 0 {
		return nil
	}

	dir := a.Dir(o.Source, o.ListingID)
	jobs := make([]Job, len(o.Images))
	for i, u := range o.Images {
		jobs[i] = Job{URL: u, Dir: dir, Filename: fmt.Sprintf("%02d_%s", i+1, FilenameFor(u))}
	}

	results := a.pool.DownloadBatch(ctx, jobs)
	var stored, failed int
	var lastErr error
	for _, r := range results {
		if r.OK() {
			stored++
			continue
		}
		failed++
		lastErr = r.Error
		log.Warn().Err(r.Error).Str("url", r.URL).Str("listing_id", o.ListingID).Msg("Image download failed")
	}

	log.Debug().
		Str("listing_id", o.ListingID).
		Int("stored", stored).
		Int("failed", failed).
		Str("dir", dir).
		Msg("Images archived")

	if stored == 0 {
		return fmt.Errorf("no image of %s could be stored: %w", o.ListingID, lastErr)
	}
	return nil
}
