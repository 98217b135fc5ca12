// internal/engine/chain.go
package engine

import (
	"errors"

	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// Stage is one extractor attempt over a raw payload of type T
type Stage[T any] struct {
	Name    string
	Extract func(raw T) (*models.Offer, error)
}

// RunChain runs stages in priority order and merges their partial records
// field by field, the earliest stage that supplies a field wins.
//
// A stage failing with a structure or not-found error is logged with the
// listing and skipped. Any other error (a hard decode failure) aborts the
// chain. When no stage produced anything the result is a structure error
// wrapping ErrNoData.
func RunChain[T any](ref models.ListingRef, marketplace string, raw T, stages ...Stage[T]) (*models.Offer, error) {
	var merged *models.Offer
	var lastErr error

	for _, stage := range stages {
		partial, err := stage.Extract(raw)
		if err != nil {
			if errors.Is(err, ErrStructure) || errors.Is(err, ErrNotFound) {
				log.Warn().
					Str(DetailMarketplace, marketplace).
					Str(DetailURL, ref.URL).
					Str(DetailListingID, ref.ListingID).
					Str(DetailStage, stage.Name).
					Err(err).
					Msg("Extractor stage failed, trying next")
				lastErr = err
				continue
			}
			return nil, wrapStage(err, marketplace, stage.Name)
		}
		if partial == nil {
			continue
		}
		if merged == nil {
			merged = partial
			continue
		}
		merged.Fill(partial)
	}

	if merged == nil {
		e := NewEngineError(ErrCodeStructure, "all extractor stages failed", ErrNoData).
			WithDetail(DetailMarketplace, marketplace)
		if lastErr != nil {
			e.Message += ": " + lastErr.Error()
		}
		return nil, e
	}
	return merged, nil
}

func wrapStage(err error, marketplace, stage string) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		ee.WithDetail(DetailStage, stage)
		if _, ok := ee.Details[DetailMarketplace]; !ok {
			ee.WithDetail(DetailMarketplace, marketplace)
		}
		return err
	}
	return NewEngineError(ErrCodeDecode, "extractor failed", err).
		WithDetail(DetailMarketplace, marketplace).
		WithDetail(DetailStage, stage)
}
