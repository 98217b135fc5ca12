// Package run drives one scrape of a marketplace: enumerate, parse every
// listing in turn and hand each record to the configured sinks.
package run

import (
	"context"
	"time"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/reqctx"
	"github.com/kameel77/auto-scraper/pkg/models"
)

// Phase is the coarse state of a run
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseParsing    Phase = "parsing"
	PhaseDone       Phase = "done"
)

// Progress is a snapshot of a run published after every step
type Progress struct {
	RunID       string
	Marketplace string
	Phase       Phase
	Total       int
	Done        int
	Failed      int
	Current     string
}

// Sink receives every successfully parsed record
type Sink interface {
	Save(ctx context.Context, offer *models.Offer) error
}

// Options configures a run
type Options struct {
	Enumerate models.EnumerateOptions
	// Delay is waited between listings
	Delay ratelimit.Jitter
	Sinks []Sink
	// Progress, when set, receives snapshots. Sends never block; a slow
	// reader misses intermediate snapshots.
	Progress chan<- Progress
	// KeepRecords collects parsed records in the summary
	KeepRecords bool
}

// Failure records one listing that could not be parsed or stored
type Failure struct {
	Ref   models.ListingRef
	Stage string
	Code  engine.ErrorCode
	Err   error
}

// Summary is the outcome of a run
type Summary struct {
	RunID        string
	Marketplace  string
	Discovered   int
	Parsed       int
	Records      []*models.Offer
	Failures     []Failure
	SinkErrors   int
	EnumerateErr error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time of the run
func (s *Summary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }

// Runner executes runs. It holds no state between them.
type Runner struct {
	now func() time.Time
}

// NewRunner creates a Runner
func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Run enumerates a, parses each listing sequentially and saves the
// records. A failing listing is recorded and skipped. Enumeration errors
// keep the listings found so far; Run only fails when enumeration found
// nothing or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, a engine.Adapter, opts Options) (*Summary, error) {
	ctx = reqctx.WithRun(ctx, a.Name())
	rc := reqctx.FromContext(ctx)
	logger := reqctx.Logger(ctx)

	sum := &Summary{RunID: rc.RunID, Marketplace: a.Name(), StartedAt: r.now()}
	progress := Progress{RunID: rc.RunID, Marketplace: a.Name(), Phase: PhaseCollecting}
	publish := func() {
		if opts.Progress == nil {
			return
		}
		select {
		case opts.Progress <- progress:
		default:
		}
	}
	finish := func() {
		sum.FinishedAt = r.now()
		progress.Phase = PhaseDone
		progress.Current = ""
		publish()
	}

	publish()
	logger.Info().Int("limit", opts.Enumerate.Limit).Msg("Collecting listings")
	refs, err := a.Enumerate(ctx, opts.Enumerate)
	refs = engine.Truncate(refs, opts.Enumerate.Limit)
	sum.Discovered = len(refs)
	if err != nil {
		sum.EnumerateErr = err
		logger.Warn().Err(err).Int("kept", len(refs)).Msg("Enumeration stopped early")
		if len(refs) == 0 || ctx.Err() != nil {
			finish()
			return sum, err
		}
	}

	progress.Phase = PhaseParsing
	progress.Total = len(refs)
	publish()

	for i, ref := range refs {
		if i > 0 {
			if err := opts.Delay.Wait(ctx); err != nil {
				finish()
				return sum, err
			}
		}
		progress.Current = ref.URL
		publish()

		offer, err := a.Parse(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				finish()
				return sum, ctx.Err()
			}
			sum.Failures = append(sum.Failures, failure(ref, err))
			logger.Error().
				Err(err).
				Str(engine.DetailURL, ref.URL).
				Str(engine.DetailListingID, ref.ListingID).
				Str(engine.DetailStage, stageOf(err)).
				Msg("Listing failed")
		} else {
			sum.Parsed++
			if opts.KeepRecords {
				sum.Records = append(sum.Records, offer)
			}
			for _, sink := range opts.Sinks {
				if err := sink.Save(ctx, offer); err != nil {
					sum.SinkErrors++
					logger.Error().Err(err).Str(engine.DetailURL, ref.URL).Msg("Sink rejected record")
				}
			}
		}

		progress.Done = i + 1
		progress.Failed = len(sum.Failures)
		publish()
	}

	finish()
	logger.Info().
		Int("discovered", sum.Discovered).
		Int("parsed", sum.Parsed).
		Int("failed", len(sum.Failures)).
		Dur("duration", sum.Duration()).
		Msg("Run finished")
	return sum, nil
}

func failure(ref models.ListingRef, err error) Failure {
	return Failure{Ref: ref, Stage: stageOf(err), Code: engine.CodeOf(err), Err: err}
}

func stageOf(err error) string {
	if s := engine.Detail(err, engine.DetailStage); s != "" {
		return s
	}
	switch engine.CodeOf(err) {
	case engine.ErrCodeTransient, engine.ErrCodeNotFound:
		return "fetch"
	}
	return "parse"
}
