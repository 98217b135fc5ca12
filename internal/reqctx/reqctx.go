// Package reqctx carries a scrape run identity through context so that log
// lines from enumerators, fetchers and adapters can be correlated.
package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const runKey key = 0

type RunContext struct {
	RunID       string
	Marketplace string
	StartTime   time.Time
}

// WithRun returns a child context tagged with a fresh run id
func WithRun(ctx context.Context, marketplace string) context.Context {
	return context.WithValue(ctx, runKey, &RunContext{
		RunID:       uuid.NewString(),
		Marketplace: marketplace,
		StartTime:   time.Now(),
	})
}

// FromContext returns the run attached to ctx, or an "unknown" placeholder
func FromContext(ctx context.Context) *RunContext {
	if ctx != nil {
		if rc, ok := ctx.Value(runKey).(*RunContext); ok {
			return rc
		}
	}
	return &RunContext{
		RunID:     "unknown",
		StartTime: time.Now(),
	}
}

// RunID returns the id of the run attached to ctx, or "" outside a run
func RunID(ctx context.Context) string {
	if ctx != nil {
		if rc, ok := ctx.Value(runKey).(*RunContext); ok {
			return rc.RunID
		}
	}
	return ""
}

// Logger returns the global logger enriched with the run fields of ctx
func Logger(ctx context.Context) zerolog.Logger {
	rc := FromContext(ctx)
	l := log.With().Str("run_id", rc.RunID)
	if rc.Marketplace != "" {
		l = l.Str("marketplace", rc.Marketplace)
	}
	return l.Logger()
}
