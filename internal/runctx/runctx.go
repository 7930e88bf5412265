// Package runctx tags a monitoring cycle with an ID for log correlation.
package runctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const runKey key = 0

// Run identifies one monitoring cycle.
type Run struct {
	ID        string
	StartTime time.Time
}

// WithRun attaches a fresh Run and a logger carrying its ID to ctx.
func WithRun(ctx context.Context) context.Context {
	run := &Run{ID: generateID(), StartTime: time.Now()}
	ctx = context.WithValue(ctx, runKey, run)
	logger := log.Logger.With().Str("run_id", run.ID).Logger()
	return logger.WithContext(ctx)
}

// FromContext returns the Run stored in ctx, or a placeholder.
func FromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(runKey).(*Run); ok {
		return r
	}
	return &Run{ID: "unknown", StartTime: time.Now()}
}

// Logger returns the run-scoped logger, falling back to the global one.
func Logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func generateID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
