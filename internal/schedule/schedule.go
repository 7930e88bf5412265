// Package schedule repeats monitoring cycles on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

// Parse validates spec. Standard five-field expressions and descriptors such
// as "@every 5m" or "@hourly" are accepted.
func Parse(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Run executes job immediately and then on every activation of spec until
// ctx ends. A cycle still running when the next one is due is not overlapped;
// the due activation is skipped. Run waits for the running job before
// returning.
func Run(ctx context.Context, spec string, job Job) error {
	sched, err := Parse(spec)
	if err != nil {
		return err
	}

	logger := NewLogger(log.Logger)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	wrapped := c.Schedule(sched, cron.FuncJob(func() { job(ctx) }))

	log.Info().Str("schedule", spec).Msg("Watching for result changes")
	c.Start()
	// The first cycle goes through the entry's wrapped job so activations
	// falling due while it runs are skipped too.
	c.Entry(wrapped).WrappedJob.Run()

	<-ctx.Done()
	log.Info().Msg("Stopping scheduler")
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// Next reports when spec fires next after t.
func Next(spec string, t time.Time) (time.Time, error) {
	sched, err := Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}

// Logger adapts zerolog to cron.Logger.
type Logger struct {
	log zerolog.Logger
}

// NewLogger wraps l.
func NewLogger(l zerolog.Logger) Logger {
	return Logger{log: l}
}

func (l Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
