// Package monitor runs one check of the review results page: reach the page,
// extract the results, compare them with the last run and notify on change.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/fingerprint"
	"github.com/law-makers/reviewwatch/internal/notify"
	"github.com/law-makers/reviewwatch/internal/retry"
	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
)

// PageReader gets the browser onto the results page.
type PageReader interface {
	ReachTarget(ctx context.Context) models.PageState
	Login(ctx context.Context, creds models.Credentials) bool
	WaitTarget(ctx context.Context) bool
	Navigate(ctx context.Context) error
}

// Extractor reads a snapshot off the current page.
type Extractor interface {
	Extract(ctx context.Context) (*models.Snapshot, error)
}

// Store persists the last notified snapshot and its fingerprint.
type Store interface {
	Load(ctx context.Context) (*models.Snapshot, string)
	Save(ctx context.Context, snap *models.Snapshot, hash string) error
}

// Status summarizes how a cycle ended.
type Status string

const (
	StatusUnchanged     Status = "unchanged"
	StatusChanged       Status = "changed"
	StatusExtractFailed Status = "extract_failed"
)

// Outcome describes a finished cycle.
type Outcome struct {
	Status              Status
	Fingerprint         string
	PreviousFingerprint string
	Notified            bool
	Persisted           bool
	Snapshot            *models.Snapshot
}

// Options configures a Monitor.
type Options struct {
	Credentials models.Credentials
	Title       string
	// Report, when set, is called with every extracted snapshot.
	Report func(*models.Snapshot)
	// Retry bounds extraction attempts; defaults to retry.Once.
	Retry *retry.Config
}

// Monitor ties the page reader, extractor, store and sink together.
type Monitor struct {
	reader    PageReader
	extractor Extractor
	store     Store
	sink      notify.Sink
	opts      Options
}

// New creates a Monitor.
func New(reader PageReader, extractor Extractor, store Store, sink notify.Sink, opts Options) *Monitor {
	if opts.Retry == nil {
		policy := retry.Once()
		opts.Retry = &policy
	}
	return &Monitor{
		reader:    reader,
		extractor: extractor,
		store:     store,
		sink:      sink,
		opts:      opts,
	}
}

// Run performs one monitoring cycle. Page, persistence and notification
// failures degrade the outcome but are not returned; the error is non-nil
// only when the context ends or something panics.
func (m *Monitor) Run(ctx context.Context) (out Outcome, err error) {
	ctx = runctx.WithRun(ctx)
	logger := runctx.Logger(ctx)
	run := runctx.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			ferr := NewMonitorError(CodeFatal, "monitoring cycle panicked", fmt.Errorf("%v", r)).
				WithDetail("run_id", run.ID).
				WithDetail("stack", stack)
			logger.Error().Err(ferr).Str("stack", stack).Msg("Cycle aborted")
			err = ferr
		}
	}()

	logger.Info().Msg("Starting monitoring cycle")
	previous, previousHash := m.store.Load(ctx)
	out.PreviousFingerprint = previousHash
	if previous == nil {
		logger.Info().Msg("No previous results recorded")
	}

	m.reachTarget(ctx)
	if err := ctx.Err(); err != nil {
		return out, err
	}

	snap, err := m.extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Status = StatusExtractFailed
		logger.Warn().Err(err).Msg("No results this cycle, state left untouched")
		logger.Warn().Msg("Results that vanish from the page are never reported as a change")
		return out, nil
	}
	out.Snapshot = snap
	if m.opts.Report != nil {
		m.opts.Report(snap)
	}

	out.Fingerprint = fingerprint.Of(snap)
	if out.Fingerprint == previousHash {
		out.Status = StatusUnchanged
		logger.Info().Str("hash", out.Fingerprint).Msg("Results unchanged")
		return out, nil
	}

	out.Status = StatusChanged
	logger.Info().
		Str("hash", out.Fingerprint).
		Str("previous", previousHash).
		Msg("Results changed")

	out.Notified = m.sink.Notify(ctx, m.opts.Title, notify.FormatBody(snap))
	if !out.Notified {
		nerr := NewMonitorError(CodeNotification, "notification not delivered", nil).
			WithDetail("sink", m.sink.Name())
		logger.Error().Err(nerr).Fields(nerr.Details).Msg("Saving results anyway")
	}

	if err := m.store.Save(ctx, snap, out.Fingerprint); err != nil {
		perr := NewMonitorError(CodePersistence, "failed to save results", err)
		logger.Error().Err(perr).Msg("Results will be reported again next cycle")
	} else {
		out.Persisted = true
	}

	logger.Info().
		Str("status", string(out.Status)).
		Bool("notified", out.Notified).
		Bool("persisted", out.Persisted).
		Dur("duration", time.Since(run.StartTime)).
		Msg("Monitoring cycle finished")
	return out, nil
}

// reachTarget navigates, logs in when asked to and waits for the results
// page. Every failure here falls through to a fresh navigation; extraction
// decides whether the page is usable.
func (m *Monitor) reachTarget(ctx context.Context) {
	logger := runctx.Logger(ctx)

	if m.reader.ReachTarget(ctx) == models.PageNeedsLogin {
		if !m.reader.Login(ctx, m.opts.Credentials) {
			logger.Warn().Msg("Login did not complete, reloading target")
			m.renavigate(ctx)
		}
	}
	if ctx.Err() != nil {
		return
	}

	if !m.reader.WaitTarget(ctx) {
		logger.Warn().Msg("Target page not confirmed, reloading once")
		m.renavigate(ctx)
	}
}

// extract reads the results, retrying once through a fresh navigation when
// the page yields nothing. A snapshot without reviews is retried too, but is
// accepted if the retry finds no reviews either.
func (m *Monitor) extract(ctx context.Context) (*models.Snapshot, error) {
	var last *models.Snapshot

	err := retry.Do(ctx, *m.opts.Retry, func(ctx context.Context) error {
		snap, err := m.extractor.Extract(ctx)
		if err != nil {
			merr := NewMonitorError(CodeTransientPage, "extraction failed", err)
			if errors.Is(err, browser.ErrClosed) {
				// A closed session cannot be reloaded.
				return merr
			}
			return merr.WithRetry()
		}
		if snap == nil {
			return NewMonitorError(CodeTransientPage, "extraction failed", ErrExtractionEmpty).WithRetry()
		}
		last = snap
		if len(snap.Reviews) == 0 {
			return NewMonitorError(CodeTransientPage, "no reviews on page", ErrNoReviews).WithRetry()
		}
		return nil
	}, func(ctx context.Context, attempt int, err error) {
		runctx.Logger(ctx).Warn().Err(err).Int("attempt", attempt).Msg("Reloading target before extracting again")
		last = nil
		m.renavigate(ctx)
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if last != nil {
		return last, nil
	}
	return nil, err
}

func (m *Monitor) renavigate(ctx context.Context) {
	if err := m.reader.Navigate(ctx); err != nil {
		runctx.Logger(ctx).Warn().Err(err).Msg("Re-navigation did not complete cleanly")
	}
}
