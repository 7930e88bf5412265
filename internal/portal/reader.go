// Package portal drives the browser to the review results page, logging in
// through the single sign-on form when the portal redirects there.
package portal

import (
	"context"
	"io"
	"time"

	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
	"golang.org/x/time/rate"
)

// Options configures a Reader. Zero delays are allowed; zero timeouts are not.
type Options struct {
	TargetURL string
	Selectors config.SelectorConfig

	ElementTimeout time.Duration
	TargetWait     time.Duration
	PollInterval   time.Duration
	Settle         time.Duration

	LoginPause      time.Duration
	LoginSubmitWait time.Duration
	// PauseOutput receives the countdown bar shown during LoginPause. Nil
	// disables the bar.
	PauseOutput io.Writer
}

// OptionsFromConfig maps application config onto reader options.
func OptionsFromConfig(cfg *config.Config, pauseOutput io.Writer) Options {
	return Options{
		TargetURL:       cfg.TargetURL,
		Selectors:       cfg.Selectors,
		ElementTimeout:  cfg.Timeouts.Element,
		TargetWait:      cfg.Timeouts.TargetWait,
		PollInterval:    cfg.Timeouts.PollInterval,
		Settle:          cfg.Timeouts.Settle,
		LoginPause:      cfg.Login.Pause,
		LoginSubmitWait: cfg.Login.SubmitWait,
		PauseOutput:     pauseOutput,
	}
}

// Reader reaches the target page through a browser.Driver.
type Reader struct {
	driver browser.Driver
	opts   Options
}

// New creates a Reader.
func New(d browser.Driver, opts Options) *Reader {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Reader{driver: d, opts: opts}
}

// Navigate loads the target URL and waits the settle delay. The page may
// still be usable after a load timeout, so callers usually log the error and
// carry on.
func (r *Reader) Navigate(ctx context.Context) error {
	err := r.driver.Navigate(ctx, r.opts.TargetURL)
	if serr := sleep(ctx, r.opts.Settle); serr != nil {
		return serr
	}
	return err
}

// ReachTarget navigates to the target and classifies where the browser ended up.
func (r *Reader) ReachTarget(ctx context.Context) models.PageState {
	if err := r.Navigate(ctx); err != nil {
		runctx.Logger(ctx).Warn().Err(err).Str("url", r.opts.TargetURL).Msg("Navigation did not complete cleanly")
	}

	state := r.classify(ctx)
	runctx.Logger(ctx).Info().Stringer("state", state).Msg("Page state after navigation")
	return state
}

// LoginRequired reports whether the login form is on the page.
func (r *Reader) LoginRequired(ctx context.Context) bool {
	return browser.Exists(ctx, r.driver, r.opts.Selectors.LoginForm)
}

// OnTarget reports whether the results container is on the page.
func (r *Reader) OnTarget(ctx context.Context) bool {
	return browser.Exists(ctx, r.driver, r.opts.Selectors.Table)
}

// WaitTarget polls until the results page shows up. It gives up early when
// the login form appears and returns false at the TargetWait ceiling.
func (r *Reader) WaitTarget(ctx context.Context) bool {
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.TargetWait)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(r.opts.PollInterval), 1)
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			runctx.Logger(ctx).Warn().Dur("timeout", r.opts.TargetWait).Msg("Timed out waiting for target page")
			return false
		}
		if r.OnTarget(waitCtx) {
			runctx.Logger(ctx).Info().Msg("Arrived at target page")
			return true
		}
		if r.LoginRequired(waitCtx) {
			runctx.Logger(ctx).Warn().Msg("Login form shown while waiting for target page")
			return false
		}
	}
}

func (r *Reader) classify(ctx context.Context) models.PageState {
	switch {
	case r.LoginRequired(ctx):
		return models.PageNeedsLogin
	case r.OnTarget(ctx):
		return models.PageOnTarget
	default:
		return models.PageFailed
	}
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
