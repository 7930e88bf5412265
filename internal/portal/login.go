package portal

import (
	"context"
	"time"

	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// Login fills the sign-on form and submits it, then navigates back to the
// target because the portal tends to land somewhere else after login.
//
// Fields that already hold a value are never overwritten, so an operator
// watching a visible browser can type over the configured values during the
// pause. Missing credentials are tolerated for the same reason.
func (r *Reader) Login(ctx context.Context, creds models.Credentials) bool {
	logger := runctx.Logger(ctx)
	logger.Info().Msg("Starting login flow")
	sel := r.opts.Selectors

	if err := r.driver.WaitFor(ctx, sel.LoginForm, r.opts.ElementTimeout); err != nil {
		logger.Warn().Err(err).Msg("Login form did not appear")
		return false
	}

	if !r.fill(ctx, sel.LoginForm, "account", creds.Account) {
		return false
	}
	if !r.fill(ctx, sel.Password, "password", creds.Password) {
		return false
	}

	if err := r.pause(ctx); err != nil {
		logger.Warn().Err(err).Msg("Login interrupted")
		return false
	}

	buttons, err := r.driver.FindAll(ctx, nil, sel.Submit)
	if err != nil || len(buttons) == 0 {
		logger.Warn().Err(err).Str("selector", sel.Submit).Msg("Login button not found")
		return false
	}
	if err := r.driver.Click(ctx, buttons[0]); err != nil {
		logger.Warn().Err(err).Msg("Failed to click login button")
		return false
	}
	logger.Info().Msg("Login submitted")

	if err := sleep(ctx, r.opts.LoginSubmitWait); err != nil {
		return false
	}

	if err := r.Navigate(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to reload target after login")
		return false
	}
	return true
}

// fill types value into the first element matching selector unless the
// field is already filled. It returns false only when the field is missing.
func (r *Reader) fill(ctx context.Context, selector, field, value string) bool {
	logger := runctx.Logger(ctx)
	inputs, err := r.driver.FindAll(ctx, nil, selector)
	if err != nil || len(inputs) == 0 {
		logger.Warn().Err(err).Str("field", field).Str("selector", selector).Msg("Login field not found")
		return false
	}

	filled, err := r.driver.FillIfEmpty(ctx, inputs[0], value)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("field", field).Msg("Failed to fill login field")
	case filled:
		logger.Info().Str("field", field).Msg("Login field filled")
	case value == "":
		logger.Warn().Str("field", field).Msg("Credential not configured, leaving field for manual input")
	default:
		logger.Info().Str("field", field).Msg("Login field already filled, keeping it")
	}
	return true
}

// pause gives an operator time to correct the form before it is submitted.
func (r *Reader) pause(ctx context.Context) error {
	d := r.opts.LoginPause
	if d <= 0 {
		return ctx.Err()
	}
	runctx.Logger(ctx).Info().Dur("pause", d).Msg("Waiting before submit, check the login fields")

	steps := int(d / time.Second)
	if r.opts.PauseOutput == nil || steps == 0 {
		return sleep(ctx, d)
	}

	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(r.opts.PauseOutput),
		progressbar.OptionSetDescription("submitting login"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	for i := 0; i < steps; i++ {
		if err := sleep(ctx, time.Second); err != nil {
			_ = bar.Exit()
			return err
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return sleep(ctx, d-time.Duration(steps)*time.Second)
}
