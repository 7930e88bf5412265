// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/reviewwatch/internal/auth"
	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/law-makers/reviewwatch/internal/extract"
	"github.com/law-makers/reviewwatch/internal/monitor"
	"github.com/law-makers/reviewwatch/internal/notify"
	"github.com/law-makers/reviewwatch/internal/portal"
	"github.com/law-makers/reviewwatch/internal/store"
	"github.com/law-makers/reviewwatch/internal/ui"
	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DriverFactory opens the browser used for monitoring.
type DriverFactory func(cfg *config.Config) (browser.Driver, error)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure the browser is released on every exit path.
type Application struct {
	Config *config.Config
	Logger *zerolog.Logger
	Store  *store.FileStore
	Sink   notify.Sink

	// Output receives the results report and the login countdown.
	Output io.Writer

	newDriver DriverFactory
	driver    browser.Driver
	driverMu  sync.Mutex
	startTime time.Time
}

// Option customizes an Application.
type Option func(*Application)

// WithDriverFactory replaces the Chrome session factory.
func WithDriverFactory(f DriverFactory) Option {
	return func(a *Application) { a.newDriver = f }
}

// WithOutput redirects terminal output.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.Output = w }
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Opens the state file store
//   - Builds the configured notification sink
//
// The browser is not started here; EnsureBrowser starts it on first use so
// commands like notify-test never launch Chrome.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogging(cfg.Log, os.Stderr)

	sink, err := notify.New(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification sink: %w", err)
	}
	logger.Debug().Str("sink", sink.Name()).Msg("Notification sink initialized")

	fileStore := store.NewFileStore(cfg.StateFile)
	logger.Debug().Str("path", fileStore.Path()).Msg("State store initialized")

	a := &Application{
		Config:    cfg,
		Logger:    &logger,
		Store:     fileStore,
		Sink:      sink,
		Output:    os.Stdout,
		newDriver: NewChromeSession,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}

	logger.Debug().Msg("Application initialized successfully")
	return a, nil
}

// SetupLogging configures the global zerolog logger and returns it.
func SetupLogging(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer = w
	if !cfg.JSON {
		logWriter = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
	log.Logger.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSON).
		Msg("Logger initialized")
	return log.Logger
}

// NewChromeSession starts Chrome with the configured options.
func NewChromeSession(cfg *config.Config) (browser.Driver, error) {
	s, err := browser.NewSession(browser.SessionOptions{
		Headless:        cfg.Browser.Headless,
		ChromePath:      cfg.Browser.ChromePath,
		UserAgent:       cfg.Browser.UserAgent,
		Proxy:           cfg.Browser.Proxy,
		PageLoadTimeout: cfg.Timeouts.PageLoad,
		ScriptTimeout:   cfg.Timeouts.Script,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureBrowser lazily starts the browser if it is not running yet.
func (a *Application) EnsureBrowser() (browser.Driver, error) {
	if a == nil {
		return nil, fmt.Errorf("application is nil")
	}

	a.driverMu.Lock()
	defer a.driverMu.Unlock()

	if a.driver != nil {
		return a.driver, nil
	}

	a.Logger.Debug().Msg("Starting browser on demand")
	d, err := a.newDriver(a.Config)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Failed to start browser")
		return nil, err
	}
	a.driver = d
	a.Logger.Info().Bool("headless", a.Config.Browser.Headless).Msg("Browser started")
	return d, nil
}

// Credentials returns the configured login, topped up from the OS keyring.
func (a *Application) Credentials() models.Credentials {
	return auth.Resolve(models.Credentials{
		Account:  a.Config.Login.Account,
		Password: a.Config.Login.Password,
	})
}

// Monitor builds a monitor over the shared browser.
func (a *Application) Monitor() (*monitor.Monitor, error) {
	d, err := a.EnsureBrowser()
	if err != nil {
		return nil, err
	}

	cfg := a.Config
	reader := portal.New(d, portal.OptionsFromConfig(cfg, a.Output))
	extractor := extract.New(d, extract.Options{
		Selectors:      cfg.Selectors,
		ElementTimeout: cfg.Timeouts.Element,
		RenderDelay:    cfg.Timeouts.Render,
	})

	return monitor.New(reader, extractor, a.Store, a.Sink, monitor.Options{
		Credentials: a.Credentials(),
		Title:       cfg.Notify.Title,
		Report:      func(s *models.Snapshot) { ui.PrintSnapshot(a.Output, s) },
	}), nil
}

// RunOnce runs a single monitoring cycle.
func (a *Application) RunOnce(ctx context.Context) (monitor.Outcome, error) {
	m, err := a.Monitor()
	if err != nil {
		return monitor.Outcome{}, monitor.NewMonitorError(monitor.CodeFatal, "browser unavailable", err)
	}
	return m.Run(ctx)
}

// Close gracefully shuts down the application and releases the browser.
// It is safe to call more than once.
func (a *Application) Close(ctx context.Context) error {
	a.driverMu.Lock()
	d := a.driver
	a.driver = nil
	a.driverMu.Unlock()

	if d != nil {
		done := make(chan error, 1)
		go func() { done <- d.Close() }()
		select {
		case err := <-done:
			if err != nil {
				a.Logger.Warn().Err(err).Msg("Error closing browser")
			}
		case <-ctx.Done():
			a.Logger.Warn().Err(ctx.Err()).Msg("Timed out closing browser")
		}
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
