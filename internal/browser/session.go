package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// SessionOptions configures a Chrome session.
type SessionOptions struct {
	Headless   bool
	ChromePath string
	UserAgent  string
	Proxy      string
	// PageLoadTimeout bounds Navigate.
	PageLoadTimeout time.Duration
	// ScriptTimeout bounds every DOM query, read and input action.
	ScriptTimeout time.Duration
	ExtraArgs     []chromedp.ExecAllocatorOption
}

// Session is a single Chrome tab driven through chromedp. It owns the browser
// process; Close must be called on every exit path.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	pageLoad    time.Duration
	script      time.Duration

	mu     sync.Mutex
	closed bool
}

var _ Driver = (*Session)(nil)

// NewSession starts Chrome and opens a blank tab.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 180 * time.Second
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = 180 * time.Second
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(1920, 1080),
	}

	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	allocOpts = append(allocOpts, opts.ExtraArgs...)

	// The browser outlives any single caller context so that cleanup still
	// works after an interrupt cancelled the run.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))

	s := &Session{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		pageLoad:    opts.PageLoadTimeout,
		script:      opts.ScriptTimeout,
	}

	// First Run launches the browser; it must use the long-lived context.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info().Bool("headless", opts.Headless).Msg("Browser session started")
	return s, nil
}

// Navigate loads url, bounded by the page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	log.Debug().Str("url", url).Msg("Navigating")
	if err := s.run(ctx, s.pageLoad, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitFor waits until selector matches a node in the document.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// FindAll returns matching nodes without waiting for them to appear.
func (s *Session) FindAll(ctx context.Context, scope Element, selector string) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if scope != nil {
		parent, ok := scope.(*cdp.Node)
		if !ok {
			return nil, ErrForeignElement
		}
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, s.script, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

// ReadText returns the node's rendered text.
func (s *Session) ReadText(ctx context.Context, el Element) (string, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, s.script, chromedp.Text(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

// FillIfEmpty types value into el unless it already holds a value.
func (s *Session) FillIfEmpty(ctx context.Context, el Element, value string) (bool, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return false, err
	}

	var current string
	if err := s.run(ctx, s.script, chromedp.Value(ids, &current, chromedp.ByNodeID)); err != nil {
		return false, err
	}
	if strings.TrimSpace(current) != "" || value == "" {
		return false, nil
	}

	if err := s.run(ctx, s.script, chromedp.SendKeys(ids, value, chromedp.ByNodeID)); err != nil {
		return false, err
	}
	return true, nil
}

// Click clicks el.
func (s *Session) Click(ctx context.Context, el Element) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return s.run(ctx, s.script, chromedp.Click(ids, chromedp.ByNodeID))
}

// Close shuts the browser down. It ignores the state of any caller context.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = fmt.Errorf("failed to close browser: %w", cerr)
	}
	s.cancel()
	s.allocCancel()

	log.Info().Msg("Browser session closed")
	return err
}

// run executes actions on the tab under timeout, also aborting when the
// caller's ctx is cancelled.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
	}
	return err
}

func nodeIDs(el Element) ([]cdp.NodeID, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, ErrForeignElement
	}
	return []cdp.NodeID{n.NodeID}, nil
}
