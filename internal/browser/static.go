package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Loader returns the HTML served for url.
type Loader func(ctx context.Context, url string) (string, error)

// ClickFunc is invoked when a StaticPage element is clicked.
type ClickFunc func(ctx context.Context, el *goquery.Selection) error

// StaticPage is a Driver over pre-rendered HTML. Nothing executes on the page,
// so waits succeed or time out immediately. The inspect command uses it to
// replay saved pages, and tests use it as a page model.
type StaticPage struct {
	load    Loader
	onClick ClickFunc

	mu     sync.Mutex
	doc    *goquery.Document
	url    string
	visits []string
	closed bool
}

var _ Driver = (*StaticPage)(nil)

// NewStaticPage returns a page that fetches documents through load. The page
// is blank until the first Navigate.
func NewStaticPage(load Loader, onClick ClickFunc) *StaticPage {
	doc, _ := parseHTML("<html><body></body></html>")
	return &StaticPage{load: load, onClick: onClick, doc: doc, url: "about:blank"}
}

// StaticPageFromHTML returns a page already showing src. Navigating it
// reloads the same document.
func StaticPageFromHTML(src string) (*StaticPage, error) {
	doc, err := parseHTML(src)
	if err != nil {
		return nil, err
	}
	load := func(context.Context, string) (string, error) { return src, nil }
	return &StaticPage{load: load, doc: doc, url: "about:blank"}, nil
}

// FileLoader serves every URL from the HTML file at path.
func FileLoader(path string) Loader {
	return func(context.Context, string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// Navigate replaces the document with whatever the loader returns for url.
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	src, err := p.load(ctx, url)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	doc, err := parseHTML(src)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	p.mu.Lock()
	p.doc = doc
	p.url = url
	p.visits = append(p.visits, url)
	p.mu.Unlock()
	return nil
}

// WaitFor checks selector once; a static document never changes by itself.
func (p *StaticPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	if p.document().Find(selector).Length() == 0 {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, selector)
	}
	return nil
}

// FindAll returns each node matching selector as its own selection.
func (p *StaticPage) FindAll(ctx context.Context, scope Element, selector string) ([]Element, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}

	var root *goquery.Selection
	if scope == nil {
		root = p.document().Selection
	} else {
		sel, ok := scope.(*goquery.Selection)
		if !ok {
			return nil, ErrForeignElement
		}
		root = sel
	}

	matches := root.Find(selector)
	out := make([]Element, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

// ReadText returns the combined text of el and its descendants.
func (p *StaticPage) ReadText(ctx context.Context, el Element) (string, error) {
	sel, err := p.selection(ctx, el)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

// FillIfEmpty sets the value attribute when it is blank.
func (p *StaticPage) FillIfEmpty(ctx context.Context, el Element, value string) (bool, error) {
	sel, err := p.selection(ctx, el)
	if err != nil {
		return false, err
	}
	if current, _ := sel.Attr("value"); strings.TrimSpace(current) != "" || value == "" {
		return false, nil
	}
	sel.SetAttr("value", value)
	return true, nil
}

// Click runs the page's click handler, if any.
func (p *StaticPage) Click(ctx context.Context, el Element) error {
	sel, err := p.selection(ctx, el)
	if err != nil {
		return err
	}
	if p.onClick == nil {
		return nil
	}
	return p.onClick(ctx, sel)
}

// Close marks the page closed.
func (p *StaticPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// URL returns the last navigated URL.
func (p *StaticPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Visits returns every URL navigated to, in order.
func (p *StaticPage) Visits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// Closed reports whether Close has been called.
func (p *StaticPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *StaticPage) document() *goquery.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

func (p *StaticPage) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Closed() {
		return ErrClosed
	}
	return nil
}

func (p *StaticPage) selection(ctx context.Context, el Element) (*goquery.Selection, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	sel, ok := el.(*goquery.Selection)
	if !ok || sel == nil {
		return nil, ErrForeignElement
	}
	return sel, nil
}

func parseHTML(src string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
