// Package browser exposes the small slice of browser automation the monitor
// needs: navigate, wait, query, read, fill and click.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a bounded wait reaches its ceiling.
	ErrTimeout = errors.New("browser wait timed out")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("browser session closed")
	// ErrForeignElement is returned when an Element from another driver is passed in.
	ErrForeignElement = errors.New("element does not belong to this driver")
)

// Element is an opaque handle to a DOM node. It is only meaningful to the
// Driver that returned it.
type Element any

// Driver is a controlled browser page.
type Driver interface {
	// Navigate loads url in the current tab.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches at least one node, or returns
	// ErrTimeout after timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// FindAll returns the nodes matching selector under scope (the whole
	// document when scope is nil). It does not wait for matches to appear.
	FindAll(ctx context.Context, scope Element, selector string) ([]Element, error)
	// ReadText returns the rendered text of el.
	ReadText(ctx context.Context, el Element) (string, error)
	// FillIfEmpty types value into an input that has no value yet and reports
	// whether it did. A pre-filled input is left untouched.
	FillIfEmpty(ctx context.Context, el Element, value string) (bool, error)
	// Click clicks el.
	Click(ctx context.Context, el Element) error
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Exists reports whether selector currently matches anything in the document.
// Lookup errors count as "not present".
func Exists(ctx context.Context, d Driver, selector string) bool {
	els, err := d.FindAll(ctx, nil, selector)
	return err == nil && len(els) > 0
}
