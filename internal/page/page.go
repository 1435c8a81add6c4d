package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrElementNotFound is returned when a DOM wait exceeds its deadline.
var ErrElementNotFound = errors.New("element not found")

// Page is the minimal surface the automation agent needs from a browser page.
// Implementations: ChromePage (CDP-backed) and MemoryPage (in-process, used by
// tests and the demo mode).
type Page interface {
	// Navigate loads url and blocks until the document is ready.
	Navigate(ctx context.Context, url string) error
	// URL returns the current document location.
	URL() string
	// HTML returns a snapshot of the current document markup.
	HTML(ctx context.Context) (string, error)
	// Click dispatches a click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Focus moves input focus to the first element matching selector.
	Focus(ctx context.Context, selector string) error
	// TypeKey sends a single keystroke to the focused element.
	TypeKey(ctx context.Context, selector string, r rune) error
	// Changes returns a channel that is closed when the document may have
	// changed since the channel was obtained. Callers re-obtain the channel
	// after each notification.
	Changes() <-chan struct{}
}

// Query parses the current document and returns the selection for selector.
// A nil selection with nil error means no match.
func Query(ctx context.Context, p Page, selector string) (*goquery.Selection, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, nil
	}
	return sel, nil
}

// WaitForElement resolves with the first selection matching selector:
// one immediate check, then a change-notification loop, with a deadline
// timer running alongside. All exit paths release the timer; an
// eventually-successful page mutation after the deadline goes unobserved.
func WaitForElement(ctx context.Context, p Page, selector string, timeout time.Duration) (*goquery.Selection, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	start := time.Now()
	for {
		// Obtain the change channel before checking so a mutation between
		// check and select is never missed.
		changed := p.Changes()

		sel, err := Query(ctx, p, selector)
		if err != nil {
			return nil, err
		}
		if sel != nil {
			return sel.First(), nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return nil, fmt.Errorf("%w: %q after %s", ErrElementNotFound, selector, time.Since(start).Round(time.Millisecond))
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
