package page

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPage is an in-process Page backed by a mutable HTML string.
// Click, focus and keystrokes are recorded, and optional hooks let a test
// simulate the page reacting to input (navigation swapping documents,
// a click revealing a dialog, and so on).
type MemoryPage struct {
	mu      sync.Mutex
	url     string
	html    string
	changed chan struct{}

	// Routes maps URLs to documents for Navigate. Unknown URLs keep the
	// current document.
	Routes map[string]string

	// OnClick, if set, runs after a click on selector is recorded.
	OnClick func(selector string)

	Clicks  []string
	Focused string
	Typed   map[string]string
}

func NewMemoryPage(html string) *MemoryPage {
	return &MemoryPage{
		html:    html,
		changed: make(chan struct{}),
		Routes:  make(map[string]string),
		Typed:   make(map[string]string),
	}
}

// SetHTML replaces the document and notifies waiters.
func (p *MemoryPage) SetHTML(html string) {
	p.mu.Lock()
	p.html = html
	p.notifyLocked()
	p.mu.Unlock()
}

func (p *MemoryPage) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *MemoryPage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	if doc, ok := p.Routes[url]; ok {
		p.html = doc
	}
	p.notifyLocked()
	return nil
}

func (p *MemoryPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *MemoryPage) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *MemoryPage) Click(ctx context.Context, selector string) error {
	sel, err := Query(ctx, p, selector)
	if err != nil {
		return err
	}
	if sel == nil {
		return fmt.Errorf("%w: click target %q", ErrElementNotFound, selector)
	}
	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *MemoryPage) Focus(ctx context.Context, selector string) error {
	sel, err := Query(ctx, p, selector)
	if err != nil {
		return err
	}
	if sel == nil {
		return fmt.Errorf("%w: focus target %q", ErrElementNotFound, selector)
	}
	p.mu.Lock()
	p.Focused = selector
	p.mu.Unlock()
	return nil
}

func (p *MemoryPage) TypeKey(_ context.Context, selector string, r rune) error {
	p.mu.Lock()
	p.Typed[selector] += string(r)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPage) Changes() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}
