package page

import (
	"context"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// pollInterval drives change notifications for CDP pages. CDP does not
// expose DOM mutations without injecting script into the target, so waiters
// are woken on a fixed cadence and re-query the document. Navigation and
// load events wake them immediately.
const pollInterval = 150 * time.Millisecond

// ChromePage drives a real browser tab over the Chrome DevTools Protocol.
type ChromePage struct {
	taskCtx     context.Context
	cancelTask  context.CancelFunc
	cancelAlloc context.CancelFunc

	mu      sync.Mutex
	changed chan struct{}
	done    chan struct{}
}

// ChromeOptions configures the browser process.
type ChromeOptions struct {
	Headless bool
	// UserDataDir preserves the target site's login session between runs.
	UserDataDir string
}

// NewChromePage launches a browser and returns a Page bound to its first tab.
func NewChromePage(ctx context.Context, opts ChromeOptions) (*ChromePage, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	p := &ChromePage{
		taskCtx:     taskCtx,
		cancelTask:  cancelTask,
		cancelAlloc: cancelAlloc,
		changed:     make(chan struct{}),
		done:        make(chan struct{}),
	}

	chromedp.ListenTarget(taskCtx, func(ev any) {
		switch ev.(type) {
		case *cdppage.EventLoadEventFired, *cdppage.EventFrameNavigated, *cdppage.EventDomContentEventFired:
			p.notify()
		}
	})

	if err := chromedp.Run(taskCtx); err != nil {
		cancelTask()
		cancelAlloc()
		return nil, err
	}

	go p.tick()
	return p, nil
}

func (p *ChromePage) notify() {
	p.mu.Lock()
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

func (p *ChromePage) tick() {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.notify()
		case <-p.done:
			return
		}
	}
}

func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *ChromePage) URL() string {
	var loc string
	if err := chromedp.Run(p.taskCtx, chromedp.Location(&loc)); err != nil {
		return ""
	}
	return loc
}

func (p *ChromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *ChromePage) Focus(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

func (p *ChromePage) TypeKey(ctx context.Context, selector string, r rune) error {
	return p.run(ctx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery))
}

func (p *ChromePage) Changes() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// Close shuts down the tab and the browser process.
func (p *ChromePage) Close() {
	close(p.done)
	p.cancelTask()
	p.cancelAlloc()
}

// run executes actions on the tab, bounded by the caller's context.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.taskCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
