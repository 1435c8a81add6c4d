// Package schedule runs the recurring session probe: a cron-driven check of
// the target page's authentication state, so operators learn about session
// expiry before starting a batch.
package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// SessionChecker is the slice of the RPC client the probe consumes.
type SessionChecker interface {
	CheckSession(ctx context.Context) (protocol.SessionInfo, error)
}

// Probe periodically re-checks the session and logs state transitions.
type Probe struct {
	checker SessionChecker
	cron    *cron.Cron

	mu        sync.Mutex
	haveState bool
	loggedIn  bool
}

func NewProbe(checker SessionChecker) *Probe {
	return &Probe{
		checker: checker,
		cron:    cron.New(),
	}
}

// Start schedules the probe with the given cron expression and begins
// running it. An empty expression is a no-op.
func (p *Probe) Start(ctx context.Context, expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := p.cron.AddFunc(expr, func() { p.check(ctx) }); err != nil {
		return err
	}
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
	slog.Info("session probe scheduled", "cron", expr)
	return nil
}

func (p *Probe) check(ctx context.Context) {
	session, err := p.checker.CheckSession(ctx)
	if err != nil {
		slog.Warn("session probe failed", "error", err)
		return
	}

	p.mu.Lock()
	transition := !p.haveState || p.loggedIn != session.IsLoggedIn
	p.haveState = true
	p.loggedIn = session.IsLoggedIn
	p.mu.Unlock()

	if !transition {
		return
	}
	if session.IsLoggedIn {
		name := ""
		if session.UserName != nil {
			name = *session.UserName
		}
		slog.Info("target session active", "user", name)
	} else {
		slog.Warn("target session lost", "detail", session.Error)
	}
}
