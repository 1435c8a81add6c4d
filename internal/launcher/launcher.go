// Package launcher lets the coordinator supervise a local automation agent
// process, so a single "leadbridge serve" brings up the whole bridge.
package launcher

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Status describes the supervised agent process.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
}

// Manager starts and stops the agent process. The coordinator's WebSocket
// URL and token are passed through the environment.
type Manager struct {
	wsURL string
	token string

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	startedAt time.Time
}

func NewManager(wsURL, token string) *Manager {
	return &Manager{wsURL: wsURL, token: token}
}

// Start launches argv as the agent process. An empty argv re-invokes the
// current binary with the "agent" subcommand.
func (m *Manager) Start(ctx context.Context, argv []string) bool {
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			slog.Warn("agent launch failed: cannot resolve own binary", "error", err)
			return false
		}
		argv = []string{self, "agent"}
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"LEADBRIDGE_WS_URL="+m.wsURL,
		"LEADBRIDGE_TOKEN="+m.token,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cmd = nil
	}
	m.mu.Unlock()

	if err := cmd.Start(); err != nil {
		slog.Warn("agent launch failed", "argv", argv, "error", err)
		cancel()
		return false
	}

	m.mu.Lock()
	m.cmd = cmd
	m.cancel = cancel
	m.startedAt = time.Now()
	m.mu.Unlock()
	slog.Info("agent process started", "pid", cmd.Process.Pid)

	go func() {
		_ = cmd.Wait()
		m.mu.Lock()
		if m.cmd == cmd {
			m.cmd = nil
			m.cancel = nil
		}
		m.mu.Unlock()
		slog.Info("agent process exited", "pid", cmd.Process.Pid)
	}()
	return true
}

// Stop terminates the supervised process if one is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cmd = nil
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Status reports whether the agent process is running.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil || m.cmd.Process == nil {
		return Status{}
	}
	return Status{Running: true, PID: m.cmd.Process.Pid, StartedAt: m.startedAt}
}
