package launcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndStop(t *testing.T) {
	m := NewManager("ws://localhost:19400/ws", "tok")

	ok := m.Start(context.Background(), []string{"sleep", "30"})
	require.True(t, ok)

	status := m.Status()
	assert.True(t, status.Running)
	assert.NotZero(t, status.PID)

	m.Stop()
	assert.Eventually(t, func() bool {
		return !m.Status().Running
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStartBadCommand(t *testing.T) {
	m := NewManager("ws://localhost:19400/ws", "tok")
	assert.False(t, m.Start(context.Background(), []string{"/nonexistent/agent-binary"}))
	assert.False(t, m.Status().Running)
}

func TestStatusEmptyBeforeStart(t *testing.T) {
	m := NewManager("", "")
	assert.Equal(t, Status{}, m.Status())
}
