package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

type scriptedChecker struct {
	results []protocol.SessionInfo
	errs    []error
	calls   int
}

func (c *scriptedChecker) CheckSession(ctx context.Context) (protocol.SessionInfo, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return protocol.SessionInfo{}, c.errs[i]
	}
	return c.results[i], nil
}

func TestProbeTracksSessionTransitions(t *testing.T) {
	name := "Sam Lee"
	checker := &scriptedChecker{
		results: []protocol.SessionInfo{
			{IsLoggedIn: true, UserName: &name},
			{IsLoggedIn: true, UserName: &name},
			{IsLoggedIn: false, Error: "login marker not found"},
		},
	}
	p := NewProbe(checker)
	ctx := context.Background()

	p.check(ctx)
	assert.True(t, p.haveState)
	assert.True(t, p.loggedIn)

	p.check(ctx)
	assert.True(t, p.loggedIn)

	p.check(ctx)
	assert.False(t, p.loggedIn)
	assert.Equal(t, 3, checker.calls)
}

func TestProbeKeepsStateOnCheckError(t *testing.T) {
	checker := &scriptedChecker{
		results: []protocol.SessionInfo{{IsLoggedIn: true}, {}},
		errs:    []error{nil, errors.New("bridge call timed out")},
	}
	p := NewProbe(checker)
	ctx := context.Background()

	p.check(ctx)
	p.check(ctx)
	assert.True(t, p.loggedIn, "a failed probe must not flip the last known state")
}

func TestProbeStartValidation(t *testing.T) {
	p := NewProbe(&scriptedChecker{})
	require.NoError(t, p.Start(context.Background(), ""))
	assert.Error(t, p.Start(context.Background(), "not a cron expr"))
}
