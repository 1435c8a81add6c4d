// Package workflow drives the operator-facing batch flow: extract the inbox,
// filter and select conversations, preview templated replies, then send them
// sequentially at a human pace.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/outsourcely/leadbridge/internal/pacing"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Bridge is the slice of the RPC client the workflow consumes.
type Bridge interface {
	IsInstalled(ctx context.Context) bool
	CheckSession(ctx context.Context) (protocol.SessionInfo, error)
	ExtractConversations(ctx context.Context, batchSize int) (protocol.ExtractResult, error)
	SendMessage(ctx context.Context, conversationID, text string) (protocol.SendMessageResult, error)
}

// State of the campaign machine.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateReviewing  State = "reviewing"
	StatePreviewing State = "previewing"
	StateSending    State = "sending"
)

var (
	ErrNotInstalled   = errors.New("automation bridge is not reachable")
	ErrNotLoggedIn    = errors.New("target page has no authenticated session")
	ErrEmptyTemplate  = errors.New("reply template is empty")
	ErrEmptySelection = errors.New("no conversations selected")
	ErrBadState       = errors.New("operation not allowed in current state")
)

// ReplyJob is one personalized outbound message. Jobs are consumed exactly
// once during the send phase and never persisted.
type ReplyJob struct {
	Conversation        protocol.ConversationRecord
	PersonalizedMessage string
}

// Summary reports the terminal outcome of a send batch.
type Summary struct {
	Sent   int
	Failed int
	Errors []string
}

// Campaign owns the extract → review → preview → send cycle. All state is
// in-memory and lives for one operator session.
type Campaign struct {
	bridge   Bridge
	delay    pacing.DelayFunc
	maxBatch int

	mu      sync.Mutex
	state   State
	records []protocol.ConversationRecord
	filters Filters
	jobs    []ReplyJob
}

func NewCampaign(bridge Bridge, maxBatch int, delay pacing.DelayFunc) *Campaign {
	if maxBatch <= 0 {
		maxBatch = 150
	}
	if delay == nil {
		delay = pacing.Uniform(3*time.Second, 8*time.Second)
	}
	return &Campaign{
		bridge:   bridge,
		delay:    delay,
		maxBatch: maxBatch,
		state:    StateIdle,
	}
}

func (c *Campaign) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Extract re-checks both preconditions immediately before the call, since
// the target page's session can change between page loads, then pulls up to
// batchSize records and moves to reviewing.
func (c *Campaign) Extract(ctx context.Context, batchSize int) ([]protocol.ConversationRecord, error) {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateReviewing {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: extract from %s", ErrBadState, c.state)
	}
	c.state = StateExtracting
	c.mu.Unlock()

	fail := func(err error) ([]protocol.ConversationRecord, error) {
		c.setState(StateIdle)
		return nil, err
	}

	if !c.bridge.IsInstalled(ctx) {
		return fail(ErrNotInstalled)
	}
	session, err := c.bridge.CheckSession(ctx)
	if err != nil {
		return fail(fmt.Errorf("session check: %w", err))
	}
	if !session.IsLoggedIn {
		return fail(ErrNotLoggedIn)
	}

	if batchSize <= 0 || batchSize > c.maxBatch {
		batchSize = c.maxBatch
	}
	result, err := c.bridge.ExtractConversations(ctx, batchSize)
	if err != nil {
		return fail(fmt.Errorf("extraction: %w", err))
	}
	if !result.Success {
		return fail(fmt.Errorf("extraction failed: %s", result.Error))
	}

	c.mu.Lock()
	c.records = result.Conversations
	c.state = StateReviewing
	c.mu.Unlock()

	slog.Info("conversations extracted", "count", len(result.Conversations))
	return result.Conversations, nil
}

// SetFilters updates the review filters.
func (c *Campaign) SetFilters(f Filters) {
	c.mu.Lock()
	c.filters = f
	c.mu.Unlock()
}

// Filtered recomputes the filtered view from the current records and
// filters.
func (c *Campaign) Filtered() []protocol.ConversationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Apply(c.records)
}

// Preview builds one ReplyJob per selected conversation, in selection order.
// An empty template or selection fails fast with no state change.
func (c *Campaign) Preview(selectedIDs []string, template string) ([]ReplyJob, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	if len(selectedIDs) == 0 {
		return nil, ErrEmptySelection
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReviewing && c.state != StatePreviewing {
		return nil, fmt.Errorf("%w: preview from %s", ErrBadState, c.state)
	}

	byID := make(map[string]protocol.ConversationRecord, len(c.records))
	for _, rec := range c.records {
		byID[rec.ConversationID] = rec
	}

	jobs := make([]ReplyJob, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("selected conversation %q is not in the extracted set", id)
		}
		jobs = append(jobs, ReplyJob{
			Conversation:        rec,
			PersonalizedMessage: Render(template, rec),
		})
	}

	c.jobs = jobs
	c.state = StatePreviewing
	return jobs, nil
}

// Send delivers the previewed jobs strictly in order, pausing a randomized
// interval between consecutive jobs. A single job failure does not abort the
// batch; the terminal summary is produced after the last job regardless of
// individual outcomes. Jobs are consumed: a second Send needs a new preview.
func (c *Campaign) Send(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	if c.state != StatePreviewing {
		c.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: send from %s", ErrBadState, c.state)
	}
	jobs := c.jobs
	c.jobs = nil
	c.state = StateSending
	c.mu.Unlock()

	defer c.setState(StateIdle)

	var summary Summary
	for i, job := range jobs {
		if i > 0 {
			select {
			case <-time.After(c.delay()):
			case <-ctx.Done():
				summary.Errors = append(summary.Errors, ctx.Err().Error())
				return summary, ctx.Err()
			}
		}

		result, err := c.bridge.SendMessage(ctx, job.Conversation.ConversationID, job.PersonalizedMessage)
		switch {
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", job.Conversation.ConversationID, err))
		case !result.Success:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", result.ConversationID, result.Error))
		default:
			summary.Sent++
		}
	}

	slog.Info("send batch finished", "sent", summary.Sent, "failed", summary.Failed)
	return summary, nil
}

func (c *Campaign) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
