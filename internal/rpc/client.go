package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// ErrTimeout is returned when no response arrives within the action's window.
var ErrTimeout = errors.New("bridge call timed out")

// Client presents automation actions as typed calls over an untyped envelope
// transport. Every call registers exactly one pending entry keyed by the
// request's correlation ID and removes it on settle, success or timeout, so
// repeated calls never leak listeners. Responses with no pending entry
// (a reply arriving after its caller gave up) are dropped.
type Client struct {
	transport Transport
	healthURL string // optional HTTP probe endpoint of the coordinator
	httpc     *http.Client

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Envelope
}

func NewClient(t Transport, healthURL string) *Client {
	c := &Client{
		transport: t,
		healthURL: healthURL,
		httpc:     &http.Client{Timeout: time.Second},
		pending:   make(map[string]chan protocol.Envelope),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for env := range c.transport.Recv() {
		c.pendingMu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- env
		}
	}
}

// call sends a request and waits for its response within the action's
// protocol timeout.
func (c *Client) call(ctx context.Context, action string, params any) (protocol.Envelope, error) {
	req := protocol.NewRequest(action, params)

	ch := make(chan protocol.Envelope, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = ch
	c.pendingMu.Unlock()

	unregister := func() {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
	}

	if err := c.transport.Send(req); err != nil {
		unregister()
		return protocol.Envelope{}, fmt.Errorf("send %s: %w", action, err)
	}

	timer := time.NewTimer(protocol.TimeoutFor(action))
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp, resp.Error
		}
		return resp, nil
	case <-timer.C:
		unregister()
		return protocol.Envelope{}, fmt.Errorf("%w: no %s response within %s", ErrTimeout, action, protocol.TimeoutFor(action))
	case <-ctx.Done():
		unregister()
		return protocol.Envelope{}, ctx.Err()
	}
}

// IsInstalled probes for a reachable bridge. It races the WebSocket ping
// against an HTTP probe of the coordinator when one is configured; the first
// positive signal wins. Absence is a value, not an error: this never fails.
func (c *Client) IsInstalled(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, protocol.TimeoutFor(protocol.ActionPing))
	defer cancel()

	results := make(chan bool, 2)

	go func() {
		_, err := c.call(probeCtx, protocol.ActionPing, nil)
		results <- err == nil
	}()
	if c.healthURL != "" {
		go func() {
			req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.healthURL, nil)
			if err != nil {
				results <- false
				return
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				results <- false
				return
			}
			resp.Body.Close()
			results <- resp.StatusCode == http.StatusOK
		}()
	}

	probes := 1
	if c.healthURL != "" {
		probes = 2
	}
	for i := 0; i < probes; i++ {
		select {
		case ok := <-results:
			if ok {
				return true
			}
		case <-probeCtx.Done():
			return false
		}
	}
	return false
}

// CheckSession reports whether the target page currently has an
// authenticated user.
func (c *Client) CheckSession(ctx context.Context) (protocol.SessionInfo, error) {
	resp, err := c.call(ctx, protocol.ActionCheckSession, nil)
	if err != nil {
		return protocol.SessionInfo{}, err
	}
	var info protocol.SessionInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return protocol.SessionInfo{}, fmt.Errorf("decode session info: %w", err)
	}
	return info, nil
}

// ExtractConversations pulls up to batchSize inbox entries from the target page.
func (c *Client) ExtractConversations(ctx context.Context, batchSize int) (protocol.ExtractResult, error) {
	resp, err := c.call(ctx, protocol.ActionExtract, protocol.ExtractParams{BatchSize: batchSize})
	if err != nil {
		return protocol.ExtractResult{}, err
	}
	var result protocol.ExtractResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return protocol.ExtractResult{}, fmt.Errorf("decode extract result: %w", err)
	}
	return result, nil
}

// UserName resolves the target page's logged-in display name, nil when
// unresolvable.
func (c *Client) UserName(ctx context.Context) (*string, error) {
	resp, err := c.call(ctx, protocol.ActionGetUserName, nil)
	if err != nil {
		return nil, err
	}
	var result protocol.UserNameResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("decode user name: %w", err)
	}
	return result.UserName, nil
}

// SendMessage delivers one templated reply into a conversation. The result is
// terminal: agent-side stage failures arrive as Success=false, never as a hang.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (protocol.SendMessageResult, error) {
	resp, err := c.call(ctx, protocol.ActionSendMessage, protocol.SendMessageParams{
		ConversationID: conversationID,
		MessageText:    text,
	})
	if err != nil {
		return protocol.SendMessageResult{}, err
	}
	var result protocol.SendMessageResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return protocol.SendMessageResult{}, fmt.Errorf("decode send result: %w", err)
	}
	return result, nil
}

// SendConnection issues a connection request to a profile, with an optional note.
func (c *Client) SendConnection(ctx context.Context, profileURL, note string) (protocol.SendConnectionResult, error) {
	resp, err := c.call(ctx, protocol.ActionSendConnection, protocol.SendConnectionParams{
		ProfileURL: profileURL,
		Message:    note,
	})
	if err != nil {
		return protocol.SendConnectionResult{}, err
	}
	var result protocol.SendConnectionResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return protocol.SendConnectionResult{}, fmt.Errorf("decode connection result: %w", err)
	}
	return result, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error { return c.transport.Close() }
