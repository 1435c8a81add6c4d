// Package agent executes automation actions against the target page. It is
// the only component with DOM access; everything it reports back crosses a
// context boundary, so failures are always converted to structured results
// before they leave this package.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/outsourcely/leadbridge/internal/pacing"
	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// agentBatchCap is the hard ceiling on records per extraction call,
// regardless of what the request asks for.
const agentBatchCap = 20

// Waits bounds each DOM wait inside an automation stage.
type Waits struct {
	Session time.Duration // logged-in marker
	List    time.Duration // conversation list
	Input   time.Duration // message input / primary action
	Click   time.Duration // send and confirm controls
	Note    time.Duration // optional "add a note" control
}

func DefaultWaits() Waits {
	return Waits{
		Session: 5 * time.Second,
		List:    10 * time.Second,
		Input:   10 * time.Second,
		Click:   5 * time.Second,
		Note:    3 * time.Second,
	}
}

// Agent serves automation requests relayed by the coordinator.
type Agent struct {
	Page      page.Page
	Selectors Selectors
	Waits     Waits

	// InboxURL is the conversation list; ThreadURLBase prefixes conversation
	// ids to form thread URLs.
	InboxURL      string
	ThreadURLBase string

	// TypeDelay paces simulated keystrokes.
	TypeDelay pacing.DelayFunc
}

func New(p page.Page, inboxURL, threadURLBase string) *Agent {
	return &Agent{
		Page:          p,
		Selectors:     DefaultSelectors(),
		Waits:         DefaultWaits(),
		InboxURL:      inboxURL,
		ThreadURLBase: threadURLBase,
		TypeDelay:     pacing.Uniform(30*time.Millisecond, 90*time.Millisecond),
	}
}

// Run connects to the coordinator as role "agent" and serves requests until
// ctx is done or the connection drops.
func (a *Agent) Run(ctx context.Context, coordinatorURL, token string) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, coordinatorURL, nil)
	if err != nil {
		return fmt.Errorf("dial coordinator: %w", err)
	}
	defer ws.Close()

	var writeMu sync.Mutex
	send := func(env protocol.Envelope) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(env)
	}

	connect := protocol.NewRequest(protocol.ActionConnect, protocol.ConnectParams{
		Role:  protocol.RoleAgent,
		Token: token,
	})
	if err := send(connect); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}
	var reply protocol.Envelope
	if err := ws.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read connect reply: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("connect rejected: %w", reply.Error)
	}

	slog.Info("agent attached to coordinator", "url", coordinatorURL)

	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	for {
		var env protocol.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("coordinator connection lost: %w", err)
		}
		if env.Source != protocol.SourceClient {
			continue
		}
		go func(req protocol.Envelope) {
			resp := a.Handle(ctx, req)
			if err := send(resp); err != nil {
				slog.Warn("send response failed", "action", req.Action, "error", err)
			}
		}(env)
	}
}

// Handle dispatches one request to its action handler. Every path returns a
// terminal response envelope; handler panics or stage errors never propagate
// past this point.
func (a *Agent) Handle(ctx context.Context, req protocol.Envelope) protocol.Envelope {
	slog.Debug("handling action", "action", req.Action, "id", req.ID)

	switch req.Action {
	case protocol.ActionPing:
		return protocol.Envelope{Source: protocol.SourceAgent, Action: protocol.ActionPong, ID: req.ID}

	case protocol.ActionCheckSession:
		return protocol.OK(req, a.CheckSession(ctx))

	case protocol.ActionGetUserName:
		name := a.UserName(ctx)
		return protocol.OK(req, protocol.UserNameResult{UserName: name})

	case protocol.ActionExtract:
		var params protocol.ExtractParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.Fail(req, "INVALID_PARAMS", err.Error())
		}
		return protocol.OK(req, a.Extract(ctx, params.BatchSize))

	case protocol.ActionSendMessage:
		var params protocol.SendMessageParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.Fail(req, "INVALID_PARAMS", err.Error())
		}
		return protocol.OK(req, a.SendMessage(ctx, params.ConversationID, params.MessageText))

	case protocol.ActionSendConnection:
		var params protocol.SendConnectionParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.Fail(req, "INVALID_PARAMS", err.Error())
		}
		return protocol.OK(req, a.SendConnection(ctx, params.ProfileURL, params.Message))

	default:
		return protocol.Fail(req, "UNKNOWN_ACTION", fmt.Sprintf("unsupported action %q", req.Action))
	}
}
