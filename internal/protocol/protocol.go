package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the universal message format crossing context boundaries.
// Requests carry Source=SourceClient and Params; responses carry
// Source=SourceAgent, the "*Response" action and either Data or Error.
type Envelope struct {
	Source string          `json:"source"`
	Action string          `json:"action"`
	ID     string          `json:"id,omitempty"` // request/response correlation ID
	Params json.RawMessage `json:"params,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *ErrorPayload   `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorPayload) Error() string { return e.Code + ": " + e.Message }

// Source tags
const (
	SourceClient = "bridge-client"
	SourceAgent  = "bridge-agent"
)

// Connection roles
const (
	RoleAgent  = "agent"
	RoleClient = "client"
)

// Actions
const (
	ActionPing           = "ping"
	ActionPong           = "pong" // reply to ping; no payload, arrival is the signal
	ActionCheckSession   = "checkSession"
	ActionExtract        = "extractConversations"
	ActionGetUserName    = "getUserName"
	ActionSendMessage    = "sendMessage"
	ActionSendConnection = "sendConnection"

	// Connect is the mandatory first frame on a fresh connection.
	ActionConnect = "connect"
)

const responseSuffix = "Response"

// ResponseAction returns the "*Response" counterpart of a request action.
func ResponseAction(action string) string { return action + responseSuffix }

// IsResponse reports whether action names a response.
func IsResponse(action string) bool {
	return len(action) > len(responseSuffix) && action[len(action)-len(responseSuffix):] == responseSuffix
}

// TimeoutFor returns the protocol-level response window for an action.
// These values are a compatibility contract with existing callers.
func TimeoutFor(action string) time.Duration {
	switch action {
	case ActionPing:
		return 1 * time.Second
	case ActionExtract:
		return 30 * time.Second
	case ActionSendMessage, ActionSendConnection:
		return 45 * time.Second
	default:
		return 10 * time.Second
	}
}

// NewRequest builds a client-side request envelope with a fresh correlation ID.
func NewRequest(action string, params any) Envelope {
	var raw json.RawMessage
	if params != nil {
		raw, _ = json.Marshal(params)
	}
	return Envelope{
		Source: SourceClient,
		Action: action,
		ID:     uuid.NewString(),
		Params: raw,
	}
}

// OK builds the success response for a request envelope.
func OK(req Envelope, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{
		Source: SourceAgent,
		Action: ResponseAction(req.Action),
		ID:     req.ID,
		Data:   raw,
	}
}

// Fail builds the error response for a request envelope.
func Fail(req Envelope, code, message string) Envelope {
	return Envelope{
		Source: SourceAgent,
		Action: ResponseAction(req.Action),
		ID:     req.ID,
		Error:  &ErrorPayload{Code: code, Message: message},
	}
}

// ConnectParams is sent during handshake by both agents and clients.
type ConnectParams struct {
	Role  string `json:"role"` // "agent" | "client"
	Token string `json:"token"`
}
