package coordinator

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Conn represents a single WebSocket connection.
type Conn struct {
	ID          string
	Role        string // "agent" | "client"
	WS          *websocket.Conn
	writeMu     sync.Mutex
	ConnectedAt time.Time
}

// Send writes an envelope to the WebSocket connection (thread-safe).
func (c *Conn) Send(env protocol.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteJSON(env)
}

// ConnManager tracks all active WebSocket connections.
type ConnManager struct {
	mu    sync.RWMutex
	conns map[string]*Conn // connID → conn
}

func NewConnManager() *ConnManager {
	return &ConnManager{conns: make(map[string]*Conn)}
}

// Add registers a new connection.
func (m *ConnManager) Add(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ID] = conn
}

// Remove unregisters a connection.
func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

// Agent returns one connected automation agent, or nil when none is attached.
func (m *ConnManager) Agent() *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.conns {
		if conn.Role == protocol.RoleAgent {
			return conn
		}
	}
	return nil
}

// CountByRole returns the number of connections with the given role.
func (m *ConnManager) CountByRole(role string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, conn := range m.conns {
		if conn.Role == role {
			count++
		}
	}
	return count
}

// BroadcastToRole sends an envelope to every connection with the given role.
func (m *ConnManager) BroadcastToRole(role string, env protocol.Envelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.conns {
		if conn.Role == role {
			if err := conn.Send(env); err != nil {
				slog.Warn("broadcast failed", "conn", conn.ID, "error", err)
			}
		}
	}
}

// ReadEnvelope reads and parses a WebSocket message into an Envelope.
func ReadEnvelope(ws *websocket.Conn) (protocol.Envelope, error) {
	var env protocol.Envelope
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return env, err
	}
	err = json.Unmarshal(msg, &env)
	return env, err
}
