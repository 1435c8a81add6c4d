package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/outsourcely/leadbridge/internal/config"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the privileged relay between automation agents and clients.
// It is a stateless pass-through per message: no buffering, no reordering,
// no deduplication. The only request it answers itself is ping, so
// installation can be detected with no agent attached.
type Server struct {
	Conns   *ConnManager
	httpSrv *http.Server
	startAt time.Time

	cfgMu  sync.RWMutex
	Config *config.Config

	// routes maps an in-flight request's envelope ID to the connection that
	// issued it. Entries expire after the action's protocol timeout; a late
	// agent reply with an expired route is dropped.
	routesMu sync.Mutex
	routes   map[string]*Conn
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		Config:  cfg,
		Conns:   NewConnManager(),
		startAt: time.Now(),
		routes:  make(map[string]*Conn),
	}
}

// ApplyConfig swaps the active configuration. Registered as a hot-reload
// callback so an edited relay token takes effect without a restart; the
// listen port is fixed at startup.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.cfgMu.Lock()
	s.Config = cfg
	s.cfgMu.Unlock()
	slog.Info("coordinator config updated")
}

// Start begins listening for connections and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Config.Coordinator.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("coordinator starting", "port", s.Config.Coordinator.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler exposes the gin engine for tests running against httptest.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", s.ginHealth)
	engine.GET("/ws", s.ginWebSocket)
	return engine
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startAt).String(),
		"agents":  s.Conns.CountByRole(protocol.RoleAgent),
		"clients": s.Conns.CountByRole(protocol.RoleClient),
	})
}

func (s *Server) ginWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	connID := fmt.Sprintf("conn_%d", time.Now().UnixNano())
	conn := &Conn{
		ID:          connID,
		WS:          ws,
		ConnectedAt: time.Now(),
	}

	// First message must be a connect request
	env, err := ReadEnvelope(ws)
	if err != nil {
		slog.Warn("failed to read connect envelope", "error", err)
		return
	}
	if env.Action != protocol.ActionConnect {
		conn.Send(protocol.Fail(env, "HANDSHAKE_REQUIRED", "first message must be a connect request"))
		return
	}

	var connectParams protocol.ConnectParams
	if err := json.Unmarshal(env.Params, &connectParams); err != nil {
		conn.Send(protocol.Fail(env, "INVALID_PARAMS", "invalid connect params"))
		return
	}
	if connectParams.Role != protocol.RoleAgent && connectParams.Role != protocol.RoleClient {
		conn.Send(protocol.Fail(env, "INVALID_ROLE", "role must be agent or client"))
		return
	}
	if !s.authenticate(connectParams.Token) {
		conn.Send(protocol.Fail(env, "AUTH_FAILED", "invalid token"))
		return
	}

	conn.Role = connectParams.Role
	s.Conns.Add(conn)
	defer s.Conns.Remove(connID)

	slog.Info("connection established", "id", connID, "role", conn.Role)

	conn.Send(protocol.OK(env, map[string]any{
		"connId":   connID,
		"protocol": 1,
	}))

	// Message loop
	for {
		env, err := ReadEnvelope(ws)
		if err != nil {
			slog.Debug("connection closed", "id", connID, "error", err)
			return
		}

		switch conn.Role {
		case protocol.RoleClient:
			s.relayRequest(conn, env)
		case protocol.RoleAgent:
			s.relayResponse(env)
		}
	}
}

// relayRequest forwards a client request to the connected agent, answering
// ping itself and failing fast when no agent is attached.
func (s *Server) relayRequest(from *Conn, env protocol.Envelope) {
	if env.Source != protocol.SourceClient {
		return
	}

	if env.Action == protocol.ActionPing {
		from.Send(protocol.Envelope{
			Source: protocol.SourceAgent,
			Action: protocol.ActionPong,
			ID:     env.ID,
		})
		return
	}

	agent := s.Conns.Agent()
	if agent == nil {
		from.Send(protocol.Fail(env, "NO_AGENT", "no automation agent connected"))
		return
	}

	// ID-less requests from older peers cannot be routed back directly;
	// their responses take the role-broadcast path instead.
	if env.ID != "" {
		s.routesMu.Lock()
		s.routes[env.ID] = from
		s.routesMu.Unlock()
		time.AfterFunc(protocol.TimeoutFor(env.Action), func() {
			s.routesMu.Lock()
			delete(s.routes, env.ID)
			s.routesMu.Unlock()
		})
	}

	if err := agent.Send(env); err != nil {
		slog.Warn("relay to agent failed", "action", env.Action, "error", err)
		from.Send(protocol.Fail(env, "RELAY_FAILED", err.Error()))
	}
}

// relayResponse forwards an agent response to the client that issued the
// request. Responses without a known route fall back to a role broadcast so
// peers matching on (source, action) still receive them.
func (s *Server) relayResponse(env protocol.Envelope) {
	if env.Source != protocol.SourceAgent {
		return
	}

	s.routesMu.Lock()
	dest, ok := s.routes[env.ID]
	if ok {
		delete(s.routes, env.ID)
	}
	s.routesMu.Unlock()

	if ok {
		if err := dest.Send(env); err != nil {
			slog.Warn("relay to client failed", "action", env.Action, "error", err)
		}
		return
	}
	s.Conns.BroadcastToRole(protocol.RoleClient, env)
}

func (s *Server) authenticate(token string) bool {
	s.cfgMu.RLock()
	expected := s.Config.Coordinator.Auth.Token
	s.cfgMu.RUnlock()
	if expected == "" {
		return true // no auth configured
	}
	return token == expected
}
